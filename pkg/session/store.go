// Package session provides the persisted key-value store that holds
// site-wide session state across resolution runs.
//
// The store is shared by concurrent resolutions. Writes are last-write-wins
// with no ordering guarantee between racing writers; the stored values are
// coarse site-wide tokens, not per-call state, so that is sufficient.
package session

import (
	"errors"

	"aniweek-resolver-go/pkg/interfaces"
	"aniweek-resolver-go/pkg/logging"

	badger "github.com/dgraph-io/badger/v4"
)

// CookieKey is the store key holding the extracted session cookie.
const CookieKey = "cookie"

// Store is a Badger-backed key-value store.
type Store struct {
	db  *badger.DB
	log *logging.Logger
}

// Open opens (or creates) a store in dir. An empty dir opens an in-memory
// store that does not survive the process; tests use this mode.
func Open(dir string, log *logging.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:  db,
		log: log.WithComponent("session"),
	}, nil
}

// Get returns the value stored under key. ok is false when the key is absent.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = string(raw)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, overwriting any previous value.
func (s *Store) Set(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

// Delete removes key from the store. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Cookie returns the stored session cookie, if any. Read errors are treated
// as "no cookie" so a corrupt store degrades to re-deriving the cookie.
func (s *Store) Cookie() (string, bool) {
	value, ok, err := s.Get(CookieKey)
	if err != nil {
		s.log.Warn("failed to read session cookie", "error", err)
		return "", false
	}
	return value, ok
}

// SetCookie persists the session cookie. Last write wins.
func (s *Store) SetCookie(value string) error {
	return s.Set(CookieKey, value)
}

// ClearCookie removes the stored session cookie.
func (s *Store) ClearCookie() error {
	return s.Delete(CookieKey)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ interfaces.SessionStore = (*Store)(nil)
