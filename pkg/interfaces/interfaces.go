// Package interfaces defines the core abstractions for the resolver service.
// Site resolvers and the playlist extraction collaborator implement these
// interfaces, keeping the pipeline modular and testable.
package interfaces

import (
	"context"
	"net/http"

	"aniweek-resolver-go/pkg/types"
)

// Resolver turns a content-page address into playable stream candidates.
//
// To add a new site:
// 1. Create a new file in pkg/resolver/
// 2. Implement this interface
// 3. Register it in the ResolverRegistry
type Resolver interface {
	// Name returns a unique identifier for this resolver.
	Name() string

	// CanResolve returns true if this resolver handles the given page address.
	CanResolve(url string) bool

	// Resolve runs the full resolution pipeline for one content page.
	// An empty candidate list means no playable stream was found; it is not
	// an error.
	Resolve(ctx context.Context, url string, opts ResolveOptions) (*types.ResolveResult, error)

	// Close releases any resources held by the resolver.
	Close() error
}

// ResolveOptions carries caller-supplied inputs for one resolution.
type ResolveOptions struct {
	// Headers are merged into the default request headers for every step.
	Headers map[string]string

	// PreferredQuality orders the candidate list ("1080", "720", ...).
	PreferredQuality string
}

// HeaderGen produces playback headers for one resolved video address.
// referer may be empty, in which case implementations derive one from the
// video address itself.
type HeaderGen func(referer, videoURL string) map[string]string

// ExtractOptions parameterizes playlist extraction.
type ExtractOptions struct {
	// PlaylistHeaders are sent when fetching remote playlists.
	PlaylistHeaders map[string]string

	// VideoHeaders generates the playback headers attached to each candidate.
	// Nil means candidates inherit PlaylistHeaders.
	VideoHeaders HeaderGen

	// QualityHint labels candidates from media playlists, which carry no
	// variant metadata of their own.
	QualityHint string
}

// PlaylistExtractor is the HLS extraction collaborator. It accepts either a
// remote playlist address or an in-memory playlist document, so synthesized
// playlists never need to round-trip through the network layer.
type PlaylistExtractor interface {
	ExtractFromURL(ctx context.Context, playlistURL string, opts ExtractOptions) ([]types.StreamCandidate, error)
	ExtractFromDocument(body []byte, sourceURL string, opts ExtractOptions) ([]types.StreamCandidate, error)
}

// SessionStore is a persisted key-value store shared by resolutions.
// Writes are last-write-wins; no ordering is guaranteed between racing
// writers.
type SessionStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Logger defines the logging interface used throughout the application.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
