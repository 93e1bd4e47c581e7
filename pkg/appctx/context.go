// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"aniweek-resolver-go/pkg/config"
	"aniweek-resolver-go/pkg/logging"
	"aniweek-resolver-go/pkg/registry"
	"aniweek-resolver-go/pkg/session"
)

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config    *config.Config
	Log       *logging.Logger
	Session   *session.Store
	Resolvers *registry.ResolverRegistry
}

// New creates a new application context.
func New(cfg *config.Config, log *logging.Logger) *Context {
	return &Context{
		Config: cfg,
		Log:    log,
	}
}

// WithSession sets the session store.
func (c *Context) WithSession(s *session.Store) *Context {
	c.Session = s
	return c
}

// WithResolvers sets the resolver registry.
func (c *Context) WithResolvers(r *registry.ResolverRegistry) *Context {
	c.Resolvers = r
	return c
}
