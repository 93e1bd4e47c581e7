// Package app provides the main application setup and dependency injection.
package app

import (
	"aniweek-resolver-go/pkg/appctx"
	"aniweek-resolver-go/pkg/config"
	"aniweek-resolver-go/pkg/handlers/api"
	"aniweek-resolver-go/pkg/hls"
	"aniweek-resolver-go/pkg/httpclient"
	"aniweek-resolver-go/pkg/logging"
	"aniweek-resolver-go/pkg/registry"
	"aniweek-resolver-go/pkg/resolver"
	"aniweek-resolver-go/pkg/server"
	"aniweek-resolver-go/pkg/session"
)

// App is the main application container.
type App struct {
	Ctx        *appctx.Context
	Server     *server.Server
	HTTPClient *httpclient.Client
	Resolvers  *registry.ResolverRegistry
}

// New creates and initializes the application.
func New() (*App, error) {
	cfg := config.Load()

	log := logging.New(cfg.LogLevel, cfg.LogJSON, nil)
	log.Info("initializing resolver service", "port", cfg.Port, "site", cfg.SiteBaseURL)

	ctx := appctx.New(cfg, log)

	// Session store: shared across resolutions, persisted across runs.
	store, err := session.Open(cfg.SessionDir, log)
	if err != nil {
		return nil, err
	}
	ctx.WithSession(store)

	httpClient := httpclient.New(cfg, log)
	extractor := hls.New(httpClient, log)

	resolvers := registry.NewResolverRegistry()
	registerResolvers(resolvers, httpClient, store, extractor, log, cfg)
	ctx.WithResolvers(resolvers)

	srv := server.New(cfg, log)
	handlers := api.NewHandlers(ctx)
	handlers.RegisterRoutes(srv.Router())

	return &App{
		Ctx:        ctx,
		Server:     srv,
		HTTPClient: httpClient,
		Resolvers:  resolvers,
	}, nil
}

// Run starts the application.
func (a *App) Run() error {
	return a.Server.Start()
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() {
	a.Ctx.Log.Info("shutting down application")

	a.Resolvers.Close()

	if a.Ctx.Session != nil {
		if err := a.Ctx.Session.Close(); err != nil {
			a.Ctx.Log.Error("failed to close session store", "error", err)
		}
	}
}

// registerResolvers registers all site resolvers.
// Add new resolvers here by:
// 1. Creating a new resolver in pkg/resolver/
// 2. Registering it below
func registerResolvers(
	reg *registry.ResolverRegistry,
	client *httpclient.Client,
	store *session.Store,
	extractor *hls.Extractor,
	log *logging.Logger,
	cfg *config.Config,
) {
	aniweek := resolver.NewAniweekResolver(client, store, extractor, log, resolver.Config{
		SiteBaseURL:     cfg.SiteBaseURL,
		PartHardCap:     cfg.PartHardCap,
		ProbeTimeout:    cfg.ProbeTimeout,
		TargetDuration:  cfg.TargetDuration,
		SegmentDuration: cfg.SegmentDuration,
	})
	reg.Register(aniweek)

	// Direct playlist addresses fall through to the extractor.
	reg.SetFallback(resolver.NewDirectResolver(extractor, log))

	log.Info("registered resolvers", "count", len(reg.All())+1) // +1 for fallback
}
