// Package api provides the REST endpoints of the resolver service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"aniweek-resolver-go/pkg/appctx"
	"aniweek-resolver-go/pkg/httpclient"
	"aniweek-resolver-go/pkg/interfaces"
	"aniweek-resolver-go/pkg/logging"
	"aniweek-resolver-go/pkg/resolver"
	"aniweek-resolver-go/pkg/session"
)

// Handlers holds the API handlers and their dependencies.
type Handlers struct {
	ctx *appctx.Context
	log *logging.Logger
}

// NewHandlers creates API handlers from the application context.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("api"),
	}
}

// RegisterRoutes registers all API routes on the router.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleInfo)
	mux.HandleFunc("/info", h.handleInfo)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/resolve", h.handleResolve)
	mux.HandleFunc("/api/session", h.handleSession)
}

// handleInfo returns service information.
func (h *Handlers) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/info" {
		http.NotFound(w, r)
		return
	}

	resolvers := make([]string, 0)
	for _, res := range h.ctx.Resolvers.All() {
		resolvers = append(resolvers, res.Name())
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"service":   "aniweek-resolver",
		"site":      h.ctx.Config.SiteBaseURL,
		"resolvers": resolvers,
	})
}

// handleHealth is the liveness endpoint.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleResolve resolves one content page into stream candidates.
// Query parameters: url (required), quality (optional preferred-quality
// override), h_* (extra request headers, underscores become hyphens).
func (h *Handlers) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		h.writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	quality := r.URL.Query().Get("quality")
	if quality == "" {
		quality = h.ctx.Config.PreferredQuality
	}

	opts := interfaces.ResolveOptions{
		Headers:          httpclient.ParseHeaderParams(r.URL.Query()),
		PreferredQuality: quality,
	}

	res := h.ctx.Resolvers.Get(pageURL)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	result, err := res.Resolve(ctx, pageURL, opts)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, resolver.ErrFormNotFound) ||
			errors.Is(err, resolver.ErrEmbedNotFound) ||
			errors.Is(err, resolver.ErrDescriptorDecode) {
			status = http.StatusUnprocessableEntity
		}
		h.log.Warn("resolution failed", "url", pageURL, "resolver", res.Name(), "error", err)
		h.writeError(w, status, err.Error())
		return
	}

	h.log.Info("resolved content page",
		"url", pageURL,
		"resolver", res.Name(),
		"candidates", len(result.Candidates),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"url":        pageURL,
		"resolver":   res.Name(),
		"candidates": result.Candidates,
		"subtitles":  result.Subtitles,
	})
}

// handleSession inspects or clears the persisted session cookie. The DELETE
// form is the external configuration reset that makes the next resolution
// re-derive its cookie.
func (h *Handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		_, ok, err := h.ctx.Session.Get(session.CookieKey)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"cookie_present": ok})

	case http.MethodDelete:
		if err := h.ctx.Session.ClearCookie(); err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.log.Info("session cookie cleared")
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})

	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
