package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"aniweek-resolver-go/pkg/appctx"
	"aniweek-resolver-go/pkg/config"
	"aniweek-resolver-go/pkg/interfaces"
	"aniweek-resolver-go/pkg/logging"
	"aniweek-resolver-go/pkg/registry"
	"aniweek-resolver-go/pkg/resolver"
	"aniweek-resolver-go/pkg/session"
	"aniweek-resolver-go/pkg/types"
)

// stubResolver answers every resolution with canned output.
type stubResolver struct {
	name    string
	result  *types.ResolveResult
	err     error
	gotURL  string
	gotOpts interfaces.ResolveOptions
}

func (s *stubResolver) Name() string           { return s.name }
func (s *stubResolver) CanResolve(string) bool { return true }
func (s *stubResolver) Close() error           { return nil }

func (s *stubResolver) Resolve(_ context.Context, url string, opts interfaces.ResolveOptions) (*types.ResolveResult, error) {
	s.gotURL = url
	s.gotOpts = opts
	return s.result, s.err
}

func newTestHandlers(t *testing.T, stub *stubResolver) (*Handlers, *session.Store) {
	t.Helper()

	log := logging.New("error", false, io.Discard)
	store, err := session.Open("", log)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := registry.NewResolverRegistry()
	reg.Register(stub)

	cfg := &config.Config{
		SiteBaseURL:      "https://aniweek.com",
		PreferredQuality: "1080",
	}
	ctx := appctx.New(cfg, log).WithSession(store).WithResolvers(reg)
	return NewHandlers(ctx), store
}

func serve(h *Handlers, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestHandleResolve(t *testing.T) {
	stub := &stubResolver{
		name: "aniweek",
		result: &types.ResolveResult{
			Candidates: []types.StreamCandidate{
				{URL: "https://cdn.example/1080.m3u8", Quality: "1080p"},
			},
		},
	}
	h, _ := newTestHandlers(t, stub)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/resolve?url=https://aniweek.com/watch/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	payload := decodeBody(t, rec)
	if payload["resolver"] != "aniweek" {
		t.Errorf("resolver = %v", payload["resolver"])
	}
	candidates, _ := payload["candidates"].([]any)
	if len(candidates) != 1 {
		t.Errorf("candidates = %v", payload["candidates"])
	}

	if stub.gotURL != "https://aniweek.com/watch/1" {
		t.Errorf("resolver received url %q", stub.gotURL)
	}
	// Config default applies when the quality parameter is absent.
	if stub.gotOpts.PreferredQuality != "1080" {
		t.Errorf("preferred quality = %q", stub.gotOpts.PreferredQuality)
	}
}

func TestHandleResolve_QualityAndHeaderParams(t *testing.T) {
	stub := &stubResolver{name: "aniweek", result: &types.ResolveResult{}}
	h, _ := newTestHandlers(t, stub)

	rec := serve(h, httptest.NewRequest(http.MethodGet,
		"/api/resolve?url=https://aniweek.com/watch/1&quality=720&h_User_Agent=custom", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if stub.gotOpts.PreferredQuality != "720" {
		t.Errorf("preferred quality = %q, want override", stub.gotOpts.PreferredQuality)
	}
	if stub.gotOpts.Headers["User-Agent"] != "custom" {
		t.Errorf("headers = %v, want h_ param mapped", stub.gotOpts.Headers)
	}
}

func TestHandleResolve_MissingURL(t *testing.T) {
	h, _ := newTestHandlers(t, &stubResolver{name: "aniweek", result: &types.ResolveResult{}})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/resolve", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleResolve_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandlers(t, &stubResolver{name: "aniweek", result: &types.ResolveResult{}})

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/resolve?url=x", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleResolve_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"form not found", resolver.ErrFormNotFound, http.StatusUnprocessableEntity},
		{"embed not found", resolver.ErrEmbedNotFound, http.StatusUnprocessableEntity},
		{"descriptor decode", fmt.Errorf("wrap: %w", resolver.ErrDescriptorDecode), http.StatusUnprocessableEntity},
		{"upstream failure", errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandlers(t, &stubResolver{name: "aniweek", err: tt.err})

			rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/resolve?url=https://aniweek.com/watch/1", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			payload := decodeBody(t, rec)
			if msg, _ := payload["error"].(string); msg == "" {
				t.Error("error body missing")
			}
		})
	}
}

func TestHandleSession(t *testing.T) {
	h, store := newTestHandlers(t, &stubResolver{name: "aniweek", result: &types.ResolveResult{}})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["cookie_present"] != false {
		t.Errorf("cookie_present = %v, want false", payload["cookie_present"])
	}

	if err := store.SetCookie("PHPSESSID=abc"); err != nil {
		t.Fatalf("SetCookie: %v", err)
	}
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	if payload := decodeBody(t, rec); payload["cookie_present"] != true {
		t.Errorf("cookie_present = %v, want true", payload["cookie_present"])
	}

	rec = serve(h, httptest.NewRequest(http.MethodDelete, "/api/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if _, ok := store.Cookie(); ok {
		t.Error("cookie survived DELETE")
	}
}

func TestHandleSession_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandlers(t, &stubResolver{name: "aniweek", result: &types.ResolveResult{}})

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/session", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestHandlers(t, &stubResolver{name: "aniweek", result: &types.ResolveResult{}})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["status"] != "ok" {
		t.Errorf("status body = %v", payload["status"])
	}
}

func TestHandleInfo(t *testing.T) {
	h, _ := newTestHandlers(t, &stubResolver{name: "aniweek", result: &types.ResolveResult{}})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/info", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	resolvers, _ := payload["resolvers"].([]any)
	if len(resolvers) != 1 || resolvers[0] != "aniweek" {
		t.Errorf("resolvers = %v", payload["resolvers"])
	}

	// Unknown paths under the catch-all route are 404.
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}
