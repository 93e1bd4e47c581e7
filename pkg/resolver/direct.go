package resolver

import (
	"context"
	"strings"

	"aniweek-resolver-go/pkg/interfaces"
	"aniweek-resolver-go/pkg/logging"
	"aniweek-resolver-go/pkg/types"
	"aniweek-resolver-go/pkg/urlutil"
)

// DirectResolver is the fallback: it treats the input address as a playlist
// and hands it straight to the extraction collaborator.
type DirectResolver struct {
	extractor interfaces.PlaylistExtractor
	log       *logging.Logger
}

// NewDirectResolver creates a new direct resolver.
func NewDirectResolver(extractor interfaces.PlaylistExtractor, log *logging.Logger) *DirectResolver {
	return &DirectResolver{
		extractor: extractor,
		log:       log.WithComponent("direct-resolver"),
	}
}

// Name returns the resolver name.
func (r *DirectResolver) Name() string {
	return "direct"
}

// CanResolve always returns false as this is the fallback.
func (r *DirectResolver) CanResolve(url string) bool {
	return false
}

// Resolve delegates the address to the playlist extractor with basic
// same-origin headers.
func (r *DirectResolver) Resolve(ctx context.Context, urlStr string, opts interfaces.ResolveOptions) (*types.ResolveResult, error) {
	headers := map[string]string{
		"User-Agent": defaultUserAgent,
	}
	if origin := urlutil.GetSchemeHost(urlStr); origin != "" {
		headers["Origin"] = origin
		headers["Referer"] = origin + "/"
	}
	for key, value := range opts.Headers {
		headers[key] = value
	}

	candidates, err := r.extractor.ExtractFromURL(ctx, urlStr, interfaces.ExtractOptions{
		PlaylistHeaders: headers,
	})
	if err != nil {
		if strings.Contains(strings.ToLower(urlStr), ".m3u8") {
			return nil, err
		}
		// Not a playlist; pass the address through untouched.
		candidates = []types.StreamCandidate{{URL: urlStr, Quality: "default", Headers: headers}}
	}

	sortCandidates(candidates, opts.PreferredQuality)
	return &types.ResolveResult{Candidates: candidates}, nil
}

// Close releases resources.
func (r *DirectResolver) Close() error {
	return nil
}

var _ interfaces.Resolver = (*DirectResolver)(nil)
