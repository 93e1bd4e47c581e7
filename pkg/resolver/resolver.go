// Package resolver implements the stream resolution pipelines.
// The Aniweek pipeline navigates the site's hidden-form/iframe/cookie/hash
// indirection chain to the real video source, and turns fragmented
// chunk-page sources into a synthesized playlist on the way.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"aniweek-resolver-go/pkg/interfaces"
	"aniweek-resolver-go/pkg/logging"
	"aniweek-resolver-go/pkg/session"
	"aniweek-resolver-go/pkg/types"
	"aniweek-resolver-go/pkg/urlutil"

	"github.com/PuerkitoBio/goquery"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

// Config carries the resolver's tunable knobs. Zero values fall back to the
// documented defaults.
type Config struct {
	SiteBaseURL     string
	PartHardCap     int
	ProbeTimeout    time.Duration
	TargetDuration  int
	SegmentDuration float64
}

func (c Config) withDefaults() Config {
	if c.SiteBaseURL == "" {
		c.SiteBaseURL = "https://aniweek.com"
	}
	if c.PartHardCap <= 0 {
		c.PartHardCap = 4096
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
	if c.TargetDuration <= 0 {
		c.TargetDuration = 15
	}
	if c.SegmentDuration <= 0 {
		c.SegmentDuration = 4.0
	}
	return c
}

// AniweekResolver resolves Aniweek content pages into stream candidates.
type AniweekResolver struct {
	client    interfaces.HTTPClient
	store     interfaces.SessionStore
	extractor interfaces.PlaylistExtractor
	log       *logging.Logger
	cfg       Config
}

// NewAniweekResolver creates a new Aniweek resolver.
func NewAniweekResolver(client interfaces.HTTPClient, store interfaces.SessionStore, extractor interfaces.PlaylistExtractor, log *logging.Logger, cfg Config) *AniweekResolver {
	return &AniweekResolver{
		client:    client,
		store:     store,
		extractor: extractor,
		log:       log.WithComponent("aniweek-resolver"),
		cfg:       cfg.withDefaults(),
	}
}

// Name returns the resolver name.
func (r *AniweekResolver) Name() string {
	return "aniweek"
}

// CanResolve returns true for Aniweek content pages.
func (r *AniweekResolver) CanResolve(urlStr string) bool {
	lower := strings.ToLower(urlStr)
	return strings.Contains(lower, hostOf(r.cfg.SiteBaseURL)) ||
		strings.Contains(lower, "aniweek.")
}

// Resolve runs the full pipeline: fetch page, submit the hidden form,
// extract the embed, obtain the descriptor, then either delegate the real
// source or enumerate a chunk sequence and synthesize a playlist for it.
// Failures before the descriptor are fatal; probe failures during
// enumeration only stop the enumeration.
func (r *AniweekResolver) Resolve(ctx context.Context, pageURL string, opts interfaces.ResolveOptions) (*types.ResolveResult, error) {
	base := r.baseHeaders(opts.Headers)

	doc, err := r.fetchDocument(ctx, pageURL, base)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content page: %w", err)
	}

	form, err := findPlayerForm(doc)
	if err != nil {
		return nil, err
	}

	playerDoc, err := r.submitPlayerForm(ctx, form, base)
	if err != nil {
		return nil, err
	}

	embedURL := playerDoc.Find("iframe").First().AttrOr("src", "")
	if embedURL == "" {
		return nil, ErrEmbedNotFound
	}
	r.log.WithHost(hostOf(embedURL)).Debug("extracted player embed", "url", embedURL)

	embedDoc, embedResp, err := r.fetchEmbed(ctx, embedURL, base)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch embed: %w", err)
	}

	subtitles := extractSubtitles(embedDoc)
	cookie := r.sessionCookie(embedResp)
	token := hashToken(embedURL)

	descriptor, err := r.fetchDescriptor(ctx, base, embedURL, token, cookie)
	if err != nil {
		return nil, err
	}

	result := &types.ResolveResult{
		Candidates: []types.StreamCandidate{},
		Subtitles:  subtitles,
	}
	if !descriptor.HLS {
		r.log.Debug("descriptor is not HLS, no candidates", "url", pageURL)
		return result, nil
	}

	origin := urlutil.GetSchemeHost(embedURL)
	playlistHeaders := r.playlistHeaders(base, hostOf(embedURL), embedURL, cookie)
	videoHeaders := r.videoHeaderGen(base, origin)

	extractOpts := interfaces.ExtractOptions{
		PlaylistHeaders: playlistHeaders,
		VideoHeaders:    videoHeaders,
	}

	if seed, ok := DetectPartSeed(descriptor.VideoSource); ok {
		parts := EnumerateParts(ctx, r.client, seed, playlistHeaders, EnumerateOptions{
			HardCap:      r.cfg.PartHardCap,
			ProbeTimeout: r.cfg.ProbeTimeout,
			Log:          r.log,
		})
		if len(parts) == 0 {
			return result, nil
		}

		merged := SynthesizePlaylist(parts, r.cfg.TargetDuration, r.cfg.SegmentDuration)
		// Reserved synthetic address; the playlist itself travels in-memory.
		mergedURL := origin + "/__merged__/" + token + ".m3u8"

		extractOpts.QualityHint = qualityLabel(seed.Prefix)
		candidates, err := r.extractor.ExtractFromDocument([]byte(merged), mergedURL, extractOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to extract synthesized playlist: %w", err)
		}
		result.Candidates = candidates
	} else {
		candidates, err := r.extractor.ExtractFromURL(ctx, descriptor.VideoSource, extractOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to extract playlist: %w", err)
		}
		result.Candidates = candidates
	}

	sortCandidates(result.Candidates, opts.PreferredQuality)
	return result, nil
}

// Close releases resources.
func (r *AniweekResolver) Close() error {
	return nil
}

// submitPlayerForm issues the hidden form POST and parses the player page.
func (r *AniweekResolver) submitPlayerForm(ctx context.Context, form *formSubmission, base map[string]string) (*goquery.Document, error) {
	headers := mergeHeaders(base, map[string]string{
		"Accept":       acceptHTML,
		"Content-Type": "application/x-www-form-urlencoded",
		"Host":         hostOf(form.Action),
		"Origin":       r.cfg.SiteBaseURL,
		"Referer":      r.cfg.SiteBaseURL + "/",
	})

	resp, err := r.doRequest(ctx, http.MethodPost, form.Action, headers, strings.NewReader(form.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to submit player form: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse player page: %w", err)
	}
	return doc, nil
}

// fetchEmbed fetches the player iframe with document-navigation headers and
// returns both the parsed document and the response, whose Set-Cookie header
// seeds the session on first contact.
func (r *AniweekResolver) fetchEmbed(ctx context.Context, embedURL string, base map[string]string) (*goquery.Document, *http.Response, error) {
	headers := mergeHeaders(base, map[string]string{
		"Accept":                    acceptHTML,
		"Host":                      hostOf(embedURL),
		"Referer":                   r.cfg.SiteBaseURL + "/",
		"Sec-Fetch-Dest":            "iframe",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "cross-site",
		"Upgrade-Insecure-Requests": "1",
	})

	resp, err := r.doRequest(ctx, http.MethodGet, embedURL, headers, nil)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, nil, err
	}
	return doc, resp, nil
}

// sessionCookie returns the stored session cookie, deriving and persisting
// one from the embed response's Set-Cookie header when the store is empty.
// The full header value is stored; only the primary pair is ever sent.
func (r *AniweekResolver) sessionCookie(embedResp *http.Response) string {
	if value, ok, err := r.store.Get(session.CookieKey); err == nil && ok {
		return value
	}

	value := embedResp.Header.Get("Set-Cookie")
	if value == "" {
		r.log.Warn("embed response carried no session cookie")
		return ""
	}
	if err := r.store.Set(session.CookieKey, value); err != nil {
		r.log.WithError(err).Warn("failed to persist session cookie")
	}
	return value
}

// fetchDescriptor performs the backend getVideo call keyed on the hash
// token and decodes the source descriptor.
func (r *AniweekResolver) fetchDescriptor(ctx context.Context, base map[string]string, embedURL, token, cookie string) (*types.SourceDescriptor, error) {
	origin := urlutil.GetSchemeHost(embedURL)
	endpoint := origin + "/player/index.php?data=" + token + "&do=getVideo"
	body := "hash=" + token + "&r=" + url.QueryEscape(r.cfg.SiteBaseURL+"/")

	headers := mergeHeaders(base, map[string]string{
		"Accept":           "*/*",
		"Content-Type":     "application/x-www-form-urlencoded; charset=UTF-8",
		"Origin":           origin,
		"Referer":          embedURL,
		"X-Requested-With": "XMLHttpRequest",
	})
	if cookie != "" {
		headers["Cookie"] = primaryCookie(cookie)
	}

	resp, err := r.doRequest(ctx, http.MethodPost, endpoint, headers, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch descriptor: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	// Both fields are required; anything else is a decode error.
	var decoded struct {
		HLS         *bool   `json:"hls"`
		VideoSource *string `json:"videoSource"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDescriptorDecode, err)
	}
	if decoded.HLS == nil || decoded.VideoSource == nil {
		return nil, fmt.Errorf("%w: missing required field", ErrDescriptorDecode)
	}

	return &types.SourceDescriptor{
		HLS:         *decoded.HLS,
		VideoSource: *decoded.VideoSource,
	}, nil
}

// playlistHeaders builds the headers used for playlist fetches and chunk
// probes on the player host.
func (r *AniweekResolver) playlistHeaders(base map[string]string, host, embedURL, cookie string) map[string]string {
	headers := mergeHeaders(base, map[string]string{
		"Accept":         "*/*",
		"Host":           host,
		"Referer":        embedURL,
		"Sec-Fetch-Dest": "empty",
		"Sec-Fetch-Mode": "cors",
		"Sec-Fetch-Site": "same-origin",
	})
	if cookie != "" {
		headers["Cookie"] = primaryCookie(cookie)
	}
	return headers
}

// videoHeaderGen produces the per-candidate playback headers. An empty
// referer falls back to the video address's own directory.
func (r *AniweekResolver) videoHeaderGen(base map[string]string, origin string) interfaces.HeaderGen {
	return func(referer, videoURL string) map[string]string {
		if referer == "" {
			referer = urlutil.GetBaseDirectory(videoURL)
		}
		return mergeHeaders(base, map[string]string{
			"Accept":  "*/*",
			"Origin":  origin,
			"Referer": referer,
		})
	}
}

// baseHeaders returns the default headers merged with caller overrides.
func (r *AniweekResolver) baseHeaders(extra map[string]string) map[string]string {
	headers := map[string]string{
		"User-Agent": defaultUserAgent,
	}
	for key, value := range extra {
		headers[key] = value
	}
	return headers
}

func (r *AniweekResolver) fetchDocument(ctx context.Context, urlStr string, headers map[string]string) (*goquery.Document, error) {
	resp, err := r.doRequest(ctx, http.MethodGet, urlStr, headers, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return goquery.NewDocumentFromReader(resp.Body)
}

func (r *AniweekResolver) doRequest(ctx context.Context, method, urlStr string, headers map[string]string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		if strings.EqualFold(key, "Host") {
			req.Host = value
			continue
		}
		req.Header.Set(key, value)
	}
	return r.client.Do(req)
}

// extractSubtitles reads the embedded playerjsSubtitle script payload when
// present. Zero or one track; absence is not an error.
func extractSubtitles(doc *goquery.Document) []types.SubtitleTrack {
	var tracks []types.SubtitleTrack
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := script.Text()
		if !strings.Contains(text, "playerjsSubtitle") {
			return true
		}
		value := substringBefore(substringAfter(text, `var playerjsSubtitle = "`), `"`)
		if value == "" || !strings.Contains(value, "https:") {
			return false
		}
		tracks = append(tracks, types.SubtitleTrack{
			URL:   "https:" + substringAfter(value, "https:"),
			Label: substringBefore(value, "https:"),
		})
		return false
	})
	return tracks
}

// hashToken derives the opaque backend token from the embed address. Two
// address shapes exist: a /video/<token> path or a data=<token> query key.
func hashToken(embedURL string) string {
	if strings.Contains(embedURL, "/video/") {
		return substringAfter(embedURL, "/video/")
	}
	return substringAfter(embedURL, "data=")
}

// primaryCookie keeps only the primary name=value pair of a Set-Cookie
// value, discarding secondary attributes.
func primaryCookie(value string) string {
	return substringBefore(value, ";")
}

// qualityLabel turns a chunk prefix like "720p_" into a quality label.
func qualityLabel(prefix string) string {
	return strings.ToLower(strings.TrimSuffix(prefix, "_"))
}

// sortCandidates orders candidates best-first: candidates whose label
// matches the preferred quality come first, ties broken by numeric quality
// descending.
func sortCandidates(candidates []types.StreamCandidate, preferred string) {
	rank := func(c types.StreamCandidate) (int, int) {
		match := 0
		if preferred != "" && strings.Contains(c.Quality, preferred) {
			match = 1
		}
		num, _ := strconv.Atoi(substringBefore(c.Quality, "p"))
		return match, num
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		mi, ni := rank(candidates[i])
		mj, nj := rank(candidates[j])
		if mi != mj {
			return mi > mj
		}
		return ni > nj
	})
}

// mergeHeaders overlays extra on top of a copy of base.
func mergeHeaders(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range extra {
		merged[key] = value
	}
	return merged
}

// substringAfter returns the part of s after the first occurrence of sep,
// or s unchanged when sep is absent.
func substringAfter(s, sep string) string {
	if idx := strings.Index(s, sep); idx >= 0 {
		return s[idx+len(sep):]
	}
	return s
}

// substringBefore returns the part of s before the first occurrence of sep,
// or s unchanged when sep is absent.
func substringBefore(s, sep string) string {
	if idx := strings.Index(s, sep); idx >= 0 {
		return s[:idx]
	}
	return s
}

// hostOf extracts the host from a URL, or "" when it cannot be parsed.
func hostOf(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return parsed.Host
}

var _ interfaces.Resolver = (*AniweekResolver)(nil)
