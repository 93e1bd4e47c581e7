package resolver

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"aniweek-resolver-go/pkg/interfaces"
	"aniweek-resolver-go/pkg/logging"
	"aniweek-resolver-go/pkg/types"
)

// partPattern matches source addresses that are really the first page of a
// numbered chunk sequence: a base path ending in "/", a 720p_ or 1080p_
// prefix, exactly three decimal digits and a literal ".html". Anchored at
// both ends; scheme and prefix are case-insensitive.
var partPattern = regexp.MustCompile(`(?i)^(https?://[^"'<>]+/)((?:720|1080)p_)(\d{3})\.html$`)

// DetectPartSeed pattern-matches a source address against the fragmented
// chunk naming convention. ok is false when the address is an ordinary
// source, which is the common case and not an error.
func DetectPartSeed(source string) (types.PartSeed, bool) {
	m := partPattern.FindStringSubmatch(strings.TrimSpace(source))
	if m == nil {
		return types.PartSeed{}, false
	}
	start, err := strconv.Atoi(m[3])
	if err != nil {
		return types.PartSeed{}, false
	}
	return types.PartSeed{Base: m[1], Prefix: m[2], Start: start}, true
}

// EnumerateOptions bounds a chunk enumeration run.
type EnumerateOptions struct {
	// HardCap limits how many indices past the seed are probed. Zero or
	// negative falls back to 4096.
	HardCap int

	// ProbeTimeout bounds each individual probe. Zero falls back to 10s.
	ProbeTimeout time.Duration

	Log *logging.Logger
}

// EnumerateParts probes the chunk sequence starting at seed, strictly
// sequentially and in increasing index order, and returns the post-redirect
// final address of every chunk found before the first failure.
//
// Probe failures of any kind, including transport errors, are the stop
// signal and are never surfaced: the end of a finite chunk sequence is
// indistinguishable from a transient fault at this layer, so a flaky
// network can truncate a valid sequence. That fragility is accepted in
// exchange for determinism; adding retries here would change observable
// output.
func EnumerateParts(ctx context.Context, client interfaces.HTTPClient, seed types.PartSeed, headers map[string]string, opts EnumerateOptions) []string {
	hardCap := opts.HardCap
	if hardCap <= 0 {
		hardCap = 4096
	}
	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}

	var out []string
	for i := seed.Start; i-seed.Start < hardCap; i++ {
		candidate := fmt.Sprintf("%s%s%03d.html", seed.Base, seed.Prefix, i)

		finalURL, ok := probePart(ctx, client, candidate, headers, probeTimeout)
		if !ok {
			break
		}
		out = append(out, finalURL)
	}

	if opts.Log != nil {
		opts.Log.Debug("part enumeration finished", "base", seed.Base, "prefix", seed.Prefix, "start", seed.Start, "found", len(out))
	}
	return out
}

// probePart checks whether one chunk page exists. A HEAD request is tried
// first; a redirect answer that still carries a Location falls back to one
// full GET to confirm existence and learn the final address.
func probePart(ctx context.Context, client interfaces.HTTPClient, candidate string, headers map[string]string, timeout time.Duration) (string, bool) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := doProbe(probeCtx, client, http.MethodHead, candidate, headers)
	if err != nil {
		return "", false
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.Request.URL.String(), true

	case resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Header.Get("Location") != "":
		// Some chunk hosts refuse HEAD across the redirect; confirm with GET.
		getResp, err := doProbe(probeCtx, client, http.MethodGet, candidate, headers)
		if err != nil {
			return "", false
		}
		getResp.Body.Close()
		if getResp.StatusCode < 200 || getResp.StatusCode >= 300 {
			return "", false
		}
		return getResp.Request.URL.String(), true

	default:
		return "", false
	}
}

func doProbe(ctx context.Context, client interfaces.HTTPClient, method, urlStr string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return client.Do(req)
}
