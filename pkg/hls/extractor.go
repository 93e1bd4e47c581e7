// Package hls is the playlist extraction collaborator: it expands a
// playlist address, or an in-memory playlist document, into stream
// candidates with quality labels and playback headers.
package hls

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"aniweek-resolver-go/pkg/interfaces"
	"aniweek-resolver-go/pkg/logging"
	"aniweek-resolver-go/pkg/types"
	"aniweek-resolver-go/pkg/urlutil"

	"github.com/grafov/m3u8"
)

// Extractor parses HLS playlists with grafov/m3u8.
type Extractor struct {
	client interfaces.HTTPClient
	log    *logging.Logger
}

// New creates a new playlist extractor.
func New(client interfaces.HTTPClient, log *logging.Logger) *Extractor {
	return &Extractor{
		client: client,
		log:    log.WithComponent("hls-extractor"),
	}
}

// ExtractFromURL fetches a remote playlist and expands it into candidates.
// Master playlists yield one candidate per variant; media playlists yield a
// single candidate pointing at the playlist itself.
func (e *Extractor) ExtractFromURL(ctx context.Context, playlistURL string, opts interfaces.ExtractOptions) ([]types.StreamCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range opts.PlaylistHeaders {
		if strings.EqualFold(key, "Host") {
			req.Host = value
			continue
		}
		req.Header.Set(key, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("playlist fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	return e.extract(body, playlistURL, false, opts)
}

// ExtractFromDocument expands an in-memory playlist document. sourceURL
// names the document for relative-address resolution and candidate
// identity; no request is ever made to it. Media-playlist candidates carry
// the document inline so consumers never fetch the synthetic address.
func (e *Extractor) ExtractFromDocument(body []byte, sourceURL string, opts interfaces.ExtractOptions) ([]types.StreamCandidate, error) {
	return e.extract(body, sourceURL, true, opts)
}

func (e *Extractor) extract(body []byte, sourceURL string, inline bool, opts interfaces.ExtractOptions) ([]types.StreamCandidate, error) {
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, fmt.Errorf("failed to decode playlist: %w", err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		candidates := make([]types.StreamCandidate, 0, len(master.Variants))
		for _, variant := range master.Variants {
			if variant == nil || variant.URI == "" {
				continue
			}
			uri := urlutil.ResolveURL(variant.URI, sourceURL)
			candidates = append(candidates, types.StreamCandidate{
				URL:     uri,
				Quality: variantLabel(variant),
				Headers: e.headersFor(uri, opts),
			})
		}
		e.log.Debug("expanded master playlist", "url", sourceURL, "variants", len(candidates))
		return candidates, nil

	case m3u8.MEDIA:
		quality := opts.QualityHint
		if quality == "" {
			quality = "default"
		}
		candidate := types.StreamCandidate{
			URL:     sourceURL,
			Quality: quality,
			Headers: e.headersFor(sourceURL, opts),
		}
		if inline {
			candidate.Playlist = string(body)
		}
		return []types.StreamCandidate{candidate}, nil

	default:
		return nil, fmt.Errorf("unsupported playlist type for %s", sourceURL)
	}
}

// headersFor builds playback headers for one candidate.
func (e *Extractor) headersFor(videoURL string, opts interfaces.ExtractOptions) map[string]string {
	if opts.VideoHeaders != nil {
		return opts.VideoHeaders("", videoURL)
	}
	headers := make(map[string]string, len(opts.PlaylistHeaders))
	for key, value := range opts.PlaylistHeaders {
		headers[key] = value
	}
	return headers
}

// variantLabel derives a quality label from a master-playlist variant:
// the resolution height when present, the variant name otherwise.
func variantLabel(variant *m3u8.Variant) string {
	if variant.Resolution != "" {
		if idx := strings.LastIndex(variant.Resolution, "x"); idx >= 0 {
			if height, err := strconv.Atoi(variant.Resolution[idx+1:]); err == nil {
				return strconv.Itoa(height) + "p"
			}
		}
	}
	if variant.Name != "" {
		return variant.Name
	}
	if variant.Bandwidth > 0 {
		return strconv.FormatUint(uint64(variant.Bandwidth), 10) + "bps"
	}
	return "default"
}

var _ interfaces.PlaylistExtractor = (*Extractor)(nil)
