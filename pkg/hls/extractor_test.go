package hls

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"aniweek-resolver-go/pkg/interfaces"
	"aniweek-resolver-go/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New("error", false, io.Discard)
}

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=1280x720
720/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2000000,RESOLUTION=1920x1080
https://cdn.example/abs/1080/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=300000
low/index.m3u8
`

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:15
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:4.000,
https://cdn.example/x/720p_000.html
#EXT-X-DISCONTINUITY
#EXTINF:4.000,
https://cdn.example/x/720p_001.html
#EXT-X-ENDLIST
`

func TestExtractFromDocument_Master(t *testing.T) {
	e := New(&http.Client{}, testLogger())

	candidates, err := e.ExtractFromDocument([]byte(masterPlaylist), "https://cdn.example/base/master.m3u8", interfaces.ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractFromDocument: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(candidates))
	}

	if candidates[0].URL != "https://cdn.example/base/720/index.m3u8" {
		t.Errorf("relative variant not resolved: %q", candidates[0].URL)
	}
	if candidates[0].Quality != "720p" {
		t.Errorf("quality = %q, want 720p", candidates[0].Quality)
	}
	if candidates[1].URL != "https://cdn.example/abs/1080/index.m3u8" {
		t.Errorf("absolute variant rewritten: %q", candidates[1].URL)
	}
	if candidates[1].Quality != "1080p" {
		t.Errorf("quality = %q, want 1080p", candidates[1].Quality)
	}
	// No resolution, no name: bandwidth label.
	if candidates[2].Quality != "300000bps" {
		t.Errorf("quality = %q, want 300000bps", candidates[2].Quality)
	}
	for _, c := range candidates {
		if c.Playlist != "" {
			t.Errorf("master variant %q carries an inline playlist", c.URL)
		}
	}
}

func TestExtractFromDocument_Media(t *testing.T) {
	e := New(&http.Client{}, testLogger())

	opts := interfaces.ExtractOptions{QualityHint: "1080p"}
	candidates, err := e.ExtractFromDocument([]byte(mediaPlaylist), "https://player.example/__merged__/tok.m3u8", opts)
	if err != nil {
		t.Fatalf("ExtractFromDocument: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}

	c := candidates[0]
	if c.URL != "https://player.example/__merged__/tok.m3u8" {
		t.Errorf("URL = %q", c.URL)
	}
	if c.Quality != "1080p" {
		t.Errorf("quality = %q, want hint", c.Quality)
	}
	if c.Playlist != mediaPlaylist {
		t.Errorf("inline playlist not carried:\n%s", c.Playlist)
	}
}

func TestExtractFromDocument_MediaDefaultQuality(t *testing.T) {
	e := New(&http.Client{}, testLogger())

	candidates, err := e.ExtractFromDocument([]byte(mediaPlaylist), "https://cdn.example/list.m3u8", interfaces.ExtractOptions{})
	if err != nil {
		t.Fatalf("ExtractFromDocument: %v", err)
	}
	if candidates[0].Quality != "default" {
		t.Errorf("quality = %q, want default", candidates[0].Quality)
	}
}

func TestExtractFromDocument_VideoHeaders(t *testing.T) {
	e := New(&http.Client{}, testLogger())

	opts := interfaces.ExtractOptions{
		PlaylistHeaders: map[string]string{"Cookie": "sid=1"},
		VideoHeaders: func(referer, videoURL string) map[string]string {
			return map[string]string{"Referer": "gen:" + videoURL}
		},
	}
	candidates, err := e.ExtractFromDocument([]byte(masterPlaylist), "https://cdn.example/base/master.m3u8", opts)
	if err != nil {
		t.Fatalf("ExtractFromDocument: %v", err)
	}
	if got := candidates[0].Headers["Referer"]; got != "gen:"+candidates[0].URL {
		t.Errorf("generated Referer = %q", got)
	}
	if _, ok := candidates[0].Headers["Cookie"]; ok {
		t.Error("playlist headers leaked into generated video headers")
	}
}

func TestExtractFromDocument_InheritsPlaylistHeaders(t *testing.T) {
	e := New(&http.Client{}, testLogger())

	opts := interfaces.ExtractOptions{
		PlaylistHeaders: map[string]string{"Cookie": "sid=1", "Referer": "https://player.example/"},
	}
	candidates, err := e.ExtractFromDocument([]byte(mediaPlaylist), "https://cdn.example/list.m3u8", opts)
	if err != nil {
		t.Fatalf("ExtractFromDocument: %v", err)
	}
	if candidates[0].Headers["Cookie"] != "sid=1" {
		t.Errorf("headers = %v, want inherited playlist headers", candidates[0].Headers)
	}
}

func TestExtractFromURL(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		io.WriteString(w, masterPlaylist)
	}))
	defer server.Close()

	e := New(&http.Client{}, testLogger())
	candidates, err := e.ExtractFromURL(context.Background(), server.URL+"/master.m3u8", interfaces.ExtractOptions{
		PlaylistHeaders: map[string]string{"Cookie": "sid=1"},
	})
	if err != nil {
		t.Fatalf("ExtractFromURL: %v", err)
	}
	if gotCookie != "sid=1" {
		t.Errorf("playlist fetch Cookie = %q", gotCookie)
	}
	if len(candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(candidates))
	}
	if candidates[0].URL != server.URL+"/720/index.m3u8" {
		t.Errorf("relative variant resolved to %q", candidates[0].URL)
	}
	// Remote media playlists are never inlined.
	if candidates[0].Playlist != "" {
		t.Error("remote extraction produced an inline playlist")
	}
}

func TestExtractFromURL_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	e := New(&http.Client{}, testLogger())
	if _, err := e.ExtractFromURL(context.Background(), server.URL+"/master.m3u8", interfaces.ExtractOptions{}); err == nil {
		t.Error("expected error for non-200 playlist fetch")
	}
}

func TestExtractFromDocument_NotAPlaylist(t *testing.T) {
	e := New(&http.Client{}, testLogger())
	if _, err := e.ExtractFromDocument([]byte("<html>nope</html>"), "https://cdn.example/x", interfaces.ExtractOptions{}); err == nil {
		t.Error("expected error for a non-playlist document")
	}
}
