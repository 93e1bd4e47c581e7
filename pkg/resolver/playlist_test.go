package resolver

import (
	"strings"
	"testing"
)

func TestSynthesizePlaylist_SingleChunk(t *testing.T) {
	got := SynthesizePlaylist([]string{"https://cdn.example/x/720p_000.html"}, 15, 4.0)

	want := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-TARGETDURATION:15\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:4.000,\n" +
		"https://cdn.example/x/720p_000.html\n" +
		"#EXT-X-ENDLIST\n"
	if got != want {
		t.Errorf("playlist mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestSynthesizePlaylist_DiscontinuityBetweenChunks(t *testing.T) {
	parts := []string{
		"https://cdn.example/x/720p_000.html",
		"https://cdn.example/x/720p_001.html",
		"https://cdn.example/x/720p_002.html",
	}
	got := SynthesizePlaylist(parts, 15, 4.0)

	if n := strings.Count(got, "#EXT-X-DISCONTINUITY\n"); n != len(parts)-1 {
		t.Errorf("discontinuity count = %d, want %d", n, len(parts)-1)
	}
	if n := strings.Count(got, "#EXTINF:"); n != len(parts) {
		t.Errorf("EXTINF count = %d, want %d", n, len(parts))
	}
	if strings.Index(got, "#EXT-X-DISCONTINUITY") < strings.Index(got, "720p_000.html") {
		t.Error("discontinuity marker appeared before the first chunk")
	}
	if !strings.HasSuffix(got, "#EXT-X-ENDLIST\n") {
		t.Error("playlist does not end with ENDLIST")
	}

	// Chunk order preserved.
	prev := -1
	for _, part := range parts {
		idx := strings.Index(got, part)
		if idx < 0 {
			t.Fatalf("chunk %q missing from playlist", part)
		}
		if idx < prev {
			t.Errorf("chunk %q out of order", part)
		}
		prev = idx
	}
}

func TestSynthesizePlaylist_Deterministic(t *testing.T) {
	parts := []string{
		"https://cdn.example/x/1080p_004.html",
		"https://cdn.example/x/1080p_005.html",
	}
	first := SynthesizePlaylist(parts, 10, 6.5)
	second := SynthesizePlaylist(parts, 10, 6.5)
	if first != second {
		t.Error("identical inputs produced different playlists")
	}
	if !strings.Contains(first, "#EXT-X-TARGETDURATION:10\n") {
		t.Error("target duration not carried into playlist")
	}
	if !strings.Contains(first, "#EXTINF:6.500,\n") {
		t.Error("segment duration not formatted with three decimals")
	}
}
