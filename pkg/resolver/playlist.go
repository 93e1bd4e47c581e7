package resolver

import (
	"strconv"
	"strings"
)

// SynthesizePlaylist builds a minimal HLS media playlist from an ordered
// chunk sequence. parts must be non-empty; callers short-circuit an empty
// sequence to "no candidates" instead of emitting a malformed playlist.
//
// A discontinuity marker precedes every chunk except the first: chunk
// boundaries are not known to carry compatible internal timestamps, so each
// chunk is treated as its own discontinuous segment. Output is deterministic
// for identical inputs.
func SynthesizePlaylist(parts []string, targetDuration int, segmentDuration float64) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	b.WriteString("#EXT-X-TARGETDURATION:")
	b.WriteString(strconv.Itoa(targetDuration))
	b.WriteByte('\n')
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")

	for i, part := range parts {
		if i > 0 {
			b.WriteString("#EXT-X-DISCONTINUITY\n")
		}
		// Fixed three decimal places, locale-invariant decimal point.
		b.WriteString("#EXTINF:")
		b.WriteString(strconv.FormatFloat(segmentDuration, 'f', 3, 64))
		b.WriteString(",\n")
		b.WriteString(part)
		b.WriteByte('\n')
	}

	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}
