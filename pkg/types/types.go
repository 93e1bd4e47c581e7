// Package types defines core domain types used throughout the application.
package types

// SourceDescriptor is the backend's answer to the getVideo call: whether the
// source is an HLS stream and where it lives. Produced exactly once per
// resolution attempt.
type SourceDescriptor struct {
	HLS         bool   `json:"hls"`
	VideoSource string `json:"videoSource"`
}

// PartSeed describes the start of a fragmented chunk sequence, derived from a
// source address matching the 720p_/1080p_ wrapper-page naming convention.
type PartSeed struct {
	Base   string // base address, ends in "/"
	Prefix string // "720p_" or "1080p_" as matched (case preserved)
	Start  int    // index of the first chunk
}

// StreamCandidate is one playable stream option.
type StreamCandidate struct {
	URL     string            `json:"url"`
	Quality string            `json:"quality"`
	Headers map[string]string `json:"headers,omitempty"`
	// Playlist holds an in-memory media playlist for candidates that do not
	// exist as a remote resource (synthesized from a chunk sequence). When
	// set, consumers should play this document instead of fetching URL.
	Playlist string `json:"playlist,omitempty"`
}

// SubtitleTrack is a subtitle address with a display label.
type SubtitleTrack struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// ResolveResult is the outcome of one resolution call. An empty candidate
// list means "no playable stream found" and is not an error.
type ResolveResult struct {
	Candidates []StreamCandidate `json:"candidates"`
	Subtitles  []SubtitleTrack   `json:"subtitles,omitempty"`
}
