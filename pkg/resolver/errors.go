package resolver

import "errors"

// Structural failures. Each one means a page no longer looks the way the
// pipeline assumes; all are fatal for the resolution attempt, never retried.
var (
	// ErrFormNotFound is returned when the content page carries no hidden
	// player form.
	ErrFormNotFound = errors.New("hidden player form not found")

	// ErrEmbedNotFound is returned when the form submission result carries
	// no player iframe.
	ErrEmbedNotFound = errors.New("player embed not found")

	// ErrDescriptorDecode is returned when the getVideo backend answers
	// with anything other than the expected {hls, videoSource} shape.
	ErrDescriptorDecode = errors.New("malformed video descriptor")
)
