// Package payload splits document text into segments that fit the API's
// request size limits.
package payload

import "unicode/utf8"

const (
	// MaxBatchBytes is the largest ingest-batch text the API accepts.
	MaxBatchBytes = 400_000

	// SingleShotLimit is the largest text sent in a single ingest-text call.
	// Anything above it goes through ingest-start/batch/finish.
	SingleShotLimit = 1_048_576
)

// NeedsBatching reports whether text is too large for a single ingest-text call.
func NeedsBatching(text string) bool {
	return len(text) > SingleShotLimit
}

// Split divides text into ordered segments of at most maxBytes bytes each.
// Cuts are moved back to the nearest rune boundary, so multi-byte characters
// stay intact whenever maxBytes is at least as large as their encoding.
// Concatenating the result always reproduces text. Empty input yields nil.
// maxBytes below 1 is treated as 1.
func Split(text string, maxBytes int) []string {
	if text == "" {
		return nil
	}
	if maxBytes < 1 {
		maxBytes = 1
	}

	segments := make([]string, 0, len(text)/maxBytes+1)
	for len(text) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// A single rune wider than maxBytes.
			cut = maxBytes
		}
		segments = append(segments, text[:cut])
		text = text[cut:]
	}
	return append(segments, text)
}
