package transcribe

import (
	"strings"
	"unicode"
)

// placeholderCaptions are boilerplate strings some speech backends return
// instead of an error when no speech is detected. Matching is
// case-insensitive on the trimmed text.
var placeholderCaptions = []string{
	"legendas pela comunidade amara.org",
	"legendado pela comunidade amara.org",
	"subtitles by the amara.org community",
	"amara.org",
	"www.youtube.com",
	"obrigado por assistir",
}

// ValidTranscript reports whether text is a usable transcription: not
// empty, not punctuation-only, and not a known placeholder caption.
func ValidTranscript(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, placeholder := range placeholderCaptions {
		if lower == placeholder || strings.Contains(lower, placeholder) {
			return false
		}
	}

	for _, r := range trimmed {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
