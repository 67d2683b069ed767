package audio

import (
	"encoding/base64"
	"errors"
	"strings"
)

var (
	// ErrInvalidEncoding indicates the payload is not decodable base64.
	ErrInvalidEncoding = errors.New("audio: invalid base64 encoding")
	// ErrEmptyPayload indicates the payload decoded to zero bytes.
	ErrEmptyPayload = errors.New("audio: empty audio payload")
)

// decodeChunkSize bounds peak memory while decoding large voice notes.
// Must be a multiple of 4 so chunk boundaries fall on base64 quantums.
const decodeChunkSize = 32 * 1024

// DecodeBase64 decodes a possibly dirty base64 payload: data-URL prefixes
// are stripped, embedded whitespace is removed, and missing padding is
// repaired before decoding in fixed-size chunks.
func DecodeBase64(payload string) ([]byte, error) {
	cleaned := payload
	if idx := strings.Index(cleaned, "base64,"); idx >= 0 && strings.HasPrefix(cleaned, "data:") {
		cleaned = cleaned[idx+len("base64,"):]
	}
	cleaned = strings.Map(dropSpace, cleaned)

	switch len(cleaned) % 4 {
	case 1:
		// A remainder of one character can never be valid base64.
		return nil, ErrInvalidEncoding
	case 2:
		cleaned += "=="
	case 3:
		cleaned += "="
	}

	if !validAlphabet(cleaned) {
		return nil, ErrInvalidEncoding
	}

	out := make([]byte, 0, base64.StdEncoding.DecodedLen(len(cleaned)))
	buf := make([]byte, base64.StdEncoding.DecodedLen(decodeChunkSize))
	for start := 0; start < len(cleaned); start += decodeChunkSize {
		end := start + decodeChunkSize
		if end > len(cleaned) {
			end = len(cleaned)
		}
		n, err := base64.StdEncoding.Decode(buf, []byte(cleaned[start:end]))
		if err != nil {
			return nil, ErrInvalidEncoding
		}
		out = append(out, buf[:n]...)
	}

	if len(out) == 0 {
		return nil, ErrEmptyPayload
	}
	return out, nil
}

func dropSpace(r rune) rune {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return -1
	}
	return r
}

func validAlphabet(s string) bool {
	padding := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '=' {
			padding++
			continue
		}
		if padding > 0 {
			// Payload characters after padding are never valid.
			return false
		}
		valid := c >= 'A' && c <= 'Z' ||
			c >= 'a' && c <= 'z' ||
			c >= '0' && c <= '9' ||
			c == '+' || c == '/'
		if !valid {
			return false
		}
	}
	return padding <= 2
}
