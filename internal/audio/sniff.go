// Package audio provides format detection and payload decoding for
// voice-note media delivered by the WhatsApp gateway.
package audio

import "bytes"

// Format identifies an audio container recognized by the sniffer.
type Format string

const (
	FormatOgg  Format = "ogg"
	FormatWav  Format = "wav"
	FormatMp3  Format = "mp3"
	FormatWebm Format = "webm"
)

// Detection is the result of sniffing a byte buffer.
type Detection struct {
	Format          Format
	MimeType        string
	NeedsConversion bool
}

var (
	oggMagic  = []byte{0x4F, 0x67, 0x67, 0x53} // "OggS"
	riffMagic = []byte{0x52, 0x49, 0x46, 0x46} // "RIFF"
	id3Magic  = []byte{0x49, 0x44, 0x33}       // "ID3"
	ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
)

// SniffLen is how many leading bytes DetectFormat needs at most.
const SniffLen = 48

// DetectFormat classifies a decoded audio buffer by magic bytes.
// It is a best-effort sniff, not a demuxer: unrecognized input degrades
// to the ogg fallback rather than failing. Gateway voice notes are
// Opus-in-Ogg, which the speech provider may reject as-is, so ogg is
// flagged NeedsConversion for the caller's retry strategy.
func DetectFormat(data []byte) Detection {
	switch {
	case bytes.HasPrefix(data, oggMagic):
		return Detection{Format: FormatOgg, MimeType: "audio/ogg", NeedsConversion: true}
	case bytes.HasPrefix(data, riffMagic):
		return Detection{Format: FormatWav, MimeType: "audio/wav"}
	case bytes.HasPrefix(data, id3Magic):
		return Detection{Format: FormatMp3, MimeType: "audio/mpeg"}
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG frame sync without an ID3 tag.
		return Detection{Format: FormatMp3, MimeType: "audio/mpeg"}
	case bytes.HasPrefix(data, ebmlMagic):
		return Detection{Format: FormatWebm, MimeType: "audio/webm"}
	default:
		return Detection{Format: FormatOgg, MimeType: "audio/ogg", NeedsConversion: true}
	}
}

// MimeFor returns the declared mime type for a candidate format.
func MimeFor(f Format) string {
	switch f {
	case FormatWav:
		return "audio/wav"
	case FormatMp3:
		return "audio/mpeg"
	case FormatWebm:
		return "audio/webm"
	default:
		return "audio/ogg"
	}
}
