package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormatOgg(t *testing.T) {
	data := append([]byte("OggS"), make([]byte, 44)...)
	det := DetectFormat(data)
	assert.Equal(t, FormatOgg, det.Format)
	assert.Equal(t, "audio/ogg", det.MimeType)
	assert.True(t, det.NeedsConversion)
}

func TestDetectFormatWav(t *testing.T) {
	data := append([]byte("RIFF"), []byte("....WAVEfmt ")...)
	det := DetectFormat(data)
	assert.Equal(t, FormatWav, det.Format)
	assert.False(t, det.NeedsConversion)
}

func TestDetectFormatMp3(t *testing.T) {
	det := DetectFormat([]byte("ID3\x04\x00"))
	assert.Equal(t, FormatMp3, det.Format)
	assert.False(t, det.NeedsConversion)

	// Bare MPEG frame sync, no ID3 tag.
	det = DetectFormat([]byte{0xFF, 0xFB, 0x90, 0x00})
	assert.Equal(t, FormatMp3, det.Format)
}

func TestDetectFormatWebm(t *testing.T) {
	det := DetectFormat([]byte{0x1A, 0x45, 0xDF, 0xA3, 0x01})
	assert.Equal(t, FormatWebm, det.Format)
	assert.False(t, det.NeedsConversion)
}

func TestDetectFormatUnknownFallsBackToOgg(t *testing.T) {
	for _, data := range [][]byte{nil, {}, {0x00}, []byte("random garbage bytes")} {
		det := DetectFormat(data)
		assert.Equal(t, FormatOgg, det.Format)
		assert.True(t, det.NeedsConversion)
	}
}
