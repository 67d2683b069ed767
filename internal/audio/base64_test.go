package audio

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase64RoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte{0x4F, 0x67, 0x67, 0x53, 0xDE, 0xAD, 0xBE, 0xEF}, 5000)
	encoded := base64.StdEncoding.EncodeToString(original)

	decoded, err := DecodeBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeBase64DataURLPrefix(t *testing.T) {
	original := []byte("voice note payload")
	encoded := "data:audio/ogg;base64," + base64.StdEncoding.EncodeToString(original)

	decoded, err := DecodeBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeBase64EmbeddedWhitespace(t *testing.T) {
	original := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	encoded := base64.StdEncoding.EncodeToString(original)
	dirty := encoded[:4] + "\n  " + encoded[4:8] + "\t" + encoded[8:] + "\r\n"

	decoded, err := DecodeBase64(dirty)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeBase64RepairsMissingPadding(t *testing.T) {
	original := []byte("ab")
	encoded := base64.StdEncoding.EncodeToString(original) // "YWI="
	unpadded := encoded[:len(encoded)-1]

	decoded, err := DecodeBase64(unpadded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeBase64InvalidInputs(t *testing.T) {
	cases := map[string]string{
		"remainder one":         "YWJjZ",
		"bad characters":        "YW!j",
		"payload after padding": "YWI=Zg==",
		"too much padding":      "Y===",
	}
	for name, input := range cases {
		_, err := DecodeBase64(input)
		assert.ErrorIs(t, err, ErrInvalidEncoding, name)
	}
}

func TestDecodeBase64Empty(t *testing.T) {
	_, err := DecodeBase64("")
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
