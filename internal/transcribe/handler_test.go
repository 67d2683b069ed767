package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendezap/atendezap/pkg/logging"
)

type memWriter struct {
	saved map[string]string
}

func (m *memWriter) SaveTranscription(_ context.Context, messageID, transcript string) error {
	if m.saved == nil {
		m.saved = map[string]string{}
	}
	m.saved[messageID] = transcript
	return nil
}

// speechServer fakes the provider endpoint with a fixed response body.
func speechServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestHandler(t *testing.T, provider *httptest.Server, writer transcriptWriter) *Handler {
	t.Helper()
	client := NewWhisperClient(WithBaseURL(provider.URL))
	engine := NewEngine(client, logging.Default(), 5*time.Second)
	return NewHandler(engine, writer, "default-key", "test-agent", logging.Default())
}

func postTranscribe(t *testing.T, h *Handler, reqBody transcribeRequest) (*httptest.ResponseRecorder, transcribeResponse) {
	t.Helper()
	payload, err := json.Marshal(reqBody)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/functions/transcribe", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	h.Transcribe(w, req)

	var resp transcribeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w, resp
}

func TestTranscribeHandlerSuccessWritesBack(t *testing.T) {
	provider := speechServer(t, http.StatusOK, `{"text":"Olá mundo","language":"pt","duration":2.1}`)
	defer provider.Close()
	writer := &memWriter{}
	h := newTestHandler(t, provider, writer)

	w, resp := postTranscribe(t, h, transcribeRequest{
		Audio:     base64.StdEncoding.EncodeToString([]byte("OggS fake audio")),
		MessageID: "wamid-42",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Text)
	assert.Equal(t, "Olá mundo", *resp.Text)
	assert.Equal(t, "ogg", resp.AudioFormat)
	assert.Equal(t, "Olá mundo", writer.saved["wamid-42"], "function writes transcript directly")
}

func TestTranscribeHandlerNoSpeechIsRecoverable(t *testing.T) {
	provider := speechServer(t, http.StatusOK, `{"text":"Legendas pela comunidade Amara.org"}`)
	defer provider.Close()
	h := newTestHandler(t, provider, &memWriter{})

	w, resp := postTranscribe(t, h, transcribeRequest{
		Audio: base64.StdEncoding.EncodeToString([]byte("whatever bytes")),
	})

	assert.Equal(t, http.StatusOK, w.Code, "no speech is deliberately not a 4xx/5xx")
	assert.False(t, resp.Success)
	assert.True(t, resp.ShouldSaveAudio)
	assert.Nil(t, resp.Text)
}

func TestTranscribeHandlerProviderDown(t *testing.T) {
	provider := speechServer(t, http.StatusInternalServerError, `{"error":"overloaded"}`)
	defer provider.Close()
	h := newTestHandler(t, provider, &memWriter{})

	w, resp := postTranscribe(t, h, transcribeRequest{
		Audio: base64.StdEncoding.EncodeToString([]byte("bytes")),
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestTranscribeHandlerValidation(t *testing.T) {
	provider := speechServer(t, http.StatusOK, `{}`)
	defer provider.Close()
	h := newTestHandler(t, provider, &memWriter{})

	w, resp := postTranscribe(t, h, transcribeRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Error, "audio")

	w, resp = postTranscribe(t, h, transcribeRequest{Audio: "!not-base64!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestTranscribeHandlerDownloadsFromURL(t *testing.T) {
	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("RIFF....WAVE raw bytes"))
	}))
	defer audioSrv.Close()

	provider := speechServer(t, http.StatusOK, `{"text":"áudio remoto","language":"pt"}`)
	defer provider.Close()
	h := newTestHandler(t, provider, &memWriter{})

	w, resp := postTranscribe(t, h, transcribeRequest{AudioURL: audioSrv.URL})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "wav", resp.AudioFormat)
}
