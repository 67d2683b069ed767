package webhook

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFullPayload(t *testing.T) {
	data := &EventData{
		KeyID:            "3EB0ABC123",
		KeyRemoteJid:     "5511999998888@s.whatsapp.net",
		KeyFromMe:        false,
		PushName:         "joão silva",
		MessageType:      "text",
		MessageTimestamp: 1700000000,
		Content:          json.RawMessage(`{"text":"Olá"}`),
	}

	msg := Normalize(data)

	assert.Equal(t, "3EB0ABC123", msg.MessageID)
	assert.Equal(t, "5511999998888@s.whatsapp.net", msg.ChatID)
	assert.False(t, msg.FromMe)
	assert.Equal(t, "Olá", msg.Content)
	assert.Equal(t, "text", msg.MessageType)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msg.Timestamp)
	assert.Equal(t, "João Silva", msg.ContactName)
	assert.Equal(t, "5511999998888", msg.PhoneNumber)
}

func TestNormalizeDefaults(t *testing.T) {
	msg := Normalize(&EventData{KeyRemoteJid: "5511988887777@s.whatsapp.net"})

	assert.True(t, strings.HasPrefix(msg.MessageID, "msg_"))
	assert.Equal(t, "text", msg.MessageType)
	assert.Empty(t, msg.Content)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, 5*time.Second)
}

func TestNormalizeNilData(t *testing.T) {
	msg := Normalize(nil)
	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, "text", msg.MessageType)
}

func TestNormalizeStringContent(t *testing.T) {
	msg := Normalize(&EventData{Content: json.RawMessage(`"plain body"`)})
	assert.Equal(t, "plain body", msg.Content)
}

func TestNormalizeContactNameFallsBackToPhone(t *testing.T) {
	cases := []struct {
		name     string
		pushName string
		jid      string
		want     string
	}{
		{"empty push name keeps long numbers raw", "", "5511999998888@s.whatsapp.net", "5511999998888"},
		{"push name with at sign", "user@host", "1199998888@s.whatsapp.net", "(11) 9999-8888"},
		{"numeric push name", "5511999998888", "1199998888@s.whatsapp.net", "(11) 9999-8888"},
		{"odd length passes through", "", "123@s.whatsapp.net", "123"},
	}
	for _, tc := range cases {
		msg := Normalize(&EventData{PushName: tc.pushName, KeyRemoteJid: tc.jid})
		assert.Equal(t, tc.want, msg.ContactName, tc.name)
	}
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "(11) 9999-8888", FormatPhone("1199998888"))
	assert.Equal(t, "(11) 99999-8888", FormatPhone("11999998888"))
	assert.Equal(t, "12345", FormatPhone("12345"))
}

func TestTextContentMalformed(t *testing.T) {
	d := &EventData{Content: json.RawMessage(`{"broken`)}
	assert.Empty(t, d.TextContent())
}
