package webhook

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Message is the canonical record extracted from a gateway payload.
type Message struct {
	MessageID   string
	ChatID      string
	FromMe      bool
	Content     string
	MessageType string
	Timestamp   time.Time
	ContactName string
	PhoneNumber string

	// Media passthrough for audio processing.
	MediaKey   string
	MediaURL   string
	MimeType   string
	DirectPath string
	Base64     string
}

// Normalize converts a provider message object into a canonical Message.
// It never fails: absent fields get explicit defaults.
func Normalize(data *EventData) Message {
	if data == nil {
		data = &EventData{}
	}

	msg := Message{
		MessageID:   data.KeyID,
		ChatID:      data.KeyRemoteJid,
		FromMe:      data.KeyFromMe,
		Content:     data.TextContent(),
		MessageType: data.MessageType,
		MediaKey:    data.MediaKey,
		MediaURL:    data.MediaURL,
		MimeType:    data.MimeType,
		DirectPath:  data.DirectPath,
		Base64:      data.Base64,
	}

	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("msg_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	}
	if msg.MessageType == "" {
		msg.MessageType = "text"
	}
	if data.MessageTimestamp > 0 {
		msg.Timestamp = time.Unix(data.MessageTimestamp, 0).UTC()
	} else {
		msg.Timestamp = time.Now().UTC()
	}

	msg.PhoneNumber = digitsOnly(localPart(msg.ChatID))
	msg.ContactName = contactName(data.PushName, msg.PhoneNumber)

	return msg
}

// contactName prefers the sender's push name when it looks like a real name;
// otherwise it falls back to a formatted phone number.
func contactName(pushName, phone string) string {
	name := strings.TrimSpace(pushName)
	if name != "" && !strings.Contains(name, "@") && !isNumeric(name) {
		// Casers are stateful, so build one per call.
		return cases.Title(language.BrazilianPortuguese).String(strings.ToLower(name))
	}
	return FormatPhone(phone)
}

// FormatPhone applies Brazilian phone formatting: 10 digits become
// (DD) NNNN-NNNN, 11 digits (DD) NNNNN-NNNN. Other lengths pass through.
func FormatPhone(phone string) string {
	digits := digitsOnly(phone)
	switch len(digits) {
	case 10:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:6], digits[6:])
	case 11:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:7], digits[7:])
	default:
		return phone
	}
}

func localPart(jid string) string {
	if idx := strings.Index(jid, "@"); idx >= 0 {
		return jid[:idx]
	}
	return jid
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
