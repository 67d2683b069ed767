// Package webhook receives inbound events from the WhatsApp gateway and
// feeds them through the ingestion pipeline.
package webhook

import "encoding/json"

// Event names the gateway delivers. Only message upserts are processed;
// everything else is acknowledged so the gateway does not retry.
const (
	EventMessagesUpsert   = "messages.upsert"
	EventConnectionUpdate = "connection.update"
	EventQRCodeUpdated    = "qrcode.updated"
)

// EventPayload is the gateway's webhook envelope. The shape is only loosely
// specified upstream, so every field is treated as optional.
type EventPayload struct {
	Event    string      `json:"event"`
	Instance InstanceRef `json:"instance"`
	Data     *EventData  `json:"data"`
}

// InstanceRef identifies the gateway-side connection the event belongs to.
type InstanceRef struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	ConnectionStatus string `json:"connectionStatus"`
}

// EventData is the provider-specific message object. Field aliases vary
// between gateway versions; absent fields are defaulted by Normalize.
type EventData struct {
	KeyID            string          `json:"keyId"`
	KeyRemoteJid     string          `json:"keyRemoteJid"`
	KeyFromMe        bool            `json:"keyFromMe"`
	PushName         string          `json:"pushName"`
	MessageType      string          `json:"messageType"`
	MessageTimestamp int64           `json:"messageTimestamp"`
	Content          json.RawMessage `json:"content"`

	// Media fields, present on audio/image/document messages.
	MediaKey   string `json:"mediaKey"`
	MediaURL   string `json:"mediaUrl"`
	MimeType   string `json:"mimetype"`
	DirectPath string `json:"directPath"`
	Base64     string `json:"base64"`
}

// TextContent extracts the message text from the polymorphic content field:
// either an object carrying a "text" member or a bare JSON string.
func (d *EventData) TextContent() string {
	if d == nil || len(d.Content) == 0 {
		return ""
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(d.Content, &obj); err == nil && obj.Text != "" {
		return obj.Text
	}
	var raw string
	if err := json.Unmarshal(d.Content, &raw); err == nil {
		return raw
	}
	return ""
}
