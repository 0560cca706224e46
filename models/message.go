package models

import (
	"encoding/json"
	"strings"
)

/************************************************
/**** MARK: MESSAGE TYPES ****/
/************************************************/
const MESSAGE_TYPE_CONVERSATION = "conversation"
const MESSAGE_TYPE_EXTENDED_TEXT = "extendedTextMessage"
const MESSAGE_TYPE_AUDIO = "audioMessage"
const MESSAGE_TYPE_IMAGE = "imageMessage"
const MESSAGE_TYPE_DOCUMENT = "documentMessage"

// Eventos da Evolution API que carregam mensagens novas.
var MessageEvents = []string{"messages.upsert", "message", "messages.set"}

type MessageKey struct {
	ID        string `json:"id"`
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
}

// MessageData é compatível com Evolution API v1 (key) e v2 (keyId/remoteJid/fromMe).
type MessageData struct {
	Key         *MessageKey                `json:"key,omitempty"`
	Message     map[string]json.RawMessage `json:"message,omitempty"`
	MessageType string                     `json:"messageType,omitempty"`
	PushName    string                     `json:"pushName,omitempty"`
}

func (d *MessageData) UnmarshalJSON(b []byte) error {
	var raw struct {
		Key         *MessageKey                `json:"key"`
		KeyID       string                     `json:"keyId"`
		RemoteJID   string                     `json:"remoteJid"`
		FromMe      bool                       `json:"fromMe"`
		Message     map[string]json.RawMessage `json:"message"`
		MessageType string                     `json:"messageType"`
		PushName    string                     `json:"pushName"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Key = raw.Key
	if d.Key == nil && raw.KeyID != "" {
		d.Key = &MessageKey{ID: raw.KeyID, RemoteJID: raw.RemoteJID, FromMe: raw.FromMe}
	}
	d.Message = raw.Message
	d.MessageType = raw.MessageType
	d.PushName = raw.PushName
	return nil
}

// WhatsAppWebhook é o payload completo do webhook da Evolution API.
type WhatsAppWebhook struct {
	Event     string      `json:"event"`
	Instance  string      `json:"instance"`
	ServerURL string      `json:"server_url"`
	APIKey    string      `json:"apikey"`
	Data      MessageData `json:"data"`
}

// IsMessageEvent reports whether the event carries a new message.
func (w WhatsAppWebhook) IsMessageEvent() bool {
	for _, e := range MessageEvents {
		if w.Event == e {
			return true
		}
	}
	return false
}

func (w WhatsAppWebhook) MessageType() string {
	msg := w.Data.Message
	switch {
	case has(msg, MESSAGE_TYPE_AUDIO):
		return MESSAGE_TYPE_AUDIO
	case has(msg, MESSAGE_TYPE_EXTENDED_TEXT):
		return MESSAGE_TYPE_EXTENDED_TEXT
	case has(msg, MESSAGE_TYPE_CONVERSATION):
		return MESSAGE_TYPE_CONVERSATION
	case has(msg, MESSAGE_TYPE_IMAGE):
		return MESSAGE_TYPE_IMAGE
	case w.Data.MessageType == MESSAGE_TYPE_DOCUMENT:
		return MESSAGE_TYPE_DOCUMENT
	}
	return MESSAGE_TYPE_CONVERSATION
}

// TextContent returns the text body of conversation/extendedText messages.
func (w WhatsAppWebhook) TextContent() string {
	msg := w.Data.Message
	if raw, ok := msg[MESSAGE_TYPE_EXTENDED_TEXT]; ok {
		var ext struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &ext); err == nil {
			return ext.Text
		}
		return ""
	}
	if raw, ok := msg[MESSAGE_TYPE_CONVERSATION]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return text
		}
	}
	return ""
}

func (w WhatsAppWebhook) Sender() string {
	if w.Data.Key == nil {
		return ""
	}
	return strings.TrimSpace(w.Data.Key.RemoteJID)
}

func (w WhatsAppWebhook) IsFromMe() bool {
	return w.Data.Key != nil && w.Data.Key.FromMe
}

func (w WhatsAppWebhook) MessageID() string {
	if w.Data.Key == nil {
		return ""
	}
	return w.Data.Key.ID
}

func has(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}

// InboundMessage é a mensagem já extraída (e, após o debounce, consolidada).
type InboundMessage struct {
	Sender      string
	Text        string
	MessageType string
	MessageID   string
	FromMe      bool
	Instance    string
	ServerURL   string
	APIKey      string
}

// NewInboundMessage builds the internal message from a webhook and its extracted text.
func NewInboundMessage(w WhatsAppWebhook, text string) InboundMessage {
	return InboundMessage{
		Sender:      w.Sender(),
		Text:        text,
		MessageType: w.MessageType(),
		MessageID:   w.MessageID(),
		FromMe:      w.IsFromMe(),
		Instance:    w.Instance,
		ServerURL:   w.ServerURL,
		APIKey:      w.APIKey,
	}
}
