// Package webhook implements the inbound HTTP surface: the bridge's message
// webhook and the health endpoint, plus the ingestion pipeline that turns
// raw payloads into stored group messages or dispatched commands.
package webhook

import (
	"fmt"
	"time"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/database"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/whatsapp"
)

// Payload is one inbound chat event as posted by the bridge.
type Payload struct {
	Info struct {
		ID struct {
			ID string `json:"id"`
		} `json:"id"`
		MessageSource struct {
			SenderJID string `json:"senderJID"`
			GroupJID  string `json:"groupJID"`
		} `json:"messageSource"`
		PushName  string `json:"pushName"`
		Timestamp int64  `json:"timestamp"`
	} `json:"info"`
	Message struct {
		Conversation        string `json:"conversation"`
		ExtendedTextMessage *struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
		ImageMessage *struct {
			Caption string `json:"caption"`
		} `json:"imageMessage"`
		VideoMessage *struct {
			Caption string `json:"caption"`
		} `json:"videoMessage"`
		DocumentMessage *struct {
			FileName string `json:"fileName"`
		} `json:"documentMessage"`
		AudioMessage    *struct{} `json:"audioMessage"`
		StickerMessage  *struct{} `json:"stickerMessage"`
		ContactMessage  *struct{} `json:"contactMessage"`
		LocationMessage *struct{} `json:"locationMessage"`
	} `json:"message"`
}

// InboundMessage is the normalized form of a payload. An empty GroupJID marks
// a direct message; the variant is decided once, here.
type InboundMessage struct {
	MessageID   string
	GroupJID    string
	SenderJID   string
	SenderName  string
	Content     string
	MessageType string
	Timestamp   time.Time
}

// IsDirect reports whether the message arrived outside any group.
func (m *InboundMessage) IsDirect() bool {
	return m.GroupJID == ""
}

// parsePayload normalizes one raw event. Payloads with a missing identifier
// or timestamp, or without extractable content, are malformed: the caller
// logs and drops them without surfacing a failure to the bridge.
func parsePayload(p *Payload) (*InboundMessage, error) {
	if p.Info.ID.ID == "" {
		return nil, fmt.Errorf("payload has no message identifier")
	}
	if p.Info.Timestamp == 0 {
		return nil, fmt.Errorf("payload has no timestamp")
	}

	content, messageType := extractContent(p)
	if content == "" {
		return nil, fmt.Errorf("payload has no extractable content")
	}

	groupJID := ""
	if p.Info.MessageSource.GroupJID != "" {
		groupJID = whatsapp.NormalizeJID(p.Info.MessageSource.GroupJID)
	}

	return &InboundMessage{
		MessageID:   p.Info.ID.ID,
		GroupJID:    groupJID,
		SenderJID:   whatsapp.NormalizeJID(p.Info.MessageSource.SenderJID),
		SenderName:  p.Info.PushName,
		Content:     content,
		MessageType: messageType,
		Timestamp:   time.Unix(p.Info.Timestamp, 0).UTC(),
	}, nil
}

func extractContent(p *Payload) (string, string) {
	m := &p.Message
	switch {
	case m.Conversation != "":
		return m.Conversation, database.TypeText
	case m.ExtendedTextMessage != nil && m.ExtendedTextMessage.Text != "":
		return m.ExtendedTextMessage.Text, database.TypeText
	case m.ImageMessage != nil:
		if m.ImageMessage.Caption != "" {
			return m.ImageMessage.Caption, database.TypeImage
		}
		return "[Image]", database.TypeImage
	case m.VideoMessage != nil:
		if m.VideoMessage.Caption != "" {
			return m.VideoMessage.Caption, database.TypeVideo
		}
		return "[Video]", database.TypeVideo
	case m.DocumentMessage != nil:
		return "[Document]", database.TypeDocument
	case m.AudioMessage != nil:
		return "[Audio]", database.TypeAudio
	case m.StickerMessage != nil:
		return "[Sticker]", database.TypeOther
	case m.ContactMessage != nil:
		return "[Contact]", database.TypeOther
	case m.LocationMessage != nil:
		return "[Location]", database.TypeOther
	default:
		return "", ""
	}
}
