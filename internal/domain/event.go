// Package domain – webhook wire types.
//
// These mirror the provider's JSON event envelope closely enough to route
// message events; unknown fields are ignored.
package domain

import "encoding/json"

// Message kinds that carry a downloadable attachment, plus text.
const (
	KindText  = "text"
	KindImage = "image"
	KindVideo = "video"
	KindAudio = "audio"
	KindFile  = "file"
)

// WebhookPayload is the body of one provider delivery. Events are kept raw so
// a failing event can be logged exactly as received.
type WebhookPayload struct {
	Destination string            `json:"destination"`
	Events      []json.RawMessage `json:"events"`
}

// ChatEvent is a single inbound event.
type ChatEvent struct {
	Type           string        `json:"type"`
	WebhookEventID string        `json:"webhookEventId"`
	Timestamp      int64         `json:"timestamp"`
	ReplyToken     string        `json:"replyToken,omitempty"`
	Source         EventSource   `json:"source"`
	Message        *EventMessage `json:"message,omitempty"`
	Delivery       struct {
		IsRedelivery bool `json:"isRedelivery"`
	} `json:"deliveryContext"`
}

// EventSource identifies who sent the event and where.
type EventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	GroupID string `json:"groupId,omitempty"`
}

// EventMessage is the message part of a "message" event.
type EventMessage struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Text     string `json:"text,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// ScopeID returns the conversation identity: the group id for group events,
// else the sender's user id.
func (e ChatEvent) ScopeID() string {
	if e.Source.GroupID != "" {
		return e.Source.GroupID
	}
	return e.Source.UserID
}

// MessageType returns the message kind, or "" for non-message events.
func (e ChatEvent) MessageType() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Type
}
