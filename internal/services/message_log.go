// Package services – MessageLogger
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/naming"
	"github.com/tbourn/chat-archiver/internal/repo"
)

// MessageLogger keeps a passive record of text messages.
type MessageLogger struct {
	DB       *gorm.DB
	Profiles ProfileFetcher
}

// Record stores ev's text with the sender's display name. A failed profile
// lookup leaves the name empty.
func (m *MessageLogger) Record(ctx context.Context, ev domain.ChatEvent) error {
	if ev.Message == nil {
		return ErrNoMessage
	}
	name := ""
	if m.Profiles != nil && ev.Source.UserID != "" {
		p, err := m.Profiles.Profile(ctx, ev.Source.UserID, ev.Source.GroupID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", ev.Source.UserID).Msg("profile lookup failed")
		} else {
			name = p.DisplayName
		}
	}
	return repo.AppendMessageLog(ctx, m.DB, &domain.MessageLog{
		DeliveryID:  ev.WebhookEventID,
		ScopeID:     ev.ScopeID(),
		UserID:      ev.Source.UserID,
		DisplayName: name,
		MessageID:   ev.Message.ID,
		Text:        ev.Message.Text,
		SentAt:      eventTime(ev.Timestamp),
	})
}

func eventTime(ts int64) time.Time {
	if ts >= naming.MillisThreshold {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}
