// Package services – AdminService
package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/repo"
	"github.com/tbourn/chat-archiver/internal/search"
	"github.com/tbourn/chat-archiver/internal/settings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// searchWindow caps how many recent messages a search scans.
const searchWindow = 2000

// AdminService backs the operator API: effective configuration of a scope,
// the audit trail, message log search and publishing of built-in defaults.
type AdminService struct {
	DB       *gorm.DB
	Settings *settings.Resolver
}

// ConfigValue is one effective setting of a scope. Overridden reports
// whether a scope row exists for the key; the value may still come from a
// higher tier.
type ConfigValue struct {
	Key        string `json:"key"         example:"SAVE_IMAGE"`
	Value      string `json:"value"       example:"true"`
	Overridden bool   `json:"overridden"`
}

// ScopeConfig is the effective configuration of one conversation.
type ScopeConfig struct {
	Scope  string        `json:"scope"  example:"C4af4980629b9c0b6b6d2d4a1a1e0f0aa"`
	Values []ConfigValue `json:"values"`
}

// ScopeConfig resolves every non-secret key for scopeID.
func (s *AdminService) ScopeConfig(ctx context.Context, scopeID string) (*ScopeConfig, error) {
	scopeID = strings.TrimSpace(scopeID)
	if scopeID == "" {
		return nil, settings.ErrEmptyScope
	}
	ctx, span := otel.Tracer("services/AdminService").Start(ctx, "ScopeConfig",
		trace.WithAttributes(attribute.String("scope", scopeID)),
	)
	defer span.End()

	entries, err := s.Settings.Snapshot(ctx, settings.ScopeID(scopeID))
	if err != nil {
		return nil, err
	}
	rows, err := repo.ListScopeOverrides(ctx, s.DB, scopeID)
	if err != nil {
		return nil, err
	}
	overridden := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		overridden[r.Key] = struct{}{}
	}

	out := &ScopeConfig{Scope: scopeID, Values: make([]ConfigValue, 0, len(entries))}
	for _, e := range entries {
		_, ok := overridden[string(e.Key)]
		out.Values = append(out.Values, ConfigValue{
			Key:        string(e.Key),
			Value:      e.Value.Raw(),
			Overridden: ok,
		})
	}
	return out, nil
}

// AuditPage returns one page of audit rows, newest first, and the total.
// page is 1-based; event filters by tag when non-empty.
func (s *AdminService) AuditPage(ctx context.Context, event string, page, pageSize int) ([]domain.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	total, err := repo.CountAudit(ctx, s.DB, event)
	if err != nil {
		return nil, 0, err
	}
	rows, err := repo.ListAuditPage(ctx, s.DB, event, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AuditStats returns the row count and newest timestamp for ETag derivation.
func (s *AdminService) AuditStats(ctx context.Context, event string) (int64, *time.Time, error) {
	return repo.AuditStats(ctx, s.DB, event)
}

// PublishDefaults writes the built-in default of every key that has no
// global default row yet and returns the keys written.
func (s *AdminService) PublishDefaults(ctx context.Context) ([]settings.Key, error) {
	ctx, span := otel.Tracer("services/AdminService").Start(ctx, "PublishDefaults")
	defer span.End()

	added, err := settings.SeedGlobalDefaults(ctx, s.DB)
	if err != nil {
		return added, err
	}
	span.SetAttributes(attribute.Int("keys.added", len(added)))
	return added, nil
}

// MessageHit is a logged message matching a search query.
type MessageHit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sent_at"`
	Score       float64   `json:"score"`
}

// SearchMessages ranks the most recent logged messages of scopeID against
// query and returns at most limit hits.
func (s *AdminService) SearchMessages(ctx context.Context, scopeID, query string, limit int) ([]MessageHit, error) {
	scopeID = strings.TrimSpace(scopeID)
	if scopeID == "" {
		return nil, settings.ErrEmptyScope
	}
	ctx, span := otel.Tracer("services/AdminService").Start(ctx, "SearchMessages",
		trace.WithAttributes(attribute.String("scope", scopeID), attribute.Int("limit", limit)),
	)
	defer span.End()

	rows, err := repo.RecentMessageLogs(ctx, s.DB, scopeID, searchWindow)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.MessageLog, len(rows))
	docs := make([]search.Document, 0, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
		docs = append(docs, search.Document{ID: r.ID, Text: r.Text})
	}

	hits := search.New(docs).TopK(query, limit)
	out := make([]MessageHit, 0, len(hits))
	for _, h := range hits {
		r := byID[h.ID]
		out = append(out, MessageHit{
			ID:          r.ID,
			UserID:      r.UserID,
			DisplayName: r.DisplayName,
			Text:        r.Text,
			SentAt:      r.SentAt,
			Score:       h.Score,
		})
	}
	span.SetAttributes(attribute.Int("hits", len(out)))
	return out, nil
}
