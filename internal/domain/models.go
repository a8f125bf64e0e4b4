// Package domain defines the persistence models of the archiver: scoped
// configuration rows, the audit and message logs, folder share tokens, and
// the user profile cache. These types are mapped with GORM and shared across
// the repository and service layers.
package domain

import "time"

// ConfigOverride is a per-conversation setting. A row is unique per
// (key, scope_id); later writes for the same pair update Value in place.
//
// ScopeID is nullable: a NULL scope row only matches lookups made without a
// scope. Chat commands always write with a concrete scope.
type ConfigOverride struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Key       string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_override_key_scope,priority:1"`
	ScopeID   *string   `gorm:"type:varchar(64);uniqueIndex:ux_override_key_scope,priority:2"`
	Value     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for ConfigOverride.
func (ConfigOverride) TableName() string { return "config_overrides" }

// GlobalConfig is a scope-free default row, maintained by an administrator
// (or seeded from the built-in defaults) and never written from chat.
type GlobalConfig struct {
	Key       string    `gorm:"type:varchar(64);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for GlobalConfig.
func (GlobalConfig) TableName() string { return "global_configs" }

// AuditLog is one entry of the operator-facing audit trail: a short event
// tag ("Save file", "Get link failed", ...) and a free-form message.
type AuditLog struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index"`
	Event     string    `json:"event"      gorm:"type:varchar(64);not null;index"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
}

// TableName returns the database table name for AuditLog.
func (AuditLog) TableName() string { return "audit_logs" }

// MessageLog is the passive record of a text message seen in a conversation.
type MessageLog struct {
	ID          string    `gorm:"type:char(36);primaryKey"`
	DeliveryID  string    `gorm:"type:varchar(64);index"`
	ScopeID     string    `gorm:"type:varchar(64);not null;index:idx_msglog_scope_time,priority:1"`
	UserID      string    `gorm:"type:varchar(64);not null"`
	DisplayName string    `gorm:"type:varchar(255)"`
	MessageID   string    `gorm:"type:varchar(64)"`
	Text        string    `gorm:"type:text;not null"`
	SentAt      time.Time `gorm:"not null;index:idx_msglog_scope_time,priority:2"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the database table name for MessageLog.
func (MessageLog) TableName() string { return "message_logs" }

// Share maps a conversation folder to the opaque token used in its public,
// read-only link. There is at most one token per scope.
type Share struct {
	ScopeID   string    `gorm:"type:varchar(64);primaryKey"`
	Token     string    `gorm:"type:char(36);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for Share.
func (Share) TableName() string { return "shares" }

// ProfileCache stores a fetched user profile keyed by (user, group). GroupID
// is empty for profiles fetched outside of a group.
type ProfileCache struct {
	UserID      string    `gorm:"type:varchar(64);primaryKey"`
	GroupID     string    `gorm:"type:varchar(64);primaryKey"`
	DisplayName string    `gorm:"type:varchar(255)"`
	PictureURL  string    `gorm:"type:text"`
	Language    string    `gorm:"type:varchar(16)"`
	FetchedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for ProfileCache.
func (ProfileCache) TableName() string { return "profile_caches" }
