// Package services – collaborator interfaces and their default adapters.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/line"
	"github.com/tbourn/chat-archiver/internal/repo"
)

// Audit event tags.
const (
	AuditSaveFile      = "Save file"
	AuditGetLink       = "Get link"
	AuditGetLinkFailed = "Get link failed"
	AuditGetGroupID    = "Get group id"
	AuditGetUserID     = "Get user id"
	AuditGetConfig     = "Get config"
	AuditSetConfig     = "Set config"
	AuditEventFailed   = "Event failed"
)

// NotFoundReply is sent for get-link when nothing was archived yet.
const NotFoundReply = "No file found"

// Messenger replies to a conversation.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// ContentFetcher downloads message attachments.
type ContentFetcher interface {
	Content(ctx context.Context, messageID string) (*line.Content, error)
}

// ProfileFetcher looks up sender profiles.
type ProfileFetcher interface {
	Profile(ctx context.Context, userID, groupID string) (*line.Profile, error)
}

// AttachmentStore is the folder store archived files go to.
type AttachmentStore interface {
	Put(ctx context.Context, scopeID, kind, name string, data []byte) (string, error)
	FolderExists(ctx context.Context, scopeID string) (bool, error)
	Share(ctx context.Context, scopeID string) (string, error)
}

// AuditLog records operator-facing events.
type AuditLog interface {
	Append(ctx context.Context, event, message string) error
}

// DBAudit writes audit rows to the audit_logs table.
type DBAudit struct {
	DB *gorm.DB
}

// Append records one event row; message is stored verbatim.
func (a DBAudit) Append(ctx context.Context, event, message string) error {
	return repo.AppendAudit(ctx, a.DB, event, message)
}
