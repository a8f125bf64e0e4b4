// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the audit trail and the passive
// message log.
//
// Functions:
//
//   - AppendAudit(ctx, db, event, message) -> error
//     Appends one (created_at, event, message) row.
//
//   - CountAudit / ListAuditPage
//     Paginated read access for the admin API, newest first, optionally
//     filtered by event tag.
//
//   - AppendMessageLog(ctx, db, row) -> error
//     Stores a passively logged text message.
//
//   - RecentMessageLogs(ctx, db, scopeID, limit) -> ([]MessageLog, error)
//     Newest-first window of a scope's message log.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/domain"
)

// AppendAudit inserts an audit row stamped with the current UTC time.
func AppendAudit(ctx context.Context, db *gorm.DB, event, message string) error {
	row := &domain.AuditLog{
		CreatedAt: time.Now().UTC(),
		Event:     event,
		Message:   message,
	}
	return db.WithContext(ctx).Create(row).Error
}

func auditQuery(ctx context.Context, db *gorm.DB, event string) *gorm.DB {
	q := db.WithContext(ctx).Model(&domain.AuditLog{})
	if event != "" {
		q = q.Where("event = ?", event)
	}
	return q
}

// CountAudit returns the number of audit rows, optionally filtered by event.
func CountAudit(ctx context.Context, db *gorm.DB, event string) (int64, error) {
	var n int64
	err := auditQuery(ctx, db, event).Count(&n).Error
	return n, err
}

// ListAuditPage returns audit rows newest first.
func ListAuditPage(ctx context.Context, db *gorm.DB, event string, offset, limit int) ([]domain.AuditLog, error) {
	var rows []domain.AuditLog
	err := auditQuery(ctx, db, event).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// AuditStats returns the total number of audit rows and the newest
// CreatedAt among them (nil when the table is empty). Used for ETags.
func AuditStats(ctx context.Context, db *gorm.DB, event string) (count int64, latest *time.Time, err error) {
	if count, err = CountAudit(ctx, db, event); err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = auditQuery(ctx, db, event).Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// AppendMessageLog stores a passively logged message. ID and CreatedAt are
// filled in when empty.
func AppendMessageLog(ctx context.Context, db *gorm.DB, row *domain.MessageLog) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(row).Error
}

// RecentMessageLogs returns up to limit logged messages of scopeID, newest
// first.
func RecentMessageLogs(ctx context.Context, db *gorm.DB, scopeID string, limit int) ([]domain.MessageLog, error) {
	var rows []domain.MessageLog
	err := db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Order("sent_at DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
