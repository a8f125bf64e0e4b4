// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the webhook delivery records used to
// suppress reprocessing of redelivered events within a retention window.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/chat-archiver/internal/domain"
)

// GetDelivery returns a non-expired record or ErrNotFound.
func GetDelivery(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.Delivery, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Delivery
	err := db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// MarkDelivery records id as seen until now+ttl, refreshing an existing row.
func MarkDelivery(ctx context.Context, db *gorm.DB, id string, ttl time.Duration, now time.Time) error {
	rec := &domain.Delivery{ID: id, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"created_at", "expires_at"}),
		}).
		Create(rec).Error
}

// ClaimDelivery atomically inserts a record for id unless a live one exists.
// It reports true when this call claimed the id. An expired row is replaced
// inside the same transaction so it counts as absent.
func ClaimDelivery(ctx context.Context, db *gorm.DB, id string, ttl time.Duration, now time.Time) (bool, error) {
	claimed := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND expires_at <= ?", id, now).Delete(&domain.Delivery{}).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.Delivery{ID: id, CreatedAt: now, ExpiresAt: now.Add(ttl)})
		if res.Error != nil {
			if isDuplicate(res.Error) {
				return nil
			}
			return res.Error
		}
		claimed = res.RowsAffected == 1
		return nil
	})
	return claimed, err
}

// PurgeExpiredDeliveries deletes every record expired at now and returns the
// number of rows removed.
func PurgeExpiredDeliveries(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Delivery{})
	return res.RowsAffected, res.Error
}
