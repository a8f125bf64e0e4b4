// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores cached user profiles.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/chat-archiver/internal/domain"
)

// GetProfile returns a cached profile that is still fresh at now, or
// ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, userID, groupID string, now time.Time) (*domain.ProfileCache, error) {
	var p domain.ProfileCache
	err := db.WithContext(ctx).
		Where("user_id = ? AND group_id = ? AND expires_at > ?", userID, groupID, now).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PutProfile inserts or refreshes a cached profile.
func PutProfile(ctx context.Context, db *gorm.DB, p *domain.ProfileCache) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "group_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "picture_url", "language", "fetched_at", "expires_at"}),
		}).
		Create(p).Error
}
