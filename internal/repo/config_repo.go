// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the two configuration tables: scoped
// overrides written from chat commands, and scope-free global defaults.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/chat-archiver/internal/domain"
)

// GetScopeOverride returns the override row for (key, scopeID). A nil scopeID
// matches only a row whose scope is NULL. Returns ErrNotFound when absent.
func GetScopeOverride(ctx context.Context, db *gorm.DB, key string, scopeID *string) (*domain.ConfigOverride, error) {
	q := db.WithContext(ctx).Where("key = ?", key)
	if scopeID == nil {
		q = q.Where("scope_id IS NULL")
	} else {
		q = q.Where("scope_id = ?", *scopeID)
	}
	var row domain.ConfigOverride
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertScopeOverride writes value for (key, scopeID), updating the existing
// row in place when the pair is already present.
func UpsertScopeOverride(ctx context.Context, db *gorm.DB, key, scopeID, value string) error {
	now := time.Now().UTC()
	row := &domain.ConfigOverride{
		Key:       key,
		ScopeID:   &scopeID,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}, {Name: "scope_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(row).Error
}

// ListScopeOverrides returns every override row for scopeID ordered by key.
func ListScopeOverrides(ctx context.Context, db *gorm.DB, scopeID string) ([]domain.ConfigOverride, error) {
	var rows []domain.ConfigOverride
	err := db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Order("key ASC").
		Find(&rows).Error
	return rows, err
}

// GetGlobalDefault returns the scope-free row for key or ErrNotFound.
func GetGlobalDefault(ctx context.Context, db *gorm.DB, key string) (*domain.GlobalConfig, error) {
	var row domain.GlobalConfig
	err := db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertGlobalDefaultIfAbsent appends a default row for key unless one
// already exists. It reports whether a row was inserted.
func InsertGlobalDefaultIfAbsent(ctx context.Context, db *gorm.DB, key, value string) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.GlobalConfig{Key: key, Value: value, UpdatedAt: time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
