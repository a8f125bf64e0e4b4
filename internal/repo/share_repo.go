// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file manages folder share tokens.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/domain"
)

// GetShareByScope returns the share token of a scope folder or ErrNotFound.
func GetShareByScope(ctx context.Context, db *gorm.DB, scopeID string) (*domain.Share, error) {
	var s domain.Share
	err := db.WithContext(ctx).Where("scope_id = ?", scopeID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetShareByToken resolves a public token back to its scope or ErrNotFound.
func GetShareByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Share, error) {
	var s domain.Share
	err := db.WithContext(ctx).Where("token = ?", token).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// EnsureShare returns the existing share for scopeID or creates one with a
// fresh random token. Concurrent creators converge on the first stored row.
func EnsureShare(ctx context.Context, db *gorm.DB, scopeID string) (*domain.Share, error) {
	if s, err := GetShareByScope(ctx, db, scopeID); err == nil {
		return s, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	s := &domain.Share{ScopeID: scopeID, Token: uuid.NewString(), CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if isDuplicate(err) {
			return GetShareByScope(ctx, db, scopeID)
		}
		return nil, err
	}
	return s, nil
}
