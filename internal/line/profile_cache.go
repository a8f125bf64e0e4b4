// Package line – profile cache backed by the user_profiles table.
package line

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/repo"
)

// ProfileFetcher fetches a profile from the API.
type ProfileFetcher interface {
	Profile(ctx context.Context, userID, groupID string) (*Profile, error)
}

// ProfileCache serves profiles from the profile_caches table and falls back
// to Fetcher on a miss. Concurrent misses for the same (user, group) share
// one upstream call.
type ProfileCache struct {
	DB      *gorm.DB
	Fetcher ProfileFetcher
	TTL     time.Duration
	Now     func() time.Time

	group singleflight.Group
}

func (p *ProfileCache) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// Profile returns the cached profile or fetches and stores a fresh one.
func (p *ProfileCache) Profile(ctx context.Context, userID, groupID string) (*Profile, error) {
	now := p.now()
	row, err := repo.GetProfile(ctx, p.DB, userID, groupID, now)
	if err == nil {
		return &Profile{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			PictureURL:  row.PictureURL,
			Language:    row.Language,
		}, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		log.Warn().Err(err).Str("user_id", userID).Msg("profile cache read failed")
	}

	v, err, _ := p.group.Do(userID+"\x00"+groupID, func() (any, error) {
		prof, err := p.Fetcher.Profile(ctx, userID, groupID)
		if err != nil {
			return nil, err
		}
		ttl := p.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		put := &domain.ProfileCache{
			UserID:      userID,
			GroupID:     groupID,
			DisplayName: prof.DisplayName,
			PictureURL:  prof.PictureURL,
			Language:    prof.Language,
			FetchedAt:   now,
			ExpiresAt:   now.Add(ttl),
		}
		if err := repo.PutProfile(ctx, p.DB, put); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("profile cache write failed")
		}
		return prof, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Profile), nil
}
