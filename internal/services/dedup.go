// Package services – Deduplicator
package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/repo"
)

// DefaultDedupTTL covers provider-side retry windows.
const DefaultDedupTTL = time.Hour

// Deduplicator suppresses reprocessing of a delivery id seen within TTL.
// Records expire after TTL and the id is then treated as new.
type Deduplicator struct {
	DB  *gorm.DB
	TTL time.Duration
	Now func() time.Time

	// PurgeEvery throttles deletion of expired records; zero uses TTL.
	PurgeEvery time.Duration

	lastPurge atomic.Int64
}

func (d *Deduplicator) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Deduplicator) ttl() time.Duration {
	if d.TTL > 0 {
		return d.TTL
	}
	return DefaultDedupTTL
}

// ShouldProcess reports whether id has not been seen within the window.
func (d *Deduplicator) ShouldProcess(ctx context.Context, id string) (bool, error) {
	_, err := repo.GetDelivery(ctx, d.DB, id, d.now())
	if errors.Is(err, repo.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// MarkSeen records id for the retention window.
func (d *Deduplicator) MarkSeen(ctx context.Context, id string) error {
	return repo.MarkDelivery(ctx, d.DB, id, d.ttl(), d.now())
}

// Claim checks and marks id in one conditional insert. It returns true for
// exactly one caller per window.
func (d *Deduplicator) Claim(ctx context.Context, id string) (bool, error) {
	now := d.now()
	ok, err := repo.ClaimDelivery(ctx, d.DB, id, d.ttl(), now)
	if err != nil {
		return false, err
	}
	d.maybePurge(ctx, now)
	return ok, nil
}

func (d *Deduplicator) maybePurge(ctx context.Context, now time.Time) {
	every := d.PurgeEvery
	if every <= 0 {
		every = d.ttl()
	}
	last := d.lastPurge.Load()
	if now.UnixNano()-last < int64(every) {
		return
	}
	if !d.lastPurge.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	n, err := repo.PurgeExpiredDeliveries(ctx, d.DB, now)
	if err != nil {
		log.Warn().Err(err).Msg("purge expired deliveries failed")
		return
	}
	if n > 0 {
		log.Debug().Int64("purged", n).Msg("expired deliveries purged")
	}
}
