// Package settings – validated scope-level writes.
package settings

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/repo"
)

// ErrEmptyScope is returned when a write names no conversation.
var ErrEmptyScope = errors.New("scope id is empty")

// Outcome is the result of a TrySet call.
type Outcome int

const (
	Applied Outcome = iota
	RejectedUnknownKey
	RejectedTypeMismatch
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case RejectedUnknownKey:
		return "rejected_unknown_key"
	case RejectedTypeMismatch:
		return "rejected_type_mismatch"
	default:
		return "unknown"
	}
}

// Writer persists scope-level overrides.
type Writer struct {
	DB *gorm.DB
}

// TrySet validates and stores an override for (key, scopeID). Unknown and
// secret keys yield RejectedUnknownKey; a value whose coerced kind differs
// from the key's built-in default yields RejectedTypeMismatch. Rejections
// are not errors. The value is stored in its canonical rendering.
func (w *Writer) TrySet(ctx context.Context, key, scopeID, raw string) (Outcome, error) {
	k, ok := ParseKey(key)
	if !ok || k.Secret() {
		return RejectedUnknownKey, nil
	}
	v := Coerce(raw)
	if v.Kind() != k.Default().Kind() {
		return RejectedTypeMismatch, nil
	}
	if strings.TrimSpace(scopeID) == "" {
		return RejectedUnknownKey, ErrEmptyScope
	}
	if err := repo.UpsertScopeOverride(ctx, w.DB, string(k), scopeID, v.Raw()); err != nil {
		return RejectedUnknownKey, err
	}
	return Applied, nil
}

// SeedGlobalDefaults writes a global default row for every known key that
// has none, leaving existing rows untouched. It returns the keys inserted.
func SeedGlobalDefaults(ctx context.Context, db *gorm.DB) ([]Key, error) {
	var added []Key
	for _, k := range keyOrder {
		ins, err := repo.InsertGlobalDefaultIfAbsent(ctx, db, string(k), k.Default().Raw())
		if err != nil {
			return added, err
		}
		if ins {
			added = append(added, k)
		}
	}
	return added, nil
}
