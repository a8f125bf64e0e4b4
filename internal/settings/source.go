// Package settings – the resolution tiers.
package settings

import (
	"context"
	"errors"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/repo"
)

// Source is one resolution tier. Lookup reports ok=false when the tier has no
// value for key; an error aborts resolution.
type Source interface {
	Lookup(ctx context.Context, key Key, scope Scope) (v Value, ok bool, err error)
}

// ScopeOverrideSource reads per-conversation rows written by chat commands.
type ScopeOverrideSource struct {
	DB *gorm.DB
}

// Lookup returns the override stored for exactly this scope.
func (s ScopeOverrideSource) Lookup(ctx context.Context, key Key, scope Scope) (Value, bool, error) {
	row, err := repo.GetScopeOverride(ctx, s.DB, string(key), scope.ptr())
	if errors.Is(err, repo.ErrNotFound) {
		return Value{}, false, nil
	}
	if err != nil {
		return Value{}, false, err
	}
	return Coerce(row.Value), true, nil
}

// PropertyStore is a process-wide string property bag.
type PropertyStore interface {
	Property(name string) (string, bool)
}

// EnvProperties serves properties from the process environment, each name
// looked up with Prefix prepended.
type EnvProperties struct {
	Prefix string
}

// Property reads the prefixed environment variable.
func (e EnvProperties) Property(name string) (string, bool) {
	return os.LookupEnv(e.Prefix + name)
}

// MapProperties is an in-memory PropertyStore.
type MapProperties map[string]string

// Property returns the map entry for name.
func (m MapProperties) Property(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// PropertySource is the deployment-wide tier. It ignores scope and treats
// blank properties as unset.
type PropertySource struct {
	Store PropertyStore
}

// Lookup coerces the property named after key.
func (s PropertySource) Lookup(_ context.Context, key Key, _ Scope) (Value, bool, error) {
	if s.Store == nil {
		return Value{}, false, nil
	}
	raw, ok := s.Store.Property(string(key))
	if !ok || strings.TrimSpace(raw) == "" {
		return Value{}, false, nil
	}
	return Coerce(raw), true, nil
}

// GlobalDefaultSource reads scope-free rows maintained by an administrator.
type GlobalDefaultSource struct {
	DB *gorm.DB
}

// Lookup returns the global default row for key.
func (s GlobalDefaultSource) Lookup(ctx context.Context, key Key, _ Scope) (Value, bool, error) {
	row, err := repo.GetGlobalDefault(ctx, s.DB, string(key))
	if errors.Is(err, repo.ErrNotFound) {
		return Value{}, false, nil
	}
	if err != nil {
		return Value{}, false, err
	}
	return Coerce(row.Value), true, nil
}

// BuiltinSource returns the compiled-in default, uncoerced.
type BuiltinSource struct{}

// Lookup answers every valid key with its built-in default.
func (BuiltinSource) Lookup(_ context.Context, key Key, _ Scope) (Value, bool, error) {
	if !key.Valid() {
		return Value{}, false, nil
	}
	return key.Default(), true, nil
}
