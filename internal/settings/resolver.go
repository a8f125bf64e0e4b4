// Package settings – four-tier Resolver.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownKey is returned when resolving a key outside the fixed set.
var ErrUnknownKey = errors.New("unknown config key")

// Resolver walks an ordered list of sources and returns the first hit.
//
// A hit whose kind differs from the key's built-in default is skipped, so a
// boolean key always resolves to a boolean. Keys whose default is null accept
// any kind.
type Resolver struct {
	Sources []Source
}

// NewResolver builds the standard chain: scope override, process property,
// global default row, built-in default.
func NewResolver(db *gorm.DB, props PropertyStore) *Resolver {
	return &Resolver{Sources: []Source{
		ScopeOverrideSource{DB: db},
		PropertySource{Store: props},
		GlobalDefaultSource{DB: db},
		BuiltinSource{},
	}}
}

// Resolve returns the effective value of key for scope.
func (r *Resolver) Resolve(ctx context.Context, key Key, scope Scope) (Value, error) {
	ctx, span := otel.Tracer("settings/Resolver").Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.String("config.key", string(key)),
			attribute.String("config.scope", scope.String()),
		),
	)
	defer span.End()

	if !key.Valid() {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownKey, string(key))
	}
	def := key.Default()
	for i, src := range r.Sources {
		v, ok, err := src.Lookup(ctx, key, scope)
		if err != nil {
			span.RecordError(err)
			return Value{}, fmt.Errorf("resolve %s (tier %d): %w", key, i+1, err)
		}
		if !ok {
			continue
		}
		if !def.IsNull() && v.Kind() != def.Kind() {
			log.Warn().
				Str("key", string(key)).
				Str("scope", scope.String()).
				Int("tier", i+1).
				Str("got", v.Kind().String()).
				Str("want", def.Kind().String()).
				Msg("config value ignored: type mismatch")
			continue
		}
		span.SetAttributes(attribute.Int("config.tier", i+1))
		return v, nil
	}
	return def, nil
}

// Bool resolves a boolean key.
func (r *Resolver) Bool(ctx context.Context, key Key, scope Scope) (bool, error) {
	v, err := r.Resolve(ctx, key, scope)
	if err != nil {
		return false, err
	}
	b, _ := v.AsBool()
	return b, nil
}

// String resolves a key to its rendered text. Null resolves to "".
func (r *Resolver) String(ctx context.Context, key Key, scope Scope) (string, error) {
	v, err := r.Resolve(ctx, key, scope)
	if err != nil {
		return "", err
	}
	if s, ok := v.AsString(); ok {
		return s, nil
	}
	if v.IsNull() {
		return "", nil
	}
	return v.Raw(), nil
}

// Entry is one resolved setting.
type Entry struct {
	Key   Key
	Value Value
}

// Snapshot resolves every non-secret key for scope, in canonical order.
func (r *Resolver) Snapshot(ctx context.Context, scope Scope) ([]Entry, error) {
	out := make([]Entry, 0, len(keyOrder))
	for _, k := range keyOrder {
		if k.Secret() {
			continue
		}
		v, err := r.Resolve(ctx, k, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: k, Value: v})
	}
	return out, nil
}
