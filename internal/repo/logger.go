// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file adapts GORM's logger to zerolog.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormLogger routes GORM logs to zerolog. Queries slower than Slow are
// logged at warn; failed queries at error, except record-not-found which
// callers handle.
type GormLogger struct {
	Slow  time.Duration
	Level logger.LogLevel
}

// NewGormLogger returns a GormLogger at warn level.
func NewGormLogger(slow time.Duration) *GormLogger {
	return &GormLogger{Slow: slow, Level: logger.Warn}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.Level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.Level >= logger.Info {
		from(ctx).Info().Msgf(msg, args...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.Level >= logger.Warn {
		from(ctx).Warn().Msgf(msg, args...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.Level >= logger.Error {
		from(ctx).Error().Msgf(msg, args...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	var ev *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.Level >= logger.Error:
		ev = from(ctx).Error().Err(err)
	case l.Slow > 0 && elapsed > l.Slow && l.Level >= logger.Warn:
		ev = from(ctx).Warn().Str("slow", l.Slow.String())
	case l.Level >= logger.Info:
		ev = from(ctx).Debug()
	default:
		return
	}
	sql, rows := fc()
	ev.Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("gorm")
}

// from prefers a logger attached to ctx and falls back to the global one.
func from(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
