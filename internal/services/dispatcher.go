// Package services – Dispatcher
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/settings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome is the terminal state of one event.
type Outcome string

const (
	OutcomeDeduplicated Outcome = "deduplicated"
	OutcomeSaved        Outcome = "saved"
	OutcomeCommand      Outcome = "command"
	OutcomeLogged       Outcome = "logged"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeFailed       Outcome = "failed"
)

// Summary counts event outcomes of one delivery batch.
type Summary map[Outcome]int

// Dispatcher runs each event of a delivery through dedup, classification and
// the save or command path. Events are processed one after another and a
// failing event never stops the rest of the batch.
type Dispatcher struct {
	Dedup    *Deduplicator
	Settings *settings.Resolver
	Archiver *Archiver
	Commands *CommandRouter
	Messages *MessageLogger
	Audit    AuditLog
}

// saveToggles maps attachment kinds to their save setting.
var saveToggles = map[string]settings.Key{
	domain.KindImage: settings.KeySaveImage,
	domain.KindVideo: settings.KeySaveVideo,
	domain.KindAudio: settings.KeySaveAudio,
	domain.KindFile:  settings.KeySaveFile,
}

// Dispatch processes every event and returns the outcome counts.
func (d *Dispatcher) Dispatch(ctx context.Context, events []json.RawMessage) Summary {
	ctx, span := otel.Tracer("services/Dispatcher").Start(ctx, "Dispatch",
		trace.WithAttributes(attribute.Int("events.count", len(events))),
	)
	defer span.End()

	sum := Summary{}
	for _, raw := range events {
		out, err := d.handle(ctx, raw)
		if err != nil {
			out = OutcomeFailed
			d.fail(ctx, raw, err)
		}
		sum[out]++
		eventsTotal.WithLabelValues(string(out)).Inc()
	}
	if sum[OutcomeFailed] > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d events failed", sum[OutcomeFailed]))
	}
	return sum
}

// handle is the per-event boundary: errors and panics stop here.
func (d *Dispatcher) handle(ctx context.Context, raw json.RawMessage) (out Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("event handler panicked")
			out, err = OutcomeFailed, fmt.Errorf("%w: %v", ErrEventPanic, rec)
		}
	}()

	var ev domain.ChatEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return OutcomeFailed, fmt.Errorf("decode event: %w", err)
	}

	if ev.WebhookEventID == "" {
		log.Warn().Str("type", ev.Type).Msg("event without webhookEventId; dedup skipped")
	} else {
		first, err := d.Dedup.Claim(ctx, ev.WebhookEventID)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("dedup: %w", err)
		}
		if !first {
			log.Debug().Str("webhook_event_id", ev.WebhookEventID).Msg("duplicate delivery skipped")
			return OutcomeDeduplicated, nil
		}
	}

	return d.route(ctx, ev)
}

func (d *Dispatcher) route(ctx context.Context, ev domain.ChatEvent) (Outcome, error) {
	kind := ev.MessageType()
	scope := settings.ScopeID(ev.ScopeID())

	if key, ok := saveToggles[kind]; ok {
		save, err := d.Settings.Bool(ctx, key, scope)
		if err != nil {
			return OutcomeFailed, err
		}
		if !save {
			return OutcomeIgnored, nil
		}
		if _, err := d.Archiver.Save(ctx, ev); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeSaved, nil
	}

	if kind == domain.KindText && ev.Message.Text != "" {
		if d.Messages != nil {
			if err := d.Messages.Record(ctx, ev); err != nil {
				log.Warn().Err(err).Str("webhook_event_id", ev.WebhookEventID).Msg("message log failed")
			}
		}
		name, err := d.Commands.Route(ctx, ev)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("command %s: %w", name, err)
		}
		if name != "" {
			return OutcomeCommand, nil
		}
		return OutcomeLogged, nil
	}

	return OutcomeIgnored, nil
}

// fail logs a failed event with its raw payload and records it in the audit
// log.
func (d *Dispatcher) fail(ctx context.Context, raw json.RawMessage, err error) {
	ev := log.Error().Err(err)
	if json.Valid(raw) {
		ev = ev.RawJSON("event", raw)
	} else {
		ev = ev.Bytes("event", raw)
	}
	ev.Msg("event processing failed")

	if d.Audit == nil {
		return
	}
	if aerr := d.Audit.Append(ctx, AuditEventFailed, err.Error()); aerr != nil {
		log.Error().Err(aerr).Msg("audit append failed")
	}
}
