// Package services holds the bot's event processing: webhook delivery
// deduplication, the per-event dispatch loop, attachment archiving, chat
// commands and passive message logging.
//
// This file centralizes service-level error values so callers can branch on
// them with errors.Is.
package services

import "errors"

var (
	// ErrNoMessage is returned when an event that must carry a message has none.
	ErrNoMessage = errors.New("event has no message")

	// ErrNoScope indicates an event without a user or group id.
	ErrNoScope = errors.New("event has no source id")

	// ErrEmptyContent is returned when an attachment download yields no bytes.
	ErrEmptyContent = errors.New("attachment content is empty")

	// ErrEventPanic wraps a panic recovered while processing one event.
	ErrEventPanic = errors.New("panic while processing event")
)
