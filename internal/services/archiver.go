// Package services – Archiver
package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/naming"
	"github.com/tbourn/chat-archiver/internal/settings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// fallbackExtension is used when neither the content nor the original
// filename reveals a type.
const fallbackExtension = "bin"

// Archiver stores message attachments in the conversation's folder.
type Archiver struct {
	Settings *settings.Resolver
	Content  ContentFetcher
	Store    AttachmentStore
	Audit    AuditLog

	// Location renders ${eventDate}; nil means time.Local.
	Location *time.Location
}

// Save downloads the attachment of ev, names it from the kind's pattern and
// writes it to {scope}/{kind}/{name}. It returns the stored path. Saving
// never replies to the conversation.
func (a *Archiver) Save(ctx context.Context, ev domain.ChatEvent) (string, error) {
	if ev.Message == nil {
		return "", ErrNoMessage
	}
	scope := ev.ScopeID()
	if scope == "" {
		return "", ErrNoScope
	}
	kind := ev.Message.Type

	ctx, span := otel.Tracer("services/Archiver").Start(ctx, "Save",
		trace.WithAttributes(
			attribute.String("scope.id", scope),
			attribute.String("message.kind", kind),
			attribute.String("message.id", ev.Message.ID),
		),
	)
	defer span.End()

	content, err := a.Content.Content(ctx, ev.Message.ID)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("fetch attachment %s: %w", ev.Message.ID, err)
	}
	if len(content.Data) == 0 {
		return "", ErrEmptyContent
	}

	nc := naming.NewContext(ev, extensionFor(content.ContentType, content.Data, ev.Message.FileName), a.Location)

	pattern := ""
	key, ok := naming.PatternKey(kind)
	if ok {
		if pattern, err = a.Settings.String(ctx, key, settings.ScopeID(scope)); err != nil {
			return "", err
		}
	}
	name := naming.FileName(pattern, ok, nc)
	if strings.TrimSpace(name) == "" {
		name = nc.MessageID + "." + nc.Extension
	}

	rel, err := a.Store.Put(ctx, scope, kind, name, content.Data)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("store attachment: %w", err)
	}
	span.SetAttributes(attribute.String("file.path", rel))

	if err := a.Audit.Append(ctx, AuditSaveFile, fmt.Sprintf("%s save file to %s", ev.Source.UserID, rel)); err != nil {
		return rel, fmt.Errorf("audit save: %w", err)
	}
	return rel, nil
}

// extensionFor derives ${extension} without the leading dot: from the
// declared MIME type, then from the original filename, then by sniffing data.
func extensionFor(contentType string, data []byte, fileName string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.TrimSpace(strings.ToLower(mt))
	if m := mimetype.Lookup(mt); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	if ext := strings.TrimPrefix(path.Ext(fileName), "."); ext != "" {
		return ext
	}
	if len(data) > 0 {
		if m := mimetype.Detect(data); m.Extension() != "" {
			return strings.TrimPrefix(m.Extension(), ".")
		}
	}
	return fallbackExtension
}
