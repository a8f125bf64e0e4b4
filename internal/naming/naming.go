// Package naming expands archive filename patterns such as
// "${timestamp}_${fileName}" against the bindings of one saved attachment.
package naming

import (
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/settings"
)

// DateLayout renders ${eventDate}.
const DateLayout = "20060102150405"

// MillisThreshold separates millisecond timestamps from second ones.
const MillisThreshold = 1e12

// Context holds the placeholder bindings for one save.
type Context struct {
	UserID         string
	GroupID        string
	MessageID      string
	FileName       string
	Timestamp      int64
	Extension      string
	WebhookEventID string
	EventDate      string
}

// NewContext derives the bindings for ev. The event date is rendered in loc.
func NewContext(ev domain.ChatEvent, ext string, loc *time.Location) Context {
	c := Context{
		UserID:         ev.Source.UserID,
		GroupID:        ev.Source.GroupID,
		Timestamp:      ev.Timestamp,
		Extension:      ext,
		WebhookEventID: ev.WebhookEventID,
		EventDate:      EventDate(ev.Timestamp, loc),
	}
	if ev.Message != nil {
		c.MessageID = ev.Message.ID
		c.FileName = ev.Message.FileName
	}
	return c
}

func (c Context) lookup(token string) (string, bool) {
	switch token {
	case "userId":
		return c.UserID, true
	case "groupId":
		return c.GroupID, true
	case "messageId":
		return c.MessageID, true
	case "fileName":
		return c.FileName, true
	case "timestamp":
		return strconv.FormatInt(c.Timestamp, 10), true
	case "extension":
		return c.Extension, true
	case "webhookEventId":
		return c.WebhookEventID, true
	case "eventDate":
		return c.EventDate, true
	}
	return "", false
}

// Expand substitutes every known ${token} in pattern in a single left to right
// scan. Substituted text is never scanned again, and unknown or unterminated
// tokens are copied through unchanged. A "${" that does not open a known token
// is kept literally and scanning resumes right after it.
func Expand(pattern string, c Context) string {
	var b strings.Builder
	b.Grow(len(pattern) + 32)
	for {
		i := strings.Index(pattern, "${")
		if i < 0 {
			b.WriteString(pattern)
			return b.String()
		}
		j := strings.IndexByte(pattern[i+2:], '}')
		if j < 0 {
			b.WriteString(pattern)
			return b.String()
		}
		b.WriteString(pattern[:i])
		end := i + 2 + j
		if v, ok := c.lookup(pattern[i+2 : end]); ok {
			b.WriteString(v)
			pattern = pattern[end+1:]
			continue
		}
		// Not a token: keep "${" and rescan right after it so a real token
		// inside the braces is still found.
		b.WriteString("${")
		pattern = pattern[i+2:]
	}
}

// EventDate renders an event timestamp as YYYYMMDDHHMMSS in loc. Timestamps
// of 1e12 and above are taken as milliseconds, anything smaller as seconds.
func EventDate(ts int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var t time.Time
	if ts >= MillisThreshold {
		t = time.UnixMilli(ts)
	} else {
		t = time.Unix(ts, 0)
	}
	return t.In(loc).Format(DateLayout)
}

// PatternKey returns the setting holding the naming pattern for a message
// kind, and false when the kind has none.
func PatternKey(kind string) (settings.Key, bool) {
	switch kind {
	case domain.KindFile:
		return settings.KeyFileNameFormat, true
	case domain.KindImage:
		return settings.KeyImageNameFormat, true
	case domain.KindVideo:
		return settings.KeyVideoNameFormat, true
	case domain.KindAudio:
		return settings.KeyAudioNameFormat, true
	}
	return "", false
}

// FileName expands pattern when the kind has one, and otherwise falls back to
// the original uploaded filename.
func FileName(pattern string, ok bool, c Context) string {
	if !ok {
		return c.FileName
	}
	return Expand(pattern, c)
}
