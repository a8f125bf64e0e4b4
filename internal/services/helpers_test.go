package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/line"
	"github.com/tbourn/chat-archiver/internal/repo"
	"github.com/tbourn/chat-archiver/internal/settings"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type reply struct{ token, text string }

type fakeMessenger struct {
	mu      sync.Mutex
	replies []reply
	err     error
}

func (f *fakeMessenger) Reply(_ context.Context, token, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.replies = append(f.replies, reply{token, text})
	return nil
}

type fakeContent struct {
	data  []byte
	ctype string
	err   error
	calls int
}

func (f *fakeContent) Content(_ context.Context, _ string) (*line.Content, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &line.Content{Data: f.data, ContentType: f.ctype}, nil
}

type put struct{ scope, kind, name string }

type fakeStore struct {
	puts    []put
	folders map[string]bool
	shared  []string
	putErr  error
}

func (f *fakeStore) Put(_ context.Context, scope, kind, name string, _ []byte) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.puts = append(f.puts, put{scope, kind, name})
	if f.folders == nil {
		f.folders = map[string]bool{}
	}
	f.folders[scope] = true
	return scope + "/" + kind + "/" + name, nil
}

func (f *fakeStore) FolderExists(_ context.Context, scope string) (bool, error) {
	return f.folders[scope], nil
}

func (f *fakeStore) Share(_ context.Context, scope string) (string, error) {
	f.shared = append(f.shared, scope)
	return "https://bot.example.com/shared/tok-" + scope + "/", nil
}

type fakeProfiles struct{ err error }

func (f fakeProfiles) Profile(_ context.Context, userID, _ string) (*line.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &line.Profile{UserID: userID, DisplayName: "Name " + userID}, nil
}

// env bundles a fully wired dispatcher over fakes and an in-memory DB.
type env struct {
	db       *gorm.DB
	msgr     *fakeMessenger
	content  *fakeContent
	store    *fakeStore
	resolver *settings.Resolver
	dispatch *Dispatcher
	now      time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newSvcDB(t)
	e := &env{
		db:      db,
		msgr:    &fakeMessenger{},
		content: &fakeContent{data: []byte("\x89PNG\r\n\x1a\n0000"), ctype: "image/png"},
		store:   &fakeStore{},
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	e.resolver = settings.NewResolver(db, settings.MapProperties{})
	audit := DBAudit{DB: db}
	e.dispatch = &Dispatcher{
		Dedup:    &Deduplicator{DB: db, TTL: time.Hour, Now: func() time.Time { return e.now }},
		Settings: e.resolver,
		Archiver: &Archiver{Settings: e.resolver, Content: e.content, Store: e.store, Audit: audit, Location: time.UTC},
		Commands: &CommandRouter{
			Settings:  e.resolver,
			Writer:    &settings.Writer{DB: db},
			Store:     e.store,
			Messenger: e.msgr,
			Audit:     audit,
		},
		Messages: &MessageLogger{DB: db, Profiles: fakeProfiles{}},
		Audit:    audit,
	}
	return e
}

func (e *env) auditEvents(t *testing.T) []string {
	t.Helper()
	var rows []domain.AuditLog
	if err := e.db.Order("id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("read audit: %v", err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Event
	}
	return out
}

func mkEvent(id, kind, text string) domain.ChatEvent {
	ev := domain.ChatEvent{
		Type:           "message",
		WebhookEventID: id,
		Timestamp:      1700000000,
		ReplyToken:     "rt-" + id,
		Source:         domain.EventSource{Type: "group", UserID: "U1", GroupID: "G1"},
		Message:        &domain.EventMessage{Type: kind, ID: "M-" + id, Text: text},
	}
	if kind == domain.KindFile {
		ev.Message.FileName = "a.png"
	}
	return ev
}

func rawEvents(t *testing.T, evs ...domain.ChatEvent) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(evs))
	for i, ev := range evs {
		b, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		out[i] = b
	}
	return out
}

var errBoom = errors.New("boom")
