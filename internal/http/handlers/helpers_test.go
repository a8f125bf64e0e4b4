package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/repo"
	"github.com/tbourn/chat-archiver/internal/services"
	"github.com/tbourn/chat-archiver/internal/settings"
)

// ---------- test plumbing ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type stubDispatcher struct {
	got   [][]json.RawMessage
	fired bool
}

func (s *stubDispatcher) Dispatch(ctx context.Context, events []json.RawMessage) services.Summary {
	s.fired = true
	s.got = append(s.got, events)
	return services.Summary{services.OutcomeIgnored: len(events)}
}

type stubAdmin struct {
	cfg     *services.ScopeConfig
	cfgErr  error
	rows    []domain.AuditLog
	total   int64
	pageErr error
	count   int64
	latest  *time.Time
	added   []settings.Key
	pubErr  error

	hits      []services.MessageHit
	searchErr error

	lastPage, lastSize int
	lastEvent          string
	lastQuery          string
	lastLimit          int
}

func (s *stubAdmin) ScopeConfig(_ context.Context, scope string) (*services.ScopeConfig, error) {
	if s.cfgErr != nil {
		return nil, s.cfgErr
	}
	if strings.TrimSpace(scope) == "" {
		return nil, settings.ErrEmptyScope
	}
	return s.cfg, nil
}

func (s *stubAdmin) AuditPage(_ context.Context, event string, page, pageSize int) ([]domain.AuditLog, int64, error) {
	s.lastEvent, s.lastPage, s.lastSize = event, page, pageSize
	return s.rows, s.total, s.pageErr
}

func (s *stubAdmin) AuditStats(context.Context, string) (int64, *time.Time, error) {
	return s.count, s.latest, nil
}

func (s *stubAdmin) SearchMessages(_ context.Context, scope, q string, limit int) ([]services.MessageHit, error) {
	s.lastQuery, s.lastLimit = q, limit
	if strings.TrimSpace(scope) == "" {
		return nil, settings.ErrEmptyScope
	}
	return s.hits, s.searchErr
}

func (s *stubAdmin) PublishDefaults(context.Context) ([]settings.Key, error) {
	return s.added, s.pubErr
}

func do(r http.Handler, method, target string, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-test")
		c.Next()
	})
	return r
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}
