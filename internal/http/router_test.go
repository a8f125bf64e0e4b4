package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/chat-archiver/internal/config"
	"github.com/tbourn/chat-archiver/internal/line"
	"github.com/tbourn/chat-archiver/internal/repo"
	"github.com/tbourn/chat-archiver/internal/settings"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
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

// fakeLine records replies and serves fixed attachment content.
type fakeLine struct {
	mu      sync.Mutex
	replies []string
	auth    []string
}

func (f *fakeLine) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/bot/message/reply", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Text string `json:"text"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		for _, m := range body.Messages {
			f.replies = append(f.replies, m.Text)
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/v2/bot/message/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("\xff\xd8\xff\xe0jpeg"))
	})
	mux.HandleFunc("/v2/bot/group/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"userId":"U1","displayName":"Alice"}`))
	})
	return mux
}

func (f *fakeLine) Replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies...)
}

func testConfig(t *testing.T, lineURL string) config.Config {
	return config.Config{
		MaxBodyBytes:  1 << 20,
		APIBasePath:   "/api/v1",
		WebhookPath:   "/webhook",
		StorageRoot:   t.TempDir(),
		PublicBaseURL: "https://bot.example.com",
		AdminToken:    "admintok",
		DedupTTL:      time.Hour,
		ProfileTTL:    time.Hour,
		Line: config.LineConfig{
			APIBaseURL:     lineURL,
			DataAPIBaseURL: lineURL,
			ChannelSecret:  "chan-secret",
			HTTPTimeout:    5 * time.Second,
		},
		RateRPS:   100,
		RateBurst: 100,
		OTEL:      config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newServer(t *testing.T) (*gin.Engine, *fakeLine, config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fl := &fakeLine{}
	api := httptest.NewServer(fl.handler())
	t.Cleanup(api.Close)

	cfg := testConfig(t, api.URL)
	db := newTestDB(t)
	deps, err := BuildDeps(db, cfg, settings.MapProperties{
		string(settings.KeyAccessToken): "line-token",
	})
	if err != nil {
		t.Fatalf("BuildDeps: %v", err)
	}
	r := gin.New()
	RegisterRoutes(r, deps, cfg)
	return r, fl, cfg
}

func postWebhook(t *testing.T, r http.Handler, secret string, events ...map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]any{"destination": "Ubot", "events": events})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(line.SignatureHeader, line.Sign(secret, body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func groupEvent(id string, msg map[string]any) map[string]any {
	return map[string]any{
		"type":           "message",
		"webhookEventId": id,
		"timestamp":      1700000000000,
		"replyToken":     "rt-" + id,
		"source":         map[string]any{"type": "group", "groupId": "G1", "userId": "U1"},
		"message":        msg,
	}
}

func TestEndToEnd_SaveThenShareThenBrowse(t *testing.T) {
	r, fl, _ := newServer(t)

	w := postWebhook(t, r, "chan-secret",
		groupEvent("E1", map[string]any{"type": "image", "id": "M1"}),
		groupEvent("E1", map[string]any{"type": "image", "id": "M1"}), // duplicate delivery
	)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook = %d %s", w.Code, w.Body.String())
	}

	w = postWebhook(t, r, "chan-secret",
		groupEvent("E2", map[string]any{"type": "text", "id": "M2", "text": " !link "}),
	)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook = %d", w.Code)
	}

	replies := fl.Replies()
	if len(replies) != 1 || !strings.HasPrefix(replies[0], "https://bot.example.com/shared/") {
		t.Fatalf("replies = %v", replies)
	}
	if fl.auth[0] != "Bearer line-token" {
		t.Fatalf("authorization = %q", fl.auth[0])
	}

	sharePath := strings.TrimPrefix(replies[0], "https://bot.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, sharePath+"image/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("browse = %d %s", w.Code, w.Body.String())
	}
	var listing struct {
		Entries []struct {
			Name string `json:"name"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.Entries) != 1 || !strings.HasSuffix(listing.Entries[0].Name, ".jpg") {
		t.Fatalf("duplicate delivery must store exactly one jpg, got %+v", listing.Entries)
	}
	if csp := w.Header().Get("Content-Security-Policy"); csp == "" {
		t.Fatalf("shared routes must carry a CSP")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, sharePath+"image/"+listing.Entries[0].Name, nil))
	if w.Code != http.StatusOK || !strings.HasSuffix(w.Body.String(), "jpeg") {
		t.Fatalf("download = %d %q", w.Code, w.Body.String())
	}
}

func TestEndToEnd_SetCommandThenAdminConfig(t *testing.T) {
	r, fl, _ := newServer(t)

	postWebhook(t, r, "chan-secret",
		groupEvent("E1", map[string]any{"type": "text", "id": "M1", "text": "!set SAVE_VIDEO=no"}),
		groupEvent("E2", map[string]any{"type": "text", "id": "M2", "text": "!set SAVE_VIDEO=maybe"}),
		groupEvent("E3", map[string]any{"type": "text", "id": "M3", "text": "!set NOPE=1"}),
	)
	if got := fl.Replies(); len(got) != 1 || got[0] != "SAVE_VIDEO = false" {
		t.Fatalf("replies = %v", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scopes/G1/config", nil)
	req.Header.Set("Authorization", "Bearer admintok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("admin config = %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `{"key":"SAVE_VIDEO","value":"false","overridden":true}`) {
		t.Fatalf("body = %s", w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("admin responses must not be cached")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scopes/G1/messages?q=save_video", nil)
	req.Header.Set("Authorization", "Bearer admintok")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || strings.Count(w.Body.String(), `"user_id":"U1"`) != 2 {
		t.Fatalf("search = %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/audit?event=Set%20config", nil)
	req.Header.Set("Authorization", "Bearer admintok")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":1`) {
		t.Fatalf("audit = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_WebhookRejectsBadSignature(t *testing.T) {
	r, fl, _ := newServer(t)

	w := postWebhook(t, r, "wrong-secret",
		groupEvent("E1", map[string]any{"type": "text", "id": "M1", "text": "!group"}),
	)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(fl.Replies()) != 0 {
		t.Fatalf("no event may run on a bad signature")
	}
}

func TestRegisterRoutes_AdminRequiresToken(t *testing.T) {
	r, _, _ := newServer(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/defaults/publish", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRegisterRoutes_AdminDisabledWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.AdminToken = ""
	deps, err := BuildDeps(newTestDB(t), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if deps.Admin != nil {
		t.Fatalf("admin service must not be built without a token")
	}
	r := gin.New()
	RegisterRoutes(r, deps, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _, _ := newServer(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("GET /metrics bad: code=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_HealthDegradedWhenDBClosed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	r := gin.New()
	RegisterRoutes(r, Deps{DB: db}, testConfig(t, "http://127.0.0.1:1"))

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	_ = sqlDB.Close()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r := gin.New()
	RegisterRoutes(r, Deps{}, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_SwaggerToggle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t, "http://127.0.0.1:1")

	r := gin.New()
	RegisterRoutes(r, Deps{}, cfg)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled: expected 404, got %d", w.Code)
	}

	cfg.SwaggerEnabled = true
	r = gin.New()
	RegisterRoutes(r, Deps{}, cfg)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/api/v1/audit") {
		t.Fatalf("swagger enabled: got %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}
