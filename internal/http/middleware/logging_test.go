package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func chain(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func TestRequestID(t *testing.T) {
	r := chain(RequestID())
	var seen string
	r.POST("/webhook", func(c *gin.Context) {
		v, _ := c.Get(requestIDKey)
		seen = asString(v)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	gen := w.Header().Get(requestIDHeader)
	if gen == "" || gen != seen {
		t.Fatalf("generated id header=%q ctx=%q", gen, seen)
	}

	for _, name := range []string{"x-request-id", requestIDHeader} {
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.Header.Set(name, "delivery-7")
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if got := w.Header().Get(requestIDHeader); got != "delivery-7" || seen != "delivery-7" {
			t.Fatalf("%s: header=%q ctx=%q", name, got, seen)
		}
	}
}

func TestRecovery_JSON500WithRequestID(t *testing.T) {
	buf := captureLogger(t)
	r := chain(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
	r.GET("/shared/:token/*path", func(c *gin.Context) { panic("nil drive") })

	req := httptest.NewRequest(http.MethodGet, "/shared/tok/a.jpg", nil)
	req.Header.Set(requestIDHeader, "rid-9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-9" {
		t.Fatalf("body = %v", body)
	}
	out := buf.String()
	if !strings.Contains(out, `"message":"panic recovered"`) || !strings.Contains(out, `"stack"`) {
		t.Fatalf("expected panic log with stack, got:\n%s", out)
	}
}

func TestRecovery_AfterWriteKeepsBody(t *testing.T) {
	captureLogger(t)
	r := chain(RequestID(), Recovery())
	r.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusOK, "partial-body")
		panic("late")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))
	if w.Body.String() != "partial-body" {
		t.Fatalf("no JSON may follow a written body, got %q", w.Body.String())
	}
}

func TestLoggerFrom(t *testing.T) {
	buf := captureLogger(t)
	r := chain(RequestID())
	r.GET("/bare", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("global")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bare", nil))
	if !strings.Contains(buf.String(), `"message":"global"`) || strings.Contains(buf.String(), `"request_id"`) {
		t.Fatalf("fallback logger output: %s", buf.String())
	}

	buf = captureLogger(t)
	r = chain(RequestID(), RedactingLogger(RedactOptions{}))
	r.GET("/scoped", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("scoped")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/scoped", nil))
	out := buf.String()
	if !strings.Contains(out, `"message":"scoped"`) || !strings.Contains(out, `"request_id"`) {
		t.Fatalf("scoped logger output: %s", out)
	}
}

func TestAsStringAndTruncate(t *testing.T) {
	if asString("x") != "x" || asString(123) != "" {
		t.Fatalf("asString failed")
	}
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("truncate(%q,%d) = %q; want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
