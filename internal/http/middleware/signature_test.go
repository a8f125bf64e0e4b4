package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chat-archiver/internal/line"
)

func signedRouter(secret string, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	})
	r.POST("/webhook", LineSignature(secret), func(c *gin.Context) {
		raw, _ := c.Get(RawBodyKey)
		body, _ := io.ReadAll(c.Request.Body)
		if string(raw.([]byte)) != string(body) {
			c.String(http.StatusInternalServerError, "body mismatch")
			return
		}
		c.String(http.StatusOK, string(body))
	})
	return r
}

func TestLineSignature_AcceptsValidSignature(t *testing.T) {
	body := `{"destination":"x","events":[]}`
	r := signedRouter("chan-secret", 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(line.SignatureHeader, line.Sign("chan-secret", []byte(body)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != body {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestLineSignature_RejectsBadOrMissingSignature(t *testing.T) {
	body := `{"events":[]}`
	r := signedRouter("chan-secret", 1<<20)

	for name, sig := range map[string]string{
		"missing":    "",
		"wrong key":  line.Sign("other", []byte(body)),
		"not base64": "%%%",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
			if sig != "" {
				req.Header.Set(line.SignatureHeader, sig)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "invalid_signature") {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestLineSignature_EmptySecretSkipsVerification(t *testing.T) {
	r := signedRouter("", 1<<20)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
}

func TestLineSignature_TooLarge(t *testing.T) {
	r := signedRouter("", 4)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"events":[]}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d", w.Code)
	}
}
