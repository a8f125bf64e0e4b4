package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveSecured(opt SecurityOptions, prep func(*http.Request), pre gin.HandlerFunc) http.Header {
	r := chain()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if prep != nil {
		prep(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_BaselineOnly(t *testing.T) {
	h := serveSecured(SecurityOptions{}, nil, nil)

	if h.Get("X-Content-Type-Options") != "nosniff" ||
		h.Get("X-Frame-Options") != "DENY" ||
		h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	for _, k := range []string{
		"Permissions-Policy", "Content-Security-Policy", "Cache-Control",
		"Strict-Transport-Security", "Access-Control-Expose-Headers",
	} {
		if h.Get(k) != "" {
			t.Fatalf("unexpected %s: %q", k, h.Get(k))
		}
	}
}

func TestSecurityHeaders_Options(t *testing.T) {
	h := serveSecured(SecurityOptions{
		NoStore:               true,
		EnablePolicy:          true,
		ContentSecurityPolicy: SharedContentPolicy,
	}, nil, nil)

	want := map[string]string{
		"Cache-Control":                     "no-store",
		"Pragma":                            "no-cache",
		"X-Permitted-Cross-Domain-Policies": "none",
		"Content-Security-Policy":           SharedContentPolicy,
	}
	for k, v := range want {
		if h.Get(k) != v {
			t.Fatalf("%s = %q; want %q", k, h.Get(k), v)
		}
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}

	if got := serveSecured(opt, nil, nil).Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("plain HTTP must not get HSTS, got %q", got)
	}

	tlsReq := func(r *http.Request) { r.TLS = &tls.ConnectionState{} }
	if got := serveSecured(opt, tlsReq, nil).Get("Strict-Transport-Security"); got != "max-age=3600; includeSubDomains; preload" {
		t.Fatalf("TLS HSTS = %q", got)
	}

	proxied := func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }
	got := serveSecured(SecurityOptions{EnableHSTS: true}, proxied, nil).Get("Strict-Transport-Security")
	if got != "max-age=15552000; includeSubDomains; preload" {
		t.Fatalf("proxied HSTS with default max-age = %q", got)
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	cases := []struct {
		existing, want string
	}{
		{"", "X-Request-ID"},
		{"ETag", "ETag, X-Request-ID"},
		{"X-Request-ID, ETag", "X-Request-ID, ETag"},
	}
	for _, tc := range cases {
		pre := func(c *gin.Context) {
			c.Header(requestIDHeader, "rid-1")
			if tc.existing != "" {
				c.Header("Access-Control-Expose-Headers", tc.existing)
			}
			c.Next()
		}
		if got := serveSecured(SecurityOptions{}, nil, pre).Get("Access-Control-Expose-Headers"); got != tc.want {
			t.Fatalf("existing %q: got %q; want %q", tc.existing, got, tc.want)
		}
	}
}

func Test_isHTTPS(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if isHTTPS(r) {
		t.Fatalf("plain request reported as HTTPS")
	}
	r.Header.Set("X-Forwarded-Proto", "https")
	if !isHTTPS(r) {
		t.Fatalf("forwarded https not detected")
	}
}
