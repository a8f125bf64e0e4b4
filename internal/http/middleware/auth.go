// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file guards the admin API with a static bearer token.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminPrincipal is the principal recorded for callers holding the admin token.
const AdminPrincipal = "admin"

// AdminAuth requires "Authorization: Bearer <token>". On success the
// principal is stored under PrincipalKey. An empty token locks the group:
// every request gets 404 so the admin surface is not advertised.
func AdminAuth(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if token == "" {
			abortJSON(c, http.StatusNotFound, "not_found", "not found")
			return
		}
		h := c.GetHeader("Authorization")
		got, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			c.Header("WWW-Authenticate", `Bearer realm="admin"`)
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing or invalid admin token")
			return
		}
		c.Set(PrincipalKey, AdminPrincipal)
		c.Next()
	}
}
