// Package handlers provides the HTTP endpoints of the archiver: the webhook
// receiver, the shared-folder browser and the admin API.
//
// Every error leaves through fail/Fail as an ErrorResponse carrying a stable
// code from errors.go and the request id, e.g.
//
//	HTTP/1.1 404 Not Found
//	{"request_id":"123e4567-e89b-12d3-a456-426614174000","code":"not_found","message":"share not found"}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/chat-archiver/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts with an ErrorResponse. Server errors are logged at error
// level on the request-scoped logger, client errors at debug.
func fail(c *gin.Context, status int, code, msg string) {
	lvl := zerolog.DebugLevel
	if status >= http.StatusInternalServerError {
		lvl = zerolog.ErrorLevel
	}
	middleware.LoggerFrom(c).WithLevel(lvl).
		Int("status", status).
		Str("code", code).
		Str("message", msg).
		Msg("api error")

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for callers outside the package, such as the router's
// NoRoute and NoMethod handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
