// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file verifies the provider's webhook signature before the body reaches
// a handler.
package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chat-archiver/internal/line"
)

// RawBodyKey holds the verified request body as []byte.
const RawBodyKey = "rawBody"

// LineSignature buffers the request body, checks X-Line-Signature against
// the channel secret and restores the body for the handler. An empty secret
// disables verification; the body is still buffered.
//
// Bodies over the http.MaxBytesReader cap installed upstream get 413.
func LineSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				abortJSON(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
				return
			}
			abortJSON(c, http.StatusBadRequest, "bad_request", "unreadable request body")
			return
		}

		if secret != "" && !line.VerifySignature(secret, body, c.GetHeader(line.SignatureHeader)) {
			LoggerFrom(c).Warn().Int("bytes", len(body)).Msg("webhook signature rejected")
			abortJSON(c, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
			return
		}

		c.Set(RawBodyKey, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// abortJSON writes the standard error envelope. Handlers use handlers.Fail;
// middleware cannot import that package.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
