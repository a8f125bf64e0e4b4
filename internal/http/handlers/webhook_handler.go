// Webhook HTTP handler.
//
//   - POST {WEBHOOK_PATH}   (receive a provider delivery)
//
// Signature verification happens in middleware.LineSignature before this
// handler runs. Once the body parses, the response is always 200: per-event
// failures are contained by the dispatcher and reported via the audit log.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/http/middleware"
)

// WebhookResponse acknowledges a delivery.
type WebhookResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReceiveWebhook godoc
// @ID          receiveWebhook
// @Summary     Receive a messaging webhook delivery
// @Description Verifies the X-Line-Signature header (when a channel secret is configured), then processes
// @Description every event of the delivery in order. Per-event failures do not change the response.
// @Tags        Webhook
// @Accept      json
// @Produce     json
//
// @Param       X-Line-Signature  header  string  false "Base64 HMAC-SHA256 of the body"
// @Param       body              body    domain.WebhookPayload  true  "Delivery payload"
//
// @Success     200  {object}  handlers.WebhookResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed JSON"
// @Failure     401  {object}  handlers.ErrorResponse  "Bad signature"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Router      /webhook [post]
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	var body []byte
	if v, ok := c.Get(middleware.RawBodyKey); ok {
		body, _ = v.([]byte)
	} else {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
			return
		}
		body = b
	}

	var payload domain.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidPayload, "malformed webhook payload")
		return
	}

	// Provider disconnects must not abort half-written attachments.
	ctx := context.WithoutCancel(c.Request.Context())
	summary := h.events.Dispatch(ctx, payload.Events)

	middleware.LoggerFrom(c).Debug().
		Int("events", len(payload.Events)).
		Interface("outcomes", summary).
		Msg("webhook dispatched")

	ok(c, http.StatusOK, WebhookResponse{Status: "ok"})
}
