// Admin HTTP handlers.
//
//   - GET  /scopes/{scope}/config   (effective settings of a conversation)
//   - GET  /scopes/{scope}/messages (rank logged messages against ?q=)
//   - GET  /audit                   (audit trail, paginated, ETag support)
//   - POST /defaults/publish        (write built-in defaults as global rows)
//
// All routes sit behind middleware.AdminAuth.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/services"
	"github.com/tbourn/chat-archiver/internal/settings"
	"github.com/tbourn/chat-archiver/internal/utils"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// ListAuditResponse wraps a page of audit rows and pagination information.
type ListAuditResponse struct {
	Entries    []domain.AuditLog `json:"entries"`
	Pagination Pagination        `json:"pagination"`
}

// SearchMessagesResponse holds ranked message log hits.
type SearchMessagesResponse struct {
	Query string                `json:"query" example:"trip photos"`
	Hits  []services.MessageHit `json:"hits"`
}

// PublishDefaultsResponse lists the keys whose defaults were written.
type PublishDefaultsResponse struct {
	Added []string `json:"added" example:"SAVE_IMAGE,COMMAND_GET_LINK"`
}

// GetScopeConfig godoc
// @ID          getScopeConfig
// @Summary     Effective configuration of a conversation
// @Description Resolves every non-secret setting for the scope through all tiers and flags keys with a scope override.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       scope  path  string  true  "Group or user id"
//
// @Success     200  {object}  services.ScopeConfig
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/scopes/{scope}/config [get]
func (h *Handlers) GetScopeConfig(c *gin.Context) {
	cfg, err := h.admin.ScopeConfig(c.Request.Context(), c.Param("scope"))
	if err != nil {
		if errors.Is(err, settings.ErrEmptyScope) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "scope required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeConfigFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, cfg)
}

// SearchMessages godoc
// @ID          searchMessages
// @Summary     Search the message log of a conversation
// @Description Ranks the most recent logged text messages of the scope by word overlap with q.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       scope  path   string  true   "Group or user id"
// @Param       q      query  string  true   "Search text"
// @Param       limit  query  int     false  "Maximum hits"  minimum(1) maximum(50) default(10)
//
// @Success     200  {object}  handlers.SearchMessagesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/scopes/{scope}/messages [get]
func (h *Handlers) SearchMessages(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q required")
		return
	}
	limit := utils.AtoiDefault(c.Query("limit"), defaultSearchLimit)
	if limit < 1 {
		limit = defaultSearchLimit
	}
	limit = utils.Clamp(limit, 1, maxSearchLimit)

	hits, err := h.admin.SearchMessages(c.Request.Context(), c.Param("scope"), q, limit)
	if err != nil {
		if errors.Is(err, settings.ErrEmptyScope) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "scope required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, SearchMessagesResponse{Query: q, Hits: hits})
}

// ListAudit godoc
// @ID          listAudit
// @Summary     List audit entries (paginated)
// @Description Returns audit rows newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"audit::12:1700000000\")
// @Param       event          query   string  false "Filter by event tag"         example(Save file)
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(200) default(50)
//
// @Success     200  {object} handlers.ListAuditResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/audit [get]
func (h *Handlers) ListAudit(c *gin.Context) {
	ctx := c.Request.Context()
	event := strings.TrimSpace(c.Query("event"))
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.admin.AuditStats(ctx, event); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"audit:%s:%d:%d:%d:%d"`, event, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	rows, total, err := h.admin.AuditPage(ctx, event, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListAuditResponse{
		Entries:    rows,
		Pagination: newPagination(page, pageSize, total),
	})
}

// PublishDefaults godoc
// @ID          publishDefaults
// @Summary     Publish built-in defaults
// @Description Writes the built-in default of every key lacking a global default row. Existing rows are kept.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.PublishDefaultsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/defaults/publish [post]
func (h *Handlers) PublishDefaults(c *gin.Context) {
	added, err := h.admin.PublishDefaults(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodePublishFailed, err.Error())
		return
	}
	keys := make([]string, 0, len(added))
	for _, k := range added {
		keys = append(keys, string(k))
	}
	ok(c, http.StatusOK, PublishDefaultsResponse{Added: keys})
}
