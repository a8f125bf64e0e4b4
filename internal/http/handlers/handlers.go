// Webhook and share HTTP handlers.
package handlers

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chat-archiver/internal/domain"
	"github.com/tbourn/chat-archiver/internal/services"
	"github.com/tbourn/chat-archiver/internal/settings"
	"github.com/tbourn/chat-archiver/internal/storage"
	"github.com/tbourn/chat-archiver/internal/utils"
)

//
// Service contracts (context-aware)
//

// EventDispatcher processes the events of one webhook delivery.
type EventDispatcher interface {
	Dispatch(ctx context.Context, events []json.RawMessage) services.Summary
}

// ShareBrowser resolves share tokens and reads the shared folder.
type ShareBrowser interface {
	ResolveShare(ctx context.Context, token string) (string, error)
	Stat(scopeID, rel string) (fs.FileInfo, error)
	List(scopeID, rel string) ([]storage.Entry, error)
	Open(scopeID, rel string) (*os.File, error)
}

// AdminService exposes the operator view of settings and the audit trail.
type AdminService interface {
	ScopeConfig(ctx context.Context, scopeID string) (*services.ScopeConfig, error)
	AuditPage(ctx context.Context, event string, page, pageSize int) ([]domain.AuditLog, int64, error)
	AuditStats(ctx context.Context, event string) (int64, *time.Time, error)
	PublishDefaults(ctx context.Context) ([]settings.Key, error)
	SearchMessages(ctx context.Context, scopeID, query string, limit int) ([]services.MessageHit, error)
}

// Handlers groups the HTTP endpoints. Any dependency may be nil when the
// corresponding routes are not registered.
type Handlers struct {
	events EventDispatcher
	shares ShareBrowser
	admin  AdminService
}

// New constructs a Handlers bound to the given services.
func New(events EventDispatcher, shares ShareBrowser, admin AdminService) *Handlers {
	return &Handlers{events: events, shares: shares, admin: admin}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.Clamp(utils.AtoiDefault(c.Query("page"), defaultPage), 1, 0)
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
