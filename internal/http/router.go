// Package httpapi wires the HTTP transport (Gin) to the archiver services,
// middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, webhook signatures and rate limiting.
//
// Routes:
//   - POST {WEBHOOK_PATH}            provider deliveries (signature checked)
//   - GET  /shared/:token/*path      read-only shared folders
//   - {API_BASE_PATH}/...            admin API (bearer token, only when ADMIN_TOKEN is set)
//   - GET  /health, /metrics, /swagger/*any
//
// @title                      Chat Archiver API
// @version                    1.0
// @description                Webhook receiver, shared-folder browser and admin API of the chat attachment archiver.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the admin token.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/config"
	_ "github.com/tbourn/chat-archiver/internal/http/docs"
	"github.com/tbourn/chat-archiver/internal/http/handlers"
	"github.com/tbourn/chat-archiver/internal/http/middleware"
)

// Deps are the services behind the routes. A nil Admin leaves the admin API
// unregistered; a nil DB skips the database check in /health.
type Deps struct {
	Dispatcher handlers.EventDispatcher
	Shares     handlers.ShareBrowser
	Admin      handlers.AdminService
	DB         *gorm.DB
}

// RegisterRoutes attaches all middleware and HTTP endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with id scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// Rate limiting and gzip apply per group, not to the webhook.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Api-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", healthHandler(deps.DB))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Dispatcher, deps.Shares, deps.Admin)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByPrincipalOrIP())

	// Webhook: signature check only. The provider retries refused deliveries,
	// so it is never rate limited.
	if deps.Dispatcher != nil {
		r.POST(cfg.WebhookPath, middleware.LineSignature(cfg.Line.ChannelSecret), h.ReceiveWebhook)
	}

	if deps.Shares != nil {
		shared := r.Group("/shared",
			rl.Handler(),
			middleware.SecurityHeaders(middleware.SecurityOptions{
				ContentSecurityPolicy: middleware.SharedContentPolicy,
			}),
		)
		shared.GET("/:token/*path", h.BrowseShare)
	}

	if deps.Admin != nil && cfg.AdminToken != "" {
		admin := groupWithPrefix(r, cfg.APIBasePath)
		admin.Use(
			middleware.AdminAuth(cfg.AdminToken),
			rl.Handler(),
			gzip.Gzip(gzip.DefaultCompression),
			middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}),
		)
		admin.GET("/scopes/:scope/config", h.GetScopeConfig)
		admin.GET("/scopes/:scope/messages", h.SearchMessages)
		admin.GET("/audit", h.ListAudit)
		admin.POST("/defaults/publish", h.PublishDefaults)
	}
}

// corsMiddleware returns the CORS posture: allow all when no origins are
// configured, otherwise echo allowlisted origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Range", "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Content-Range"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// ACAO: * even without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// healthHandler reports liveness and, when db is set, database reachability.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				middleware.LoggerFrom(c).Error().Err(err).Msg("health: database unreachable")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Reads past the cap fail; LineSignature turns that into 413.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

