// Package httpapi wires the HTTP transport (Gin) to the archive service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, access logging with redaction, panic recovery,
// metrics, CORS, compression, security headers, idempotency, and rate
// limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-chat-archive/docs"
	"github.com/tbourn/go-chat-archive/internal/config"
	"github.com/tbourn/go-chat-archive/internal/http/handlers"
	"github.com/tbourn/go-chat-archive/internal/http/middleware"
	"github.com/tbourn/go-chat-archive/internal/parser"
)

// Store is what the router needs from storage beyond the service: the chat
// list fingerprint for ETags and the import-key lookup for replays.
// *repo.Store implements it.
type Store interface {
	handlers.ChatsStatser
	LookupImport(ctx context.Context, clientID, key string) (string, error)
}

var allowHeaders = []string{
	"Origin", "Content-Type", "Accept", "If-None-Match",
	middleware.HeaderClientID, middleware.HeaderIdempotencyKey,
}

var exposeHeaders = []string{
	"X-Request-ID", "Content-Length", "ETag", "Location", "Retry-After", "Idempotent-Replay",
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the archive API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client, bypass on replay)
//  9. CORS, compression and security headers
func RegisterRoutes(r *gin.Engine, svc handlers.Archive, store Store, cfg config.Config, log zerolog.Logger) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log, middleware.RedactOptions{
		MaskQuery: []string{"q"},
	}))
	r.Use(middleware.Recovery())
	r.Use(middleware.BodyLimit(cfg.MaxUploadBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, clientID, key string) (bool, error) {
			_, err := store.LookupImport(ctx, clientID, key)
			return err == nil, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	r.Use(rl.Handler())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    exposeHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	base := cfg.APIBasePath
	if base == "/" {
		base = ""
	}
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{base + "/state"},
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = base
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc, store, handlers.Options{
		ImportTTL: cfg.IdempotencyTTL,
		Parser:    parser.New(parser.WithLocation(cfg.Location())),
	})
	h.Register(groupWithPrefix(r, base))
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
