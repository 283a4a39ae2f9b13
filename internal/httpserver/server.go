package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/intake-edge/internal/auth"
	"github.com/PratikDhanave/intake-edge/internal/config"
	"github.com/PratikDhanave/intake-edge/internal/edge"
	"github.com/PratikDhanave/intake-edge/internal/handlers"
	"github.com/PratikDhanave/intake-edge/internal/intake"
	"github.com/PratikDhanave/intake-edge/internal/logging"
	"github.com/PratikDhanave/intake-edge/internal/notify"
	"github.com/PratikDhanave/intake-edge/internal/upstream"
)

// Store is everything the routes persist to.
type Store interface {
	handlers.EventStore
	handlers.CRMStore
	handlers.InboundStore
	handlers.GmailStore
	Ping(ctx context.Context) error
}

// Deps are the collaborators NewRouter wires into the routes.
type Deps struct {
	Store   Store
	Secrets config.Secrets
	Logger  zerolog.Logger
	Inbox   *notify.Hub
	// Upstreams overrides third-party endpoints; zero uses the public APIs.
	Upstreams handlers.Upstreams
}

// NewRouter wires public endpoints and authenticated APIs.
// Public: /health, /ready, /functions/* (except track-event)
// Authenticated: /functions/track-event, /metrics, /api/*
func NewRouter(cfg config.Config, d Deps) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	validator, err := intake.New()
	if err != nil {
		return nil, err
	}
	if d.Inbox == nil {
		d.Inbox = notify.NewHub(d.Logger)
	}
	if d.Upstreams.HTTP == nil {
		d.Upstreams.HTTP = upstream.NewHTTPClient()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	// CORS runs before auth so pre-flight never needs credentials.
	r.Use(edge.Recovery(d.Logger), logging.AccessLog(d.Logger), edge.CORS(), edge.WithLogger(d.Logger))
	r.NoRoute(edge.NoRoute)
	r.NoMethod(edge.NoMethod)

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := d.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	fns := &handlers.Functions{
		Secrets:   d.Secrets,
		AppURL:    cfg.AppURL,
		Upstreams: d.Upstreams,
		Inbound:   d.Store,
		Gmail:     d.Store,
		Inbox:     d.Inbox,
	}
	if cfg.SendRatePerMinute > 0 {
		fns.SendLimit = edge.PerMinute(cfg.SendRatePerMinute)
	}
	handlers.RegisterFunctionRoutes(r, fns)

	// Auth group enforces tenant context via the API key.
	authGroup := r.Group("/")
	authGroup.Use(auth.APIKeyMiddleware(cfg.APIKeys))

	handlers.RegisterEventRoutes(authGroup, d.Store)
	handlers.RegisterMetricRoutes(authGroup, d.Store)
	handlers.RegisterCRMRoutes(authGroup, d.Store, validator)
	authGroup.GET("/api/inbox/stream", gin.WrapH(d.Inbox))

	return r, nil
}
