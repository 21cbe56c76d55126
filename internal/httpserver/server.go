package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulsetrace/pulsetrace/internal/auth"
	"github.com/pulsetrace/pulsetrace/internal/config"
	"github.com/pulsetrace/pulsetrace/internal/engine"
	"github.com/pulsetrace/pulsetrace/internal/handlers"
	"github.com/pulsetrace/pulsetrace/internal/store"
)

// NewRouter wires public endpoints, the registry admin surface, and the
// API-key-scoped event APIs.
// Public: /health, /ready, /organizations, /projects
// Authenticated: /events
func NewRouter(cfg config.Config, st store.Store, eng *engine.Engine) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.CORSOrigin))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Registry administration. Issues the credentials the event APIs
	// are scoped by.
	handlers.RegisterOrganizationRoutes(r, st)
	handlers.RegisterProjectRoutes(r, st)

	// Event APIs require a tenant context resolved from the API key.
	authGroup := r.Group("/")
	authGroup.Use(auth.APIKeyMiddleware(st))
	handlers.RegisterEventRoutes(authGroup, eng)

	return r
}
