// Package auth resolves a presented API credential to the tenant
// context every core operation is scoped by.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pulsetrace/pulsetrace/internal/models"
	"github.com/pulsetrace/pulsetrace/internal/store"
)

// Gin context keys for the resolved tenant scope.
const (
	orgCtxKey     = "organization_id"
	projectCtxKey = "project_id"
)

// APIKeyMiddleware enforces multi-tenancy by resolving the presented
// key to its project via the registry. The key comes from X-API-Key or
// an Authorization bearer token and must carry the sk_ prefix; lookup
// failures are reported identically to avoid probing.
func APIKeyMiddleware(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if apiKey == "" {
			apiKey = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		}

		if apiKey == "" {
			abort(c, http.StatusUnauthorized, "API key is required in headers (X-API-Key)")
			return
		}
		if !strings.HasPrefix(apiKey, "sk_") {
			abort(c, http.StatusUnauthorized, "invalid API key format")
			return
		}

		project, err := registry.GetProjectByAPIKey(c.Request.Context(), apiKey)
		if errors.Is(err, store.ErrNotFound) {
			abort(c, http.StatusUnauthorized, "invalid or inactive API key")
			return
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "failed to resolve API key")
			return
		}

		c.Set(orgCtxKey, project.OrganizationID)
		c.Set(projectCtxKey, project.ID)
		c.Next()
	}
}

// TenantContext returns the resolved tenant scope from the request
// context. Unresolved fields stay empty; the engine rejects those
// before touching the store.
func TenantContext(c *gin.Context) models.TenantContext {
	return models.TenantContext{
		OrganizationID: c.GetString(orgCtxKey),
		ProjectID:      c.GetString(projectCtxKey),
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message, "data": nil})
}
