package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulsetrace/pulsetrace/internal/models"
	"github.com/pulsetrace/pulsetrace/internal/store"
	"github.com/pulsetrace/pulsetrace/internal/token"
)

// projectBody is the create/update payload. API keys are always
// generated server-side, never accepted from the caller.
type projectBody struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	OrganizationID string `json:"organization_id"`
}

// RegisterProjectRoutes registers the project registry CRUD plus API
// key rotation.
func RegisterProjectRoutes(r gin.IRoutes, registry store.Registry) {
	r.POST("/projects", createProject(registry))
	r.GET("/projects", listProjects(registry))
	r.GET("/projects/:id", getProject(registry))
	r.PUT("/projects/:id", updateProject(registry))
	r.DELETE("/projects/:id", deleteProject(registry))
	r.POST("/projects/:id/regenerate", regenerateAPIKey(registry))
}

func createProject(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body projectBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		if strings.TrimSpace(body.OrganizationID) == "" {
			fail(c, http.StatusBadRequest, "organization_id is required")
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			fail(c, http.StatusBadRequest, "name is required")
			return
		}

		if _, err := registry.GetOrganization(c.Request.Context(), body.OrganizationID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				fail(c, http.StatusBadRequest, "organization not found")
				return
			}
			failFromError(c, err)
			return
		}

		p := models.Project{
			ID:             uuid.NewString(),
			Name:           strings.TrimSpace(body.Name),
			Description:    strings.TrimSpace(body.Description),
			OrganizationID: body.OrganizationID,
			APIKey:         token.NewAPIKey(),
		}
		if err := registry.CreateProject(c.Request.Context(), &p); err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusCreated, p, "Project created successfully")
	}
}

func listProjects(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		search := c.Query("search")
		page, perPage := listPagination(c)

		projects, total, err := registry.ListProjects(c.Request.Context(), search, (page-1)*perPage, perPage)
		if err != nil {
			failFromError(c, err)
			return
		}

		message := "Project list fetched successfully"
		if total == 0 {
			message = "No projects found"
		}
		respond(c, http.StatusOK, gin.H{"count": total, "projects": projects}, message)
	}
}

func getProject(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := registry.GetProject(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "Project not found")
			return
		}
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, p, "Project fetched successfully")
	}
}

func updateProject(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body projectBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "invalid JSON payload")
			return
		}

		existing, err := registry.GetProject(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "Project not found")
			return
		}
		if err != nil {
			failFromError(c, err)
			return
		}

		if body.Name != "" {
			existing.Name = strings.TrimSpace(body.Name)
		}
		existing.Description = strings.TrimSpace(body.Description)
		if body.OrganizationID != "" {
			existing.OrganizationID = body.OrganizationID
		}

		updated, err := registry.UpdateProject(c.Request.Context(), existing)
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, updated, "Project updated successfully")
	}
}

func deleteProject(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := registry.DeleteProject(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "Project not found")
			return
		}
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, p, "Project deleted successfully")
	}
}

// regenerateAPIKey rotates a project's API key. The previous key stops
// resolving immediately.
func regenerateAPIKey(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := registry.ResetProjectAPIKey(c.Request.Context(), c.Param("id"), token.NewAPIKey())
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "Project not found")
			return
		}
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, p, "API key regenerated successfully")
	}
}
