package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulsetrace/pulsetrace/internal/models"
	"github.com/pulsetrace/pulsetrace/internal/store"
)

// organizationBody is the create/update payload.
type organizationBody struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Website string `json:"website,omitempty"`
}

// RegisterOrganizationRoutes registers the organization registry CRUD.
func RegisterOrganizationRoutes(r gin.IRoutes, registry store.Registry) {
	r.POST("/organizations", createOrganization(registry))
	r.GET("/organizations", listOrganizations(registry))
	r.GET("/organizations/:id", getOrganization(registry))
	r.PUT("/organizations/:id", updateOrganization(registry))
	r.DELETE("/organizations/:id", deleteOrganization(registry))
}

func createOrganization(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body organizationBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		if strings.TrimSpace(body.Email) == "" {
			fail(c, http.StatusBadRequest, "email is required")
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			fail(c, http.StatusBadRequest, "name is required")
			return
		}

		email := strings.ToLower(strings.TrimSpace(body.Email))
		_, err := registry.GetOrganizationByEmail(c.Request.Context(), email)
		if err == nil {
			fail(c, http.StatusBadRequest, "email already exists")
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			failFromError(c, err)
			return
		}

		org := models.Organization{
			ID:      uuid.NewString(),
			Name:    strings.TrimSpace(body.Name),
			Email:   email,
			Website: strings.TrimSpace(body.Website),
		}
		if err := registry.CreateOrganization(c.Request.Context(), &org); err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusCreated, org, "Organization created successfully")
	}
}

func listOrganizations(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		search := c.Query("search")
		page, perPage := listPagination(c)

		orgs, total, err := registry.ListOrganizations(c.Request.Context(), search, (page-1)*perPage, perPage)
		if err != nil {
			failFromError(c, err)
			return
		}

		message := "Organization list fetched successfully"
		if total == 0 {
			message = "No organizations found"
		}
		respond(c, http.StatusOK, gin.H{"count": total, "organizations": orgs}, message)
	}
}

func getOrganization(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, err := registry.GetOrganization(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "Organization not found")
			return
		}
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, org, "Organization fetched successfully")
	}
}

func updateOrganization(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body organizationBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		if strings.TrimSpace(body.Name) == "" || strings.TrimSpace(body.Email) == "" {
			fail(c, http.StatusBadRequest, "name and email are required")
			return
		}

		updated, err := registry.UpdateOrganization(c.Request.Context(), models.Organization{
			ID:      c.Param("id"),
			Name:    strings.TrimSpace(body.Name),
			Email:   strings.ToLower(strings.TrimSpace(body.Email)),
			Website: strings.TrimSpace(body.Website),
		})
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "Organization not found")
			return
		}
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, updated, "Organization updated successfully")
	}
}

func deleteOrganization(registry store.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, err := registry.DeleteOrganization(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "Organization not found")
			return
		}
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, org, "Organization deleted successfully")
	}
}

// listPagination reads page/per_page with the registry defaults.
func listPagination(c *gin.Context) (page, perPage int) {
	page = intQuery(c, "page")
	if page < 1 {
		page = 1
	}
	perPage = intQuery(c, "per_page")
	if perPage < 1 {
		perPage = 10
	}
	return page, perPage
}
