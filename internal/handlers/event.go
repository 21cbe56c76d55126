package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulsetrace/pulsetrace/internal/auth"
	"github.com/pulsetrace/pulsetrace/internal/engine"
	"github.com/pulsetrace/pulsetrace/internal/models"
)

// RegisterEventRoutes registers the core ingestion and query surface.
// Every route requires a resolved tenant context (X-API-Key).
//
//	POST   /events        ingest a batch (partial-failure tolerant)
//	GET    /events        filtered, paginated list
//	GET    /events/stats  tenant-scoped summary aggregate
//	GET    /events/:id    fetch by event_id
//	DELETE /events/:id    hard delete by event_id
func RegisterEventRoutes(r gin.IRoutes, eng *engine.Engine) {
	r.POST("/events", ingestEvents(eng))
	r.GET("/events", listEvents(eng))
	r.GET("/events/stats", getEventStats(eng))
	r.GET("/events/:id", getEventByID(eng))
	r.DELETE("/events/:id", deleteEvent(eng))
}

// ingestEvents accepts a batch of raw events. 201 when every record was
// inserted, 207 when some were dropped as duplicates (idempotent
// no-ops, not errors).
func ingestEvents(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid JSON payload")
			return
		}

		md := models.RequestMetadata{
			UserAgent: c.Request.UserAgent(),
			IPAddress: c.ClientIP(),
		}

		result, err := eng.Ingest(c.Request.Context(), req.Events, auth.TenantContext(c), md)
		if err != nil {
			failFromError(c, err)
			return
		}

		if result.Duplicates > 0 {
			respond(c, http.StatusMultiStatus, result,
				fmt.Sprintf("%d events ingested, %d duplicates ignored", result.Ingested, result.Duplicates))
			return
		}
		respond(c, http.StatusCreated, result,
			fmt.Sprintf("%d events ingested successfully", result.Ingested))
	}
}

func listEvents(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := engine.ListParams{
			UserID:    c.Query("user_id"),
			EventName: c.Query("event_name"),
			SessionID: c.Query("session_id"),
			Page:      intQuery(c, "page"),
			Limit:     intQuery(c, "limit"),
		}

		start, ok := timeQuery(c, "start_date")
		if !ok {
			return
		}
		end, ok := timeQuery(c, "end_date")
		if !ok {
			return
		}
		params.Start = start
		params.End = end

		page, err := eng.List(c.Request.Context(), params, auth.TenantContext(c))
		if err != nil {
			failFromError(c, err)
			return
		}

		message := "Events fetched successfully"
		if page.TotalCount == 0 {
			message = "No events found"
		}
		respond(c, http.StatusOK, page, message)
	}
}

func getEventByID(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ev, err := eng.GetByID(c.Request.Context(), c.Param("id"), auth.TenantContext(c))
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, ev, "Event fetched successfully")
	}
}

func deleteEvent(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ev, err := eng.DeleteByID(c.Request.Context(), c.Param("id"), auth.TenantContext(c))
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, ev, "Event deleted successfully")
	}
}

func getEventStats(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := eng.Stats(c.Request.Context(), auth.TenantContext(c))
		if err != nil {
			failFromError(c, err)
			return
		}
		respond(c, http.StatusOK, stats, "Event statistics fetched successfully")
	}
}

// intQuery parses an integer query parameter; absent or malformed
// values yield 0, which the engine replaces with its defaults.
func intQuery(c *gin.Context, name string) int {
	v, _ := strconv.Atoi(c.Query(name))
	return v
}

// timeQuery parses an optional RFC3339 query parameter. On a malformed
// value it writes a 400 and reports ok=false.
func timeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		fail(c, http.StatusBadRequest, name+" must be RFC3339")
		return nil, false
	}
	t = t.UTC()
	return &t, true
}
