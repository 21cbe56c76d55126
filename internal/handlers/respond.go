package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulsetrace/pulsetrace/internal/engine"
)

// response is the uniform JSON envelope for every API reply.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, response{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	respond(c, status, nil, message)
}

// failFromError maps engine errors onto HTTP status codes. Anything
// outside the engine taxonomy is a store-level fault: logged
// server-side, reported as a bare 500.
func failFromError(c *gin.Context, err error) {
	var ve *engine.ValidationError
	var ce *engine.CapacityError

	switch {
	case errors.As(err, &ve), errors.As(err, &ce):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}
