package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "parkir/internal/errors"
	"parkir/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// statusForError maps the domain error taxonomy to HTTP status codes. The
// services themselves never translate errors.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrAlreadyParked),
		errors.Is(err, apperrors.ErrNoSpaceAvailable),
		errors.Is(err, apperrors.ErrSpaceOccupied),
		errors.Is(err, apperrors.ErrDuplicateTicket),
		errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body, hiding internals behind a generic
// message for unexpected errors.
func respondError(c *gin.Context, err error, logMsg string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		slog.Error(logMsg, "error", err)
		c.JSON(status, gin.H{"error": logMsg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
