package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parkir/internal/middleware"
	"parkir/internal/models"
)

// Parking session handlers

// RecordEntry - POST /api/parking/entry
// Record a vehicle entry: allocate a space, issue a ticket, open a session.
func (h *Handlers) RecordEntry(c *gin.Context) {
	var req models.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	operatorID := ""
	if username, ok := middleware.OperatorUsernameFromContext(c.Request.Context()); ok {
		operatorID = username
	}

	response, err := h.services.Sessions.RecordEntry(c.Request.Context(), &req, operatorID)
	if err != nil {
		respondError(c, err, "Failed to record vehicle entry")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// RecordExit - POST /api/parking/exit
// Record a vehicle exit: compute the fee, close the session, free the space.
func (h *Handlers) RecordExit(c *gin.Context) {
	var req models.ExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Sessions.RecordExit(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to record vehicle exit")
		return
	}

	c.JSON(http.StatusOK, response)
}
