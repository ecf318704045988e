package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parkir/internal/models"
)

// Parking space provisioning handlers

// CreateSpace - POST /api/spaces
func (h *Handlers) CreateSpace(c *gin.Context) {
	var req models.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	space, err := h.services.Spaces.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create parking space")
		return
	}

	c.JSON(http.StatusCreated, space)
}

// ListSpaces - GET /api/spaces
func (h *Handlers) ListSpaces(c *gin.Context) {
	spaces, err := h.services.Spaces.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list parking spaces")
		return
	}

	c.JSON(http.StatusOK, spaces)
}

// UpdateSpace - PATCH /api/spaces/:id
func (h *Handlers) UpdateSpace(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid space id"})
		return
	}

	var req models.UpdateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	space, err := h.services.Spaces.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update parking space")
		return
	}

	c.JSON(http.StatusOK, space)
}

// DeleteSpace - DELETE /api/spaces/:id
func (h *Handlers) DeleteSpace(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid space id"})
		return
	}

	if err := h.services.Spaces.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete parking space")
		return
	}

	c.Status(http.StatusNoContent)
}
