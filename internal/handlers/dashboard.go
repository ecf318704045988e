package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Read-side handlers

// GetDashboard - GET /api/dashboard
// Occupancy and revenue summary. Served from the Redis cache when fresh.
func (h *Handlers) GetDashboard(c *gin.Context) {
	if raw, ok := h.services.Dashboard.GetCachedRaw(c.Request.Context()); ok {
		c.Data(http.StatusOK, "application/json", raw)
		return
	}

	response, err := h.services.Dashboard.Get(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load dashboard data")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListParkedVehicles - GET /api/vehicles
func (h *Handlers) ListParkedVehicles(c *gin.Context) {
	vehicles, err := h.services.Vehicles.ListParked(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list parked vehicles")
		return
	}

	c.JSON(http.StatusOK, vehicles)
}

// SearchTransactions - GET /api/transactions/search
// Query params: plate, from, to (RFC 3339), page, pageSize.
func (h *Handlers) SearchTransactions(c *gin.Context) {
	plate := c.Query("plate")

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
		to = &t
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 100"})
		return
	}

	response, err := h.services.Transactions.Search(c.Request.Context(), plate, from, to, page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to search transactions")
		return
	}

	c.JSON(http.StatusOK, response)
}
