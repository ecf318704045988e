package consumers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/stan.go"

	"parkir/internal/middleware"
	"parkir/internal/models"
	"parkir/internal/repository"
)

type Handlers struct {
	repos *repository.Repositories
}

func NewHandlers(repos *repository.Repositories) *Handlers {
	return &Handlers{repos: repos}
}

// HandleEntry processes a parking.entry event
func (h *Handlers) HandleEntry(msg *stan.Msg) {
	var event models.ParkingEntryEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal entry event", "error", err)
		return
	}

	slog.Info("Vehicle entered",
		"plate_number", event.PlateNumber,
		"space_number", event.SpaceNumber,
		"ticket_id", event.TicketID)

	h.refreshOccupancyGauge()
}

// HandleExit processes a parking.exit event
func (h *Handlers) HandleExit(msg *stan.Msg) {
	var event models.ParkingExitEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal exit event", "error", err)
		return
	}

	slog.Info("Vehicle exited",
		"plate_number", event.PlateNumber,
		"space_number", event.SpaceNumber,
		"transaction_id", event.TransactionID,
		"total_amount", event.TotalAmount)

	h.refreshOccupancyGauge()
}

func (h *Handlers) refreshOccupancyGauge() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	total, err := h.repos.Spaces.CountTotal(ctx)
	if err != nil {
		slog.Warn("Failed to count spaces for occupancy gauge", "error", err)
		return
	}
	available, err := h.repos.Spaces.CountAvailable(ctx)
	if err != nil {
		slog.Warn("Failed to count available spaces for occupancy gauge", "error", err)
		return
	}

	middleware.OccupiedSpaces.Set(float64(total - available))
}
