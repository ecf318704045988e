package models

import "time"

// NATS subjects for post-commit parking events
const (
	EventParkingEntry = "parking.entry"
	EventParkingExit  = "parking.exit"
)

// ParkingEntryEvent is broadcast after an entry commits
type ParkingEntryEvent struct {
	PlateNumber string    `json:"plate_number"`
	SpaceNumber string    `json:"space_number"`
	TicketID    int64     `json:"ticket_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// ParkingExitEvent is broadcast after an exit commits
type ParkingExitEvent struct {
	PlateNumber   string    `json:"plate_number"`
	SpaceNumber   string    `json:"space_number"`
	TransactionID int64     `json:"transaction_id"`
	TotalAmount   int64     `json:"total_amount"`
	Timestamp     time.Time `json:"timestamp"`
}
