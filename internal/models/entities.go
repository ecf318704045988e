package models

import (
	"time"
)

// Vehicle statuses follow a two-state lifecycle: a vehicle is either parked
// (it has an open transaction) or not. The record is created on first entry
// and reused on every subsequent visit.
type Vehicle struct {
	ID             int64      `json:"id" db:"id"`
	PlateNumber    string     `json:"plate_number" db:"plate_number"`
	VehicleType    string     `json:"vehicle_type" db:"vehicle_type"`
	IsParked       bool       `json:"is_parked" db:"is_parked"`
	EntryTime      *time.Time `json:"entry_time" db:"entry_time"`
	ExitTime       *time.Time `json:"exit_time" db:"exit_time"`
	EntryImagePath *string    `json:"entry_image_path,omitempty" db:"entry_image_path"`
	ExitImagePath  *string    `json:"exit_image_path,omitempty" db:"exit_image_path"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// ParkingSpace represents one physical space. IsOccupied is true exactly
// when CurrentVehicleID is set; only the allocator mutates either field.
// HourlyRate is in minor currency units.
type ParkingSpace struct {
	ID               int64     `json:"id" db:"id"`
	SpaceNumber      string    `json:"space_number" db:"space_number"`
	SpaceType        string    `json:"space_type" db:"space_type"`
	HourlyRate       int64     `json:"hourly_rate" db:"hourly_rate"`
	IsOccupied       bool      `json:"is_occupied" db:"is_occupied"`
	CurrentVehicleID *int64    `json:"current_vehicle_id" db:"current_vehicle_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// ParkingTicket is issued once per entry and never mutated afterwards.
type ParkingTicket struct {
	ID           int64     `json:"id" db:"id"`
	TicketNumber string    `json:"ticket_number" db:"ticket_number"`
	BarcodeData  string    `json:"barcode_data" db:"barcode_data"`
	IssueTime    time.Time `json:"issue_time" db:"issue_time"`
	VehicleID    int64     `json:"vehicle_id" db:"vehicle_id"`
	OperatorID   string    `json:"operator_id" db:"operator_id"`
}

// Transaction statuses
const (
	TransactionActive    = "Active"
	TransactionCompleted = "Completed"
)

// ParkingTransaction records one parking session. A NULL exit_time marks the
// session as open; this is the authoritative "currently parked" marker used
// by exit lookup. HourlyRate is captured at entry time so that later rate
// changes on the space cannot skew the fee. Amounts are minor currency units.
type ParkingTransaction struct {
	ID                int64      `json:"id" db:"id"`
	TransactionNumber string     `json:"transaction_number" db:"transaction_number"`
	VehicleID         int64      `json:"vehicle_id" db:"vehicle_id"`
	ParkingSpaceID    int64      `json:"parking_space_id" db:"parking_space_id"`
	EntryTime         time.Time  `json:"entry_time" db:"entry_time"`
	ExitTime          *time.Time `json:"exit_time" db:"exit_time"`
	HourlyRate        int64      `json:"hourly_rate" db:"hourly_rate"`
	DurationMinutes   int64      `json:"duration_minutes" db:"duration_minutes"`
	TotalAmount       int64      `json:"total_amount" db:"total_amount"`
	PaymentMethod     string     `json:"payment_method" db:"payment_method"`
	PaymentTime       *time.Time `json:"payment_time" db:"payment_time"`
	Status            string     `json:"status" db:"status"`
}

// Operator is a gate attendant account used for Basic Auth and recorded on
// every issued ticket.
type Operator struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
