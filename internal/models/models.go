package models

import "time"

// EntryRequest - payload for recording a vehicle entry
type EntryRequest struct {
	PlateNumber string `json:"plate_number" binding:"required"`
	VehicleType string `json:"vehicle_type"`
}

// EntryResponse - ticket information returned after a successful entry
type EntryResponse struct {
	TicketID     int64     `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	BarcodeData  string    `json:"barcode_data"`
	PlateNumber  string    `json:"plate_number"`
	EntryTime    time.Time `json:"entry_time"`
	SpaceNumber  string    `json:"space_number"`
}

// ExitRequest - payload for recording a vehicle exit. Either the ticket
// number or the plate number identifies the open session.
type ExitRequest struct {
	TicketNumber  string `json:"ticket_number"`
	PlateNumber   string `json:"plate_number"`
	PaymentMethod string `json:"payment_method"`
}

// ExitResponse - receipt information returned after a successful exit
type ExitResponse struct {
	TransactionID   int64     `json:"transaction_id"`
	PlateNumber     string    `json:"plate_number"`
	EntryTime       time.Time `json:"entry_time"`
	ExitTime        time.Time `json:"exit_time"`
	DurationMinutes int64     `json:"duration_minutes"`
	TotalAmount     int64     `json:"total_amount"`
	PaymentMethod   string    `json:"payment_method"`
}

// CreateSpaceRequest - payload for provisioning a parking space
type CreateSpaceRequest struct {
	SpaceNumber string `json:"space_number" binding:"required"`
	SpaceType   string `json:"space_type"`
	HourlyRate  int64  `json:"hourly_rate"`
}

// UpdateSpaceRequest - payload for changing a space's type or rate
type UpdateSpaceRequest struct {
	SpaceType  *string `json:"space_type"`
	HourlyRate *int64  `json:"hourly_rate"`
}

// DashboardResponse - occupancy and revenue summary for the dashboard
type DashboardResponse struct {
	TotalSpaces         int                `json:"total_spaces"`
	AvailableSpaces     int                `json:"available_spaces"`
	OccupiedSpaces      int                `json:"occupied_spaces"`
	DailyRevenue        int64              `json:"daily_revenue"`
	WeeklyRevenue       int64              `json:"weekly_revenue"`
	MonthlyRevenue      int64              `json:"monthly_revenue"`
	RecentActivity      []ActivityItem     `json:"recent_activity"`
	VehicleDistribution []VehicleTypeCount `json:"vehicle_distribution"`
}

// ActivityItem - one row of the recent-activity feed
type ActivityItem struct {
	TransactionID int64      `json:"transaction_id"`
	PlateNumber   string     `json:"plate_number"`
	VehicleType   string     `json:"vehicle_type"`
	EntryTime     time.Time  `json:"entry_time"`
	ExitTime      *time.Time `json:"exit_time"`
	TotalAmount   int64      `json:"total_amount"`
}

// VehicleTypeCount - parked-vehicle distribution entry
type VehicleTypeCount struct {
	VehicleType string `json:"vehicle_type"`
	Count       int    `json:"count"`
}

// TransactionDocument - completed transaction as indexed for search
type TransactionDocument struct {
	ID              int64     `json:"id"`
	PlateNumber     string    `json:"plate_number"`
	SpaceNumber     string    `json:"space_number"`
	EntryTime       time.Time `json:"entry_time"`
	ExitTime        time.Time `json:"exit_time"`
	DurationMinutes int64     `json:"duration_minutes"`
	TotalAmount     int64     `json:"total_amount"`
	PaymentMethod   string    `json:"payment_method"`
}

// SearchTransactionsResponse - search hits with total count
type SearchTransactionsResponse struct {
	Total        int64                 `json:"total"`
	Transactions []TransactionDocument `json:"transactions"`
}

// ErrorResponse - error body returned by all endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}
