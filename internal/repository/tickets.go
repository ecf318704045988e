package repository

import (
	"context"
	"database/sql"
	"fmt"

	"parkir/internal/database"
	apperrors "parkir/internal/errors"
	"parkir/internal/models"
)

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Insert stores a newly issued ticket. The insert absorbs ticket-number and
// barcode collisions with ON CONFLICT DO NOTHING instead of raising a unique
// violation: a statement error would abort the enclosing transaction and the
// issuer could never retry with a disambiguating suffix inside it. No row
// coming back is the collision signal, reported as ErrDuplicateTicket.
func (r *TicketRepository) Insert(ctx context.Context, q database.Queryer, t *models.ParkingTicket) error {
	query := `
		INSERT INTO parking_tickets (ticket_number, barcode_data, issue_time, vehicle_id, operator_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING id`

	err := q.QueryRowContext(ctx, query,
		t.TicketNumber, t.BarcodeData, t.IssueTime, t.VehicleID, t.OperatorID).Scan(&t.ID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("ticket %s: %w", t.TicketNumber, apperrors.ErrDuplicateTicket)
	}
	return err
}

// GetByNumber returns nil without error when the ticket does not exist.
func (r *TicketRepository) GetByNumber(ctx context.Context, q database.Queryer, number string) (*models.ParkingTicket, error) {
	t := &models.ParkingTicket{}
	query := `
		SELECT id, ticket_number, barcode_data, issue_time, vehicle_id, operator_id
		FROM parking_tickets
		WHERE ticket_number = $1`

	err := q.QueryRowContext(ctx, query, number).Scan(
		&t.ID,
		&t.TicketNumber,
		&t.BarcodeData,
		&t.IssueTime,
		&t.VehicleID,
		&t.OperatorID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
