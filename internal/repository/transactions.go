package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parkir/internal/database"
	apperrors "parkir/internal/errors"
	"parkir/internal/models"
)

type TransactionRepository struct {
	db *database.DB
}

func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, transaction_number, vehicle_id, parking_space_id, entry_time,
	exit_time, hourly_rate, duration_minutes, total_amount, payment_method, payment_time, status`

func scanTransaction(row *sql.Row) (*models.ParkingTransaction, error) {
	t := &models.ParkingTransaction{}
	err := row.Scan(
		&t.ID,
		&t.TransactionNumber,
		&t.VehicleID,
		&t.ParkingSpaceID,
		&t.EntryTime,
		&t.ExitTime,
		&t.HourlyRate,
		&t.DurationMinutes,
		&t.TotalAmount,
		&t.PaymentMethod,
		&t.PaymentTime,
		&t.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Insert opens a new transaction. The partial unique index on open
// transactions turns a concurrent double-entry into ErrAlreadyParked; a
// transaction-number collision becomes ErrConflict and the operation can be
// retried as a whole.
func (r *TransactionRepository) Insert(ctx context.Context, q database.Queryer, t *models.ParkingTransaction) error {
	query := `
		INSERT INTO parking_transactions
			(transaction_number, vehicle_id, parking_space_id, entry_time, hourly_rate, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := q.QueryRowContext(ctx, query,
		t.TransactionNumber, t.VehicleID, t.ParkingSpaceID, t.EntryTime,
		t.HourlyRate, t.PaymentMethod, t.Status).Scan(&t.ID)
	if isUniqueViolation(err, "parking_transactions_open_vehicle_idx") {
		return fmt.Errorf("vehicle %d has an open transaction: %w", t.VehicleID, apperrors.ErrAlreadyParked)
	}
	if isUniqueViolation(err, "") {
		return fmt.Errorf("transaction %s: %w", t.TransactionNumber, apperrors.ErrConflict)
	}
	return err
}

// GetOpenByVehicleForUpdate locks and returns the vehicle's open
// transaction, or nil when there is none.
func (r *TransactionRepository) GetOpenByVehicleForUpdate(ctx context.Context, q database.Queryer, vehicleID int64) (*models.ParkingTransaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM parking_transactions
		WHERE vehicle_id = $1 AND exit_time IS NULL
		FOR UPDATE`, transactionColumns)

	return scanTransaction(q.QueryRowContext(ctx, query, vehicleID))
}

// Complete closes an open transaction with the computed fee. Conditional on
// exit_time still being NULL; a lost race is a conflict, not a double bill.
func (r *TransactionRepository) Complete(ctx context.Context, q database.Queryer, id int64, exitTime time.Time, durationMinutes, totalAmount int64, paymentMethod string) error {
	query := `
		UPDATE parking_transactions
		SET exit_time = $2, duration_minutes = $3, total_amount = $4,
		    payment_method = $5, payment_time = $2, status = $6
		WHERE id = $1 AND exit_time IS NULL`

	result, err := q.ExecContext(ctx, query,
		id, exitTime, durationMinutes, totalAmount, paymentMethod, models.TransactionCompleted)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d already completed: %w", id, apperrors.ErrConflict)
	}
	return nil
}

// RecentActivity returns the latest transactions joined with their vehicles,
// newest entry first.
func (r *TransactionRepository) RecentActivity(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	query := `
		SELECT t.id, v.plate_number, v.vehicle_type, t.entry_time, t.exit_time, t.total_amount
		FROM parking_transactions t
		JOIN vehicles v ON v.id = t.vehicle_id
		ORDER BY t.entry_time DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ActivityItem
	for rows.Next() {
		var item models.ActivityItem
		err := rows.Scan(
			&item.TransactionID,
			&item.PlateNumber,
			&item.VehicleType,
			&item.EntryTime,
			&item.ExitTime,
			&item.TotalAmount,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// RevenueSince sums the fees of transactions paid at or after the cutoff.
func (r *TransactionRepository) RevenueSince(ctx context.Context, since time.Time) (int64, error) {
	var revenue int64
	query := `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM parking_transactions
		WHERE status = $1 AND payment_time >= $2`

	err := r.db.QueryRowContext(ctx, query, models.TransactionCompleted, since).Scan(&revenue)
	return revenue, err
}

// ParkedTypeDistribution groups currently parked vehicles by declared type.
func (r *TransactionRepository) ParkedTypeDistribution(ctx context.Context) ([]models.VehicleTypeCount, error) {
	query := `
		SELECT vehicle_type, COUNT(*)
		FROM vehicles
		WHERE is_parked = TRUE
		GROUP BY vehicle_type
		ORDER BY vehicle_type`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.VehicleTypeCount
	for rows.Next() {
		var c models.VehicleTypeCount
		if err := rows.Scan(&c.VehicleType, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}
