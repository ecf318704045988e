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

type VehicleRepository struct {
	db *database.DB
}

func NewVehicleRepository(db *database.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `id, plate_number, vehicle_type, is_parked, entry_time, exit_time,
	entry_image_path, exit_image_path, created_at, updated_at`

func scanVehicle(row *sql.Row) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	err := row.Scan(
		&v.ID,
		&v.PlateNumber,
		&v.VehicleType,
		&v.IsParked,
		&v.EntryTime,
		&v.ExitTime,
		&v.EntryImagePath,
		&v.ExitImagePath,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetByPlate looks a vehicle up by its plate number (case-sensitive match).
// Returns nil without error when no record exists.
func (r *VehicleRepository) GetByPlate(ctx context.Context, q database.Queryer, plate string) (*models.Vehicle, error) {
	query := fmt.Sprintf(`SELECT %s FROM vehicles WHERE plate_number = $1`, vehicleColumns)
	return scanVehicle(q.QueryRowContext(ctx, query, plate))
}

func (r *VehicleRepository) GetByID(ctx context.Context, q database.Queryer, id int64) (*models.Vehicle, error) {
	query := fmt.Sprintf(`SELECT %s FROM vehicles WHERE id = $1`, vehicleColumns)
	return scanVehicle(q.QueryRowContext(ctx, query, id))
}

// Create inserts a new vehicle record with is_parked=false and fills in the
// generated id.
func (r *VehicleRepository) Create(ctx context.Context, q database.Queryer, v *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (plate_number, vehicle_type, is_parked)
		VALUES ($1, $2, FALSE)
		RETURNING id, created_at, updated_at`

	err := q.QueryRowContext(ctx, query, v.PlateNumber, v.VehicleType).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if isUniqueViolation(err, "") {
		// Another entry created the same plate concurrently.
		return fmt.Errorf("create vehicle %s: %w", v.PlateNumber, apperrors.ErrConflict)
	}
	return err
}

// MarkEntering flips the vehicle to parked state. The update is conditional
// on is_parked=FALSE so that two concurrent entries for the same plate can
// never both succeed.
func (r *VehicleRepository) MarkEntering(ctx context.Context, q database.Queryer, id int64, vehicleType string, now time.Time) error {
	query := `
		UPDATE vehicles
		SET is_parked = TRUE, entry_time = $2, exit_time = NULL, vehicle_type = $3, updated_at = NOW()
		WHERE id = $1 AND is_parked = FALSE`

	result, err := q.ExecContext(ctx, query, id, now, vehicleType)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrAlreadyParked
	}
	return nil
}

// MarkExited flips the vehicle back to not-parked.
func (r *VehicleRepository) MarkExited(ctx context.Context, q database.Queryer, id int64, now time.Time) error {
	query := `
		UPDATE vehicles
		SET is_parked = FALSE, exit_time = $2, updated_at = NOW()
		WHERE id = $1`

	_, err := q.ExecContext(ctx, query, id, now)
	return err
}

// ListParked returns all currently parked vehicles.
func (r *VehicleRepository) ListParked(ctx context.Context) ([]models.Vehicle, error) {
	query := fmt.Sprintf(`SELECT %s FROM vehicles WHERE is_parked = TRUE ORDER BY entry_time`, vehicleColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		err := rows.Scan(
			&v.ID,
			&v.PlateNumber,
			&v.VehicleType,
			&v.IsParked,
			&v.EntryTime,
			&v.ExitTime,
			&v.EntryImagePath,
			&v.ExitImagePath,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}
