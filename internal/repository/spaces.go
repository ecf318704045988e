package repository

import (
	"context"
	"database/sql"
	"fmt"

	"parkir/internal/database"
	apperrors "parkir/internal/errors"
	"parkir/internal/models"
)

type SpaceRepository struct {
	db *database.DB
}

func NewSpaceRepository(db *database.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

const spaceColumns = `id, space_number, space_type, hourly_rate, is_occupied,
	current_vehicle_id, created_at, updated_at`

func scanSpace(row *sql.Row) (*models.ParkingSpace, error) {
	s := &models.ParkingSpace{}
	err := row.Scan(
		&s.ID,
		&s.SpaceNumber,
		&s.SpaceType,
		&s.HourlyRate,
		&s.IsOccupied,
		&s.CurrentVehicleID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create provisions a new free parking space.
func (r *SpaceRepository) Create(ctx context.Context, s *models.ParkingSpace) error {
	query := `
		INSERT INTO parking_spaces (space_number, space_type, hourly_rate)
		VALUES ($1, $2, $3)
		RETURNING id, is_occupied, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, s.SpaceNumber, s.SpaceType, s.HourlyRate).
		Scan(&s.ID, &s.IsOccupied, &s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err, "") {
		return fmt.Errorf("space number %s already exists: %w", s.SpaceNumber, apperrors.ErrConflict)
	}
	return err
}

func (r *SpaceRepository) List(ctx context.Context) ([]models.ParkingSpace, error) {
	query := fmt.Sprintf(`SELECT %s FROM parking_spaces ORDER BY id`, spaceColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spaces []models.ParkingSpace
	for rows.Next() {
		var s models.ParkingSpace
		err := rows.Scan(
			&s.ID,
			&s.SpaceNumber,
			&s.SpaceType,
			&s.HourlyRate,
			&s.IsOccupied,
			&s.CurrentVehicleID,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, s)
	}

	return spaces, rows.Err()
}

func (r *SpaceRepository) GetByID(ctx context.Context, q database.Queryer, id int64) (*models.ParkingSpace, error) {
	query := fmt.Sprintf(`SELECT %s FROM parking_spaces WHERE id = $1`, spaceColumns)
	return scanSpace(q.QueryRowContext(ctx, query, id))
}

// Update changes a space's type and/or hourly rate. Occupancy is never
// touched here; only the allocator mutates it.
func (r *SpaceRepository) Update(ctx context.Context, id int64, spaceType *string, hourlyRate *int64) (*models.ParkingSpace, error) {
	query := fmt.Sprintf(`
		UPDATE parking_spaces
		SET space_type = COALESCE($2, space_type),
		    hourly_rate = COALESCE($3, hourly_rate),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, spaceColumns)

	return scanSpace(r.db.QueryRowContext(ctx, query, id, spaceType, hourlyRate))
}

// Delete removes a space. Occupied spaces are refused.
func (r *SpaceRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM parking_spaces WHERE id = $1 AND is_occupied = FALSE`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		space, err := r.GetByID(ctx, r.db, id)
		if err != nil {
			return err
		}
		if space == nil {
			return apperrors.ErrNotFound
		}
		return apperrors.ErrSpaceOccupied
	}
	return nil
}

// SelectFreeForUpdate picks the free space with the lowest id and locks its
// row for the rest of the transaction. SKIP LOCKED makes concurrent entries
// take the next free space instead of queueing on the same row. Returns nil
// when no free space exists.
func (r *SpaceRepository) SelectFreeForUpdate(ctx context.Context, q database.Queryer) (*models.ParkingSpace, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM parking_spaces
		WHERE is_occupied = FALSE
		ORDER BY id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, spaceColumns)

	return scanSpace(q.QueryRowContext(ctx, query))
}

// Reserve marks the space occupied by the given vehicle. The update is
// conditional on is_occupied=FALSE; exactly one of any concurrent callers
// can win it.
func (r *SpaceRepository) Reserve(ctx context.Context, q database.Queryer, spaceID, vehicleID int64) error {
	query := `
		UPDATE parking_spaces
		SET is_occupied = TRUE, current_vehicle_id = $2, updated_at = NOW()
		WHERE id = $1 AND is_occupied = FALSE`

	result, err := q.ExecContext(ctx, query, spaceID, vehicleID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("space %d taken by another entry: %w", spaceID, apperrors.ErrConflict)
	}
	return nil
}

// Release frees the space. Releasing an already-free space is a no-op.
func (r *SpaceRepository) Release(ctx context.Context, q database.Queryer, spaceID int64) error {
	query := `
		UPDATE parking_spaces
		SET is_occupied = FALSE, current_vehicle_id = NULL, updated_at = NOW()
		WHERE id = $1 AND is_occupied = TRUE`

	_, err := q.ExecContext(ctx, query, spaceID)
	return err
}

func (r *SpaceRepository) CountTotal(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_spaces`).Scan(&count)
	return count, err
}

func (r *SpaceRepository) CountAvailable(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_spaces WHERE is_occupied = FALSE`).Scan(&count)
	return count, err
}
