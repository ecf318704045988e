package repository

import (
	"context"
	"database/sql"

	"parkir/internal/database"
	"parkir/internal/models"
)

type OperatorRepository struct {
	db *database.DB
}

func NewOperatorRepository(db *database.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// GetByUsername returns nil without error when no operator exists.
func (r *OperatorRepository) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	op := &models.Operator{}
	query := `
		SELECT id, username, password_hash, full_name, is_active, created_at
		FROM operators
		WHERE username = $1`

	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&op.ID,
		&op.Username,
		&op.PasswordHash,
		&op.FullName,
		&op.IsActive,
		&op.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return op, nil
}

// EnsureDefault inserts a bootstrap operator account if the username is not
// taken yet. Used at startup so a fresh deployment has a working login.
func (r *OperatorRepository) EnsureDefault(ctx context.Context, username, passwordHash, fullName string) error {
	query := `
		INSERT INTO operators (username, password_hash, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, username, passwordHash, fullName)
	return err
}
