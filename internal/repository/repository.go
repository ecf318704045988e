package repository

import (
	"errors"

	"parkir/internal/database"

	"github.com/lib/pq"
)

type Repositories struct {
	Vehicles     *VehicleRepository
	Spaces       *SpaceRepository
	Tickets      *TicketRepository
	Transactions *TransactionRepository
	Operators    *OperatorRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Vehicles:     NewVehicleRepository(db),
		Spaces:       NewSpaceRepository(db),
		Tickets:      NewTicketRepository(db),
		Transactions: NewTransactionRepository(db),
		Operators:    NewOperatorRepository(db),
	}
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return constraint == "" || pqErr.Constraint == constraint
	}
	return false
}
