package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createOperatorsTable,
		createVehiclesTable,
		createParkingSpacesTable,
		createParkingTicketsTable,
		createParkingTransactionsTable,
		createOpenTransactionIndex,
		createFreeSpacesIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createOperatorsTable = `
CREATE TABLE IF NOT EXISTS operators (
    id SERIAL PRIMARY KEY,
    username VARCHAR(100) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    full_name VARCHAR(200) NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createVehiclesTable = `
CREATE TABLE IF NOT EXISTS vehicles (
    id SERIAL PRIMARY KEY,
    plate_number VARCHAR(20) UNIQUE NOT NULL,
    vehicle_type VARCHAR(50) NOT NULL DEFAULT 'Car',
    is_parked BOOLEAN NOT NULL DEFAULT FALSE,
    entry_time TIMESTAMP,
    exit_time TIMESTAMP,
    entry_image_path VARCHAR(500),
    exit_image_path VARCHAR(500),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createParkingSpacesTable = `
CREATE TABLE IF NOT EXISTS parking_spaces (
    id SERIAL PRIMARY KEY,
    space_number VARCHAR(20) UNIQUE NOT NULL,
    space_type VARCHAR(50) NOT NULL DEFAULT 'Standard',
    hourly_rate BIGINT NOT NULL DEFAULT 0,
    is_occupied BOOLEAN NOT NULL DEFAULT FALSE,
    current_vehicle_id INTEGER REFERENCES vehicles(id),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (hourly_rate >= 0),
    CHECK (is_occupied = (current_vehicle_id IS NOT NULL))
);`

const createParkingTicketsTable = `
CREATE TABLE IF NOT EXISTS parking_tickets (
    id SERIAL PRIMARY KEY,
    ticket_number VARCHAR(50) UNIQUE NOT NULL,
    barcode_data VARCHAR(100) UNIQUE NOT NULL,
    issue_time TIMESTAMP NOT NULL,
    vehicle_id INTEGER NOT NULL REFERENCES vehicles(id),
    operator_id VARCHAR(100) NOT NULL DEFAULT ''
);`

const createParkingTransactionsTable = `
CREATE TABLE IF NOT EXISTS parking_transactions (
    id SERIAL PRIMARY KEY,
    transaction_number VARCHAR(50) UNIQUE NOT NULL,
    vehicle_id INTEGER NOT NULL REFERENCES vehicles(id),
    parking_space_id INTEGER NOT NULL REFERENCES parking_spaces(id),
    entry_time TIMESTAMP NOT NULL,
    exit_time TIMESTAMP,
    hourly_rate BIGINT NOT NULL,
    duration_minutes BIGINT NOT NULL DEFAULT 0,
    total_amount BIGINT NOT NULL DEFAULT 0,
    payment_method VARCHAR(20) NOT NULL DEFAULT 'Cash',
    payment_time TIMESTAMP,
    status VARCHAR(20) NOT NULL DEFAULT 'Active',

    CHECK (status IN ('Active', 'Completed'))
);`

// At most one open transaction per vehicle. This index is what makes a
// concurrent double-entry for the same plate impossible regardless of the
// conditional update on vehicles.is_parked.
const createOpenTransactionIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS parking_transactions_open_vehicle_idx
ON parking_transactions (vehicle_id) WHERE exit_time IS NULL;`

const createFreeSpacesIndex = `
CREATE INDEX IF NOT EXISTS parking_spaces_free_idx
ON parking_spaces (id) WHERE is_occupied = FALSE;`
