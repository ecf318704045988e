package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parkir/internal/database"
	apperrors "parkir/internal/errors"
	"parkir/internal/logger"
	"parkir/internal/models"
)

// Clock supplies "now" so entry and exit times are deterministic in tests.
type Clock func() time.Time

// IDGenerator supplies disambiguating suffixes for ticket and transaction
// numbers; injectable so collision handling can be tested deterministically.
type IDGenerator func() string

func defaultIDGenerator() string {
	return uuid.New().String()[:8]
}

// Narrow store interfaces over the repositories, so the coordinator can be
// exercised against in-memory fakes. The Queryer argument is the enclosing
// transaction; fakes ignore it.
type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type vehicleStore interface {
	GetByPlate(ctx context.Context, q database.Queryer, plate string) (*models.Vehicle, error)
	GetByID(ctx context.Context, q database.Queryer, id int64) (*models.Vehicle, error)
	Create(ctx context.Context, q database.Queryer, v *models.Vehicle) error
	MarkEntering(ctx context.Context, q database.Queryer, id int64, vehicleType string, now time.Time) error
	MarkExited(ctx context.Context, q database.Queryer, id int64, now time.Time) error
}

type spaceStore interface {
	SelectFreeForUpdate(ctx context.Context, q database.Queryer) (*models.ParkingSpace, error)
	Reserve(ctx context.Context, q database.Queryer, spaceID, vehicleID int64) error
	Release(ctx context.Context, q database.Queryer, spaceID int64) error
	GetByID(ctx context.Context, q database.Queryer, id int64) (*models.ParkingSpace, error)
}

type ticketStore interface {
	Insert(ctx context.Context, q database.Queryer, t *models.ParkingTicket) error
	GetByNumber(ctx context.Context, q database.Queryer, number string) (*models.ParkingTicket, error)
}

type transactionStore interface {
	Insert(ctx context.Context, q database.Queryer, t *models.ParkingTransaction) error
	GetOpenByVehicleForUpdate(ctx context.Context, q database.Queryer, vehicleID int64) (*models.ParkingTransaction, error)
	Complete(ctx context.Context, q database.Queryer, id int64, exitTime time.Time, durationMinutes, totalAmount int64, paymentMethod string) error
}

type eventPublisher interface {
	Publish(subject string, data interface{}) error
}

type transactionIndexer interface {
	IndexTransaction(ctx context.Context, doc models.TransactionDocument) error
}

type dashboardInvalidator interface {
	InvalidateDashboard(ctx context.Context) error
}

// Payment methods accepted at the exit gate.
var validPaymentMethods = map[string]bool{
	"Cash":    true,
	"Card":    true,
	"EWallet": true,
}

const defaultVehicleType = "Car"

// SessionService coordinates the parking session lifecycle: it owns the
// multi-record write (vehicle, space, ticket, transaction) on entry and
// exit. All writes of one operation share a single database transaction;
// notification, search indexing and cache invalidation run after the commit
// and are best-effort.
type SessionService struct {
	db           txRunner
	vehicles     vehicleStore
	spaces       spaceStore
	tickets      ticketStore
	transactions transactionStore
	publisher    eventPublisher
	indexer      transactionIndexer
	cache        dashboardInvalidator
	clock        Clock
	idGen        IDGenerator
}

func NewSessionService(db txRunner, vehicles vehicleStore, spaces spaceStore, tickets ticketStore, transactions transactionStore) *SessionService {
	return &SessionService{
		db:           db,
		vehicles:     vehicles,
		spaces:       spaces,
		tickets:      tickets,
		transactions: transactions,
		clock:        time.Now,
		idGen:        defaultIDGenerator,
	}
}

// WithPublisher attaches the post-commit event sink.
func (s *SessionService) WithPublisher(p eventPublisher) *SessionService {
	s.publisher = p
	return s
}

// WithIndexer attaches the post-commit search indexer.
func (s *SessionService) WithIndexer(i transactionIndexer) *SessionService {
	s.indexer = i
	return s
}

// WithCache attaches the dashboard cache for post-commit invalidation.
func (s *SessionService) WithCache(c dashboardInvalidator) *SessionService {
	s.cache = c
	return s
}

// WithClock overrides the time source.
func (s *SessionService) WithClock(clock Clock) *SessionService {
	s.clock = clock
	return s
}

// WithIDGenerator overrides the suffix generator.
func (s *SessionService) WithIDGenerator(gen IDGenerator) *SessionService {
	s.idGen = gen
	return s
}

// RecordEntry allocates a space, issues a ticket and opens a transaction for
// an arriving vehicle, all in one atomic write. A lost conditional update is
// retried once before the conflict is surfaced.
func (s *SessionService) RecordEntry(ctx context.Context, req *models.EntryRequest, operatorID string) (*models.EntryResponse, error) {
	plate := strings.TrimSpace(req.PlateNumber)
	if plate == "" {
		return nil, fmt.Errorf("plate number is required: %w", apperrors.ErrValidation)
	}
	vehicleType := req.VehicleType
	if vehicleType == "" {
		vehicleType = defaultVehicleType
	}

	resp, err := s.recordEntryOnce(ctx, plate, vehicleType, operatorID)
	if errors.Is(err, apperrors.ErrConflict) {
		resp, err = s.recordEntryOnce(ctx, plate, vehicleType, operatorID)
	}
	return resp, err
}

func (s *SessionService) recordEntryOnce(ctx context.Context, plate, vehicleType, operatorID string) (*models.EntryResponse, error) {
	now := s.clock()

	var resp *models.EntryResponse
	var event models.ParkingEntryEvent

	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		vehicle, err := s.vehicles.GetByPlate(ctx, tx, plate)
		if err != nil {
			return fmt.Errorf("failed to look up vehicle: %w", err)
		}
		if vehicle == nil {
			vehicle = &models.Vehicle{PlateNumber: plate, VehicleType: vehicleType}
			if err := s.vehicles.Create(ctx, tx, vehicle); err != nil {
				return fmt.Errorf("failed to create vehicle: %w", err)
			}
		} else if vehicle.IsParked {
			return fmt.Errorf("vehicle %s: %w", plate, apperrors.ErrAlreadyParked)
		}

		// Conditional on is_parked=FALSE; loses to a concurrent entry for
		// the same plate.
		if err := s.vehicles.MarkEntering(ctx, tx, vehicle.ID, vehicleType, now); err != nil {
			return err
		}

		space, err := s.spaces.SelectFreeForUpdate(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to select free space: %w", err)
		}
		if space == nil {
			return apperrors.ErrNoSpaceAvailable
		}
		if err := s.spaces.Reserve(ctx, tx, space.ID, vehicle.ID); err != nil {
			return err
		}

		ticket, err := s.issueTicket(ctx, tx, vehicle, operatorID, now)
		if err != nil {
			return err
		}

		transaction := &models.ParkingTransaction{
			TransactionNumber: transactionNumber(now, s.idGen()),
			VehicleID:         vehicle.ID,
			ParkingSpaceID:    space.ID,
			EntryTime:         now,
			HourlyRate:        space.HourlyRate,
			PaymentMethod:     "Cash",
			Status:            models.TransactionActive,
		}
		if err := s.transactions.Insert(ctx, tx, transaction); err != nil {
			return err
		}

		resp = &models.EntryResponse{
			TicketID:     ticket.ID,
			TicketNumber: ticket.TicketNumber,
			BarcodeData:  ticket.BarcodeData,
			PlateNumber:  vehicle.PlateNumber,
			EntryTime:    now,
			SpaceNumber:  space.SpaceNumber,
		}
		event = models.ParkingEntryEvent{
			PlateNumber: vehicle.PlateNumber,
			SpaceNumber: space.SpaceNumber,
			TicketID:    ticket.ID,
			Timestamp:   now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterEntry(ctx, event)
	return resp, nil
}

// RecordExit closes the open session for a vehicle identified by ticket
// number or plate: it computes the fee, completes the transaction, flips the
// vehicle to not-parked and releases the space, atomically.
func (s *SessionService) RecordExit(ctx context.Context, req *models.ExitRequest) (*models.ExitResponse, error) {
	if req.TicketNumber == "" && strings.TrimSpace(req.PlateNumber) == "" {
		return nil, fmt.Errorf("ticket number or plate number is required: %w", apperrors.ErrValidation)
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "Cash"
	}
	if !validPaymentMethods[paymentMethod] {
		return nil, fmt.Errorf("unknown payment method %q: %w", paymentMethod, apperrors.ErrValidation)
	}

	resp, err := s.recordExitOnce(ctx, req.TicketNumber, strings.TrimSpace(req.PlateNumber), paymentMethod)
	if errors.Is(err, apperrors.ErrConflict) {
		resp, err = s.recordExitOnce(ctx, req.TicketNumber, strings.TrimSpace(req.PlateNumber), paymentMethod)
	}
	return resp, err
}

func (s *SessionService) recordExitOnce(ctx context.Context, ticketNum, plate, paymentMethod string) (*models.ExitResponse, error) {
	now := s.clock()

	var resp *models.ExitResponse
	var event models.ParkingExitEvent
	var doc models.TransactionDocument

	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		vehicle, err := s.resolveVehicle(ctx, tx, ticketNum, plate)
		if err != nil {
			return err
		}

		transaction, err := s.transactions.GetOpenByVehicleForUpdate(ctx, tx, vehicle.ID)
		if err != nil {
			return fmt.Errorf("failed to look up open transaction: %w", err)
		}
		if transaction == nil {
			// A parked vehicle without an open transaction is a consistency
			// problem; surface it instead of recovering silently.
			return fmt.Errorf("no open transaction for vehicle %s: %w", vehicle.PlateNumber, apperrors.ErrNotFound)
		}

		duration, amount, err := ComputeFee(transaction.EntryTime, now, transaction.HourlyRate)
		if err != nil {
			return err
		}
		durationMinutes := int64(duration / time.Minute)

		if err := s.transactions.Complete(ctx, tx, transaction.ID, now, durationMinutes, amount, paymentMethod); err != nil {
			return err
		}
		if err := s.vehicles.MarkExited(ctx, tx, vehicle.ID, now); err != nil {
			return err
		}

		space, err := s.spaces.GetByID(ctx, tx, transaction.ParkingSpaceID)
		if err != nil {
			return fmt.Errorf("failed to look up space: %w", err)
		}
		if err := s.spaces.Release(ctx, tx, transaction.ParkingSpaceID); err != nil {
			return err
		}

		spaceNumber := ""
		if space != nil {
			spaceNumber = space.SpaceNumber
		}

		resp = &models.ExitResponse{
			TransactionID:   transaction.ID,
			PlateNumber:     vehicle.PlateNumber,
			EntryTime:       transaction.EntryTime,
			ExitTime:        now,
			DurationMinutes: durationMinutes,
			TotalAmount:     amount,
			PaymentMethod:   paymentMethod,
		}
		event = models.ParkingExitEvent{
			PlateNumber:   vehicle.PlateNumber,
			SpaceNumber:   spaceNumber,
			TransactionID: transaction.ID,
			TotalAmount:   amount,
			Timestamp:     now,
		}
		doc = models.TransactionDocument{
			ID:              transaction.ID,
			PlateNumber:     vehicle.PlateNumber,
			SpaceNumber:     spaceNumber,
			EntryTime:       transaction.EntryTime,
			ExitTime:        now,
			DurationMinutes: durationMinutes,
			TotalAmount:     amount,
			PaymentMethod:   paymentMethod,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterExit(ctx, event, doc)
	return resp, nil
}

func (s *SessionService) resolveVehicle(ctx context.Context, q database.Queryer, ticketNum, plate string) (*models.Vehicle, error) {
	if ticketNum != "" {
		ticket, err := s.tickets.GetByNumber(ctx, q, ticketNum)
		if err != nil {
			return nil, fmt.Errorf("failed to look up ticket: %w", err)
		}
		if ticket == nil {
			return nil, fmt.Errorf("ticket %s: %w", ticketNum, apperrors.ErrNotFound)
		}
		vehicle, err := s.vehicles.GetByID(ctx, q, ticket.VehicleID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up vehicle: %w", err)
		}
		if vehicle == nil || !vehicle.IsParked {
			return nil, fmt.Errorf("vehicle for ticket %s not in parking: %w", ticketNum, apperrors.ErrNotFound)
		}
		return vehicle, nil
	}

	vehicle, err := s.vehicles.GetByPlate(ctx, q, plate)
	if err != nil {
		return nil, fmt.Errorf("failed to look up vehicle: %w", err)
	}
	if vehicle == nil || !vehicle.IsParked {
		return nil, fmt.Errorf("vehicle %s not in parking: %w", plate, apperrors.ErrNotFound)
	}
	return vehicle, nil
}

// afterEntry runs the post-commit side effects. Failures are logged and
// never affect the already committed entry.
func (s *SessionService) afterEntry(ctx context.Context, event models.ParkingEntryEvent) {
	if s.publisher != nil {
		if err := s.publisher.Publish(models.EventParkingEntry, event); err != nil {
			logger.WithContext(ctx).Error("Failed to publish entry event",
				"error", err,
				"plate_number", event.PlateNumber,
				"event_type", models.EventParkingEntry)
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateDashboard(ctx); err != nil {
			logger.WithContext(ctx).Warn("Failed to invalidate dashboard cache", "error", err)
		}
	}
}

func (s *SessionService) afterExit(ctx context.Context, event models.ParkingExitEvent, doc models.TransactionDocument) {
	if s.publisher != nil {
		if err := s.publisher.Publish(models.EventParkingExit, event); err != nil {
			logger.WithContext(ctx).Error("Failed to publish exit event",
				"error", err,
				"plate_number", event.PlateNumber,
				"event_type", models.EventParkingExit)
		}
	}
	if s.indexer != nil {
		if err := s.indexer.IndexTransaction(ctx, doc); err != nil {
			logger.WithContext(ctx).Error("Failed to index completed transaction",
				"error", err,
				"transaction_id", doc.ID)
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateDashboard(ctx); err != nil {
			logger.WithContext(ctx).Warn("Failed to invalidate dashboard cache", "error", err)
		}
	}
}
