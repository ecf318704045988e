package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"parkir/internal/database"
	apperrors "parkir/internal/errors"
	"parkir/internal/models"
)

// fakeState is an in-memory stand-in for the database. WithinTx serializes
// callers on a mutex and restores a snapshot when the callback fails, which
// mirrors the all-or-nothing commit the real stores get from Postgres. The
// store fakes below never lock; all access goes through WithinTx.
type fakeState struct {
	mu           sync.Mutex
	vehicles     map[int64]*models.Vehicle
	spaces       map[int64]*models.ParkingSpace
	spaceOrder   []int64
	tickets      map[int64]*models.ParkingTicket
	transactions map[int64]*models.ParkingTransaction
	nextID       int64
}

func newFakeState() *fakeState {
	return &fakeState{
		vehicles:     make(map[int64]*models.Vehicle),
		spaces:       make(map[int64]*models.ParkingSpace),
		tickets:      make(map[int64]*models.ParkingTicket),
		transactions: make(map[int64]*models.ParkingTransaction),
	}
}

func (st *fakeState) id() int64 {
	st.nextID++
	return st.nextID
}

func (st *fakeState) addSpace(number string, hourlyRate int64) *models.ParkingSpace {
	sp := &models.ParkingSpace{
		ID:          st.id(),
		SpaceNumber: number,
		SpaceType:   "Standard",
		HourlyRate:  hourlyRate,
	}
	st.spaces[sp.ID] = sp
	st.spaceOrder = append(st.spaceOrder, sp.ID)
	return sp
}

func (st *fakeState) addVehicle(plate string, parked bool) *models.Vehicle {
	v := &models.Vehicle{
		ID:          st.id(),
		PlateNumber: plate,
		VehicleType: "Car",
		IsParked:    parked,
	}
	st.vehicles[v.ID] = v
	return v
}

func (st *fakeState) openTransactions() []*models.ParkingTransaction {
	var open []*models.ParkingTransaction
	for _, tr := range st.transactions {
		if tr.ExitTime == nil {
			open = append(open, tr)
		}
	}
	return open
}

type snapshot struct {
	vehicles     map[int64]*models.Vehicle
	spaces       map[int64]*models.ParkingSpace
	spaceOrder   []int64
	tickets      map[int64]*models.ParkingTicket
	transactions map[int64]*models.ParkingTransaction
	nextID       int64
}

func (st *fakeState) snapshot() snapshot {
	snap := snapshot{
		vehicles:     make(map[int64]*models.Vehicle, len(st.vehicles)),
		spaces:       make(map[int64]*models.ParkingSpace, len(st.spaces)),
		spaceOrder:   append([]int64(nil), st.spaceOrder...),
		tickets:      make(map[int64]*models.ParkingTicket, len(st.tickets)),
		transactions: make(map[int64]*models.ParkingTransaction, len(st.transactions)),
		nextID:       st.nextID,
	}
	for id, v := range st.vehicles {
		c := *v
		snap.vehicles[id] = &c
	}
	for id, sp := range st.spaces {
		c := *sp
		snap.spaces[id] = &c
	}
	for id, tk := range st.tickets {
		c := *tk
		snap.tickets[id] = &c
	}
	for id, tr := range st.transactions {
		c := *tr
		snap.transactions[id] = &c
	}
	return snap
}

func (st *fakeState) restore(snap snapshot) {
	st.vehicles = snap.vehicles
	st.spaces = snap.spaces
	st.spaceOrder = snap.spaceOrder
	st.tickets = snap.tickets
	st.transactions = snap.transactions
	st.nextID = snap.nextID
}

func (st *fakeState) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	snap := st.snapshot()
	if err := fn(nil); err != nil {
		st.restore(snap)
		return err
	}
	return nil
}

type fakeVehicles struct{ st *fakeState }

func (f *fakeVehicles) GetByPlate(ctx context.Context, q database.Queryer, plate string) (*models.Vehicle, error) {
	for _, v := range f.st.vehicles {
		if v.PlateNumber == plate {
			c := *v
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeVehicles) GetByID(ctx context.Context, q database.Queryer, id int64) (*models.Vehicle, error) {
	v, ok := f.st.vehicles[id]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (f *fakeVehicles) Create(ctx context.Context, q database.Queryer, v *models.Vehicle) error {
	for _, existing := range f.st.vehicles {
		if existing.PlateNumber == v.PlateNumber {
			return fmt.Errorf("plate %s already registered: %w", v.PlateNumber, apperrors.ErrConflict)
		}
	}
	v.ID = f.st.id()
	c := *v
	f.st.vehicles[v.ID] = &c
	return nil
}

func (f *fakeVehicles) MarkEntering(ctx context.Context, q database.Queryer, id int64, vehicleType string, now time.Time) error {
	v, ok := f.st.vehicles[id]
	if !ok || v.IsParked {
		return fmt.Errorf("vehicle %d: %w", id, apperrors.ErrAlreadyParked)
	}
	v.IsParked = true
	v.VehicleType = vehicleType
	entry := now
	v.EntryTime = &entry
	v.ExitTime = nil
	return nil
}

func (f *fakeVehicles) MarkExited(ctx context.Context, q database.Queryer, id int64, now time.Time) error {
	v, ok := f.st.vehicles[id]
	if !ok || !v.IsParked {
		return fmt.Errorf("vehicle %d not parked: %w", id, apperrors.ErrConflict)
	}
	v.IsParked = false
	exit := now
	v.ExitTime = &exit
	return nil
}

type fakeSpaces struct{ st *fakeState }

func (f *fakeSpaces) SelectFreeForUpdate(ctx context.Context, q database.Queryer) (*models.ParkingSpace, error) {
	for _, id := range f.st.spaceOrder {
		if sp := f.st.spaces[id]; !sp.IsOccupied {
			c := *sp
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeSpaces) Reserve(ctx context.Context, q database.Queryer, spaceID, vehicleID int64) error {
	sp, ok := f.st.spaces[spaceID]
	if !ok || sp.IsOccupied {
		return fmt.Errorf("space %d taken: %w", spaceID, apperrors.ErrConflict)
	}
	sp.IsOccupied = true
	vid := vehicleID
	sp.CurrentVehicleID = &vid
	return nil
}

func (f *fakeSpaces) Release(ctx context.Context, q database.Queryer, spaceID int64) error {
	if sp, ok := f.st.spaces[spaceID]; ok {
		sp.IsOccupied = false
		sp.CurrentVehicleID = nil
	}
	return nil
}

func (f *fakeSpaces) GetByID(ctx context.Context, q database.Queryer, id int64) (*models.ParkingSpace, error) {
	sp, ok := f.st.spaces[id]
	if !ok {
		return nil, nil
	}
	c := *sp
	return &c, nil
}

type fakeTickets struct{ st *fakeState }

// Insert mirrors the repository's conflict-absorbing insert: a duplicate is
// reported as ErrDuplicateTicket without a statement-level failure, so the
// enclosing transaction stays usable for the suffixed retry.
func (f *fakeTickets) Insert(ctx context.Context, q database.Queryer, t *models.ParkingTicket) error {
	for _, existing := range f.st.tickets {
		if existing.TicketNumber == t.TicketNumber || existing.BarcodeData == t.BarcodeData {
			return fmt.Errorf("ticket %s: %w", t.TicketNumber, apperrors.ErrDuplicateTicket)
		}
	}
	t.ID = f.st.id()
	c := *t
	f.st.tickets[t.ID] = &c
	return nil
}

func (f *fakeTickets) GetByNumber(ctx context.Context, q database.Queryer, number string) (*models.ParkingTicket, error) {
	for _, t := range f.st.tickets {
		if t.TicketNumber == number {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

type fakeTransactions struct{ st *fakeState }

func (f *fakeTransactions) Insert(ctx context.Context, q database.Queryer, t *models.ParkingTransaction) error {
	for _, existing := range f.st.transactions {
		if existing.VehicleID == t.VehicleID && existing.ExitTime == nil {
			return fmt.Errorf("open transaction for vehicle %d: %w", t.VehicleID, apperrors.ErrAlreadyParked)
		}
		if existing.TransactionNumber == t.TransactionNumber {
			return fmt.Errorf("transaction number %s: %w", t.TransactionNumber, apperrors.ErrConflict)
		}
	}
	t.ID = f.st.id()
	c := *t
	f.st.transactions[t.ID] = &c
	return nil
}

func (f *fakeTransactions) GetOpenByVehicleForUpdate(ctx context.Context, q database.Queryer, vehicleID int64) (*models.ParkingTransaction, error) {
	for _, tr := range f.st.transactions {
		if tr.VehicleID == vehicleID && tr.ExitTime == nil {
			c := *tr
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeTransactions) Complete(ctx context.Context, q database.Queryer, id int64, exitTime time.Time, durationMinutes, totalAmount int64, paymentMethod string) error {
	tr, ok := f.st.transactions[id]
	if !ok || tr.ExitTime != nil {
		return fmt.Errorf("transaction %d already closed: %w", id, apperrors.ErrConflict)
	}
	exit := exitTime
	tr.ExitTime = &exit
	tr.DurationMinutes = durationMinutes
	tr.TotalAmount = totalAmount
	tr.PaymentMethod = paymentMethod
	paid := exitTime
	tr.PaymentTime = &paid
	tr.Status = models.TransactionCompleted
	return nil
}

type publishedEvent struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{subject: subject, data: data})
	return nil
}

type fakeIndexer struct {
	mu   sync.Mutex
	docs []models.TransactionDocument
	err  error
}

func (f *fakeIndexer) IndexTransaction(ctx context.Context, doc models.TransactionDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeInvalidator) InvalidateDashboard(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
