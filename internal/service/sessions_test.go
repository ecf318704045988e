package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkir/internal/database"
	apperrors "parkir/internal/errors"
	"parkir/internal/models"
)

var testBase = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// settableClock lets a test move time forward between entry and exit.
type settableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *settableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func sequentialIDGenerator() IDGenerator {
	var n int64
	return func() string {
		return fmt.Sprintf("x%d", atomic.AddInt64(&n, 1))
	}
}

func newTestService(st *fakeState, clk *settableClock) *SessionService {
	return NewSessionService(st, &fakeVehicles{st}, &fakeSpaces{st}, &fakeTickets{st}, &fakeTransactions{st}).
		WithClock(clk.Now).
		WithIDGenerator(sequentialIDGenerator())
}

func TestRecordEntry_AllocatesLowestSpaceAndIssuesTicket(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	st.addSpace("A2", 350)
	clk := &settableClock{now: testBase}
	svc := newTestService(st, clk)

	resp, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	require.NoError(t, err)

	assert.Equal(t, "A1", resp.SpaceNumber)
	assert.Equal(t, "B1234XYZ", resp.PlateNumber)
	assert.Equal(t, "PK-250601100000", resp.TicketNumber)
	assert.Equal(t, "PK-B1234XYZ-250601100000", resp.BarcodeData)
	assert.Equal(t, testBase, resp.EntryTime)

	vehicle, err := (&fakeVehicles{st}).GetByPlate(context.Background(), nil, "B1234XYZ")
	require.NoError(t, err)
	require.NotNil(t, vehicle)
	assert.True(t, vehicle.IsParked)
	assert.Equal(t, "Car", vehicle.VehicleType, "vehicle type defaults when not supplied")

	space := st.spaces[st.spaceOrder[0]]
	assert.True(t, space.IsOccupied)
	require.NotNil(t, space.CurrentVehicleID)
	assert.Equal(t, vehicle.ID, *space.CurrentVehicleID)

	open := st.openTransactions()
	require.Len(t, open, 1)
	assert.Equal(t, int64(500), open[0].HourlyRate, "rate captured from the allocated space")
	assert.Equal(t, models.TransactionActive, open[0].Status)
}

func TestRecordEntry_ReusesExistingVehicleRecord(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	existing := st.addVehicle("B1234XYZ", false)
	clk := &settableClock{now: testBase}
	svc := newTestService(st, clk)

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ", VehicleType: "Motorcycle"}, "admin")
	require.NoError(t, err)

	assert.Len(t, st.vehicles, 1)
	assert.True(t, st.vehicles[existing.ID].IsParked)
	assert.Equal(t, "Motorcycle", st.vehicles[existing.ID].VehicleType)
}

func TestRecordEntry_EmptyPlate(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	svc := newTestService(st, &settableClock{now: testBase})

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "   "}, "admin")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, st.vehicles)
}

func TestRecordEntry_AlreadyParked(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	st.addSpace("A2", 500)
	svc := newTestService(st, &settableClock{now: testBase})

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	require.NoError(t, err)

	_, err = svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyParked)

	assert.Len(t, st.openTransactions(), 1)
	assert.False(t, st.spaces[st.spaceOrder[1]].IsOccupied, "second space must stay free")
}

func TestRecordEntry_NoSpaceAvailable(t *testing.T) {
	st := newFakeState()
	svc := newTestService(st, &settableClock{now: testBase})

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	assert.ErrorIs(t, err, apperrors.ErrNoSpaceAvailable)

	// The whole operation rolls back: no vehicle, ticket or transaction
	// survives a failed allocation.
	assert.Empty(t, st.vehicles)
	assert.Empty(t, st.tickets)
	assert.Empty(t, st.transactions)
}

func TestRecordEntry_TicketCollisionGetsSuffix(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	st.addSpace("A2", 500)
	clk := &settableClock{now: testBase}
	svc := newTestService(st, clk)

	first, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1111AA"}, "admin")
	require.NoError(t, err)

	// Same second, different vehicle: the timestamp ticket number is taken,
	// so the second ticket gets the next generated suffix (the first entry
	// consumed x1 for its transaction number).
	second, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B2222BB"}, "admin")
	require.NoError(t, err)

	assert.Equal(t, "PK-250601100000", first.TicketNumber)
	assert.Equal(t, "PK-250601100000-x2", second.TicketNumber)
	assert.Equal(t, "PK-B2222BB-250601100000-x2", second.BarcodeData)
}

// abortingTicketStore enforces Postgres transaction semantics on the ticket
// store: once a statement in the open transaction has errored, every later
// statement is rejected. A duplicate absorbed by ON CONFLICT DO NOTHING is
// not a statement error and must not poison the transaction.
type abortingTicketStore struct {
	inner    *fakeTickets
	poisoned bool
	inserts  int
}

func (s *abortingTicketStore) Insert(ctx context.Context, q database.Queryer, tk *models.ParkingTicket) error {
	s.inserts++
	if s.poisoned {
		return errors.New("pq: current transaction is aborted, commands ignored until end of transaction block")
	}
	err := s.inner.Insert(ctx, q, tk)
	if err != nil && !errors.Is(err, apperrors.ErrDuplicateTicket) {
		s.poisoned = true
	}
	return err
}

func (s *abortingTicketStore) GetByNumber(ctx context.Context, q database.Queryer, number string) (*models.ParkingTicket, error) {
	if s.poisoned {
		return nil, errors.New("pq: current transaction is aborted, commands ignored until end of transaction block")
	}
	return s.inner.GetByNumber(ctx, q, number)
}

func TestRecordEntry_CollisionRetryKeepsTransactionUsable(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	st.addSpace("A2", 500)
	tickets := &abortingTicketStore{inner: &fakeTickets{st}}
	svc := NewSessionService(st, &fakeVehicles{st}, &fakeSpaces{st}, tickets, &fakeTransactions{st}).
		WithClock((&settableClock{now: testBase}).Now).
		WithIDGenerator(sequentialIDGenerator())

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1111AA"}, "admin")
	require.NoError(t, err)

	// Same second: the timestamp ticket number collides. The retry runs in
	// the same transaction, so it only works while the collision path stays
	// statement-error free.
	second, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B2222BB"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "PK-250601100000-x2", second.TicketNumber)
	assert.Equal(t, 3, tickets.inserts, "one clean insert, one absorbed collision, one suffixed retry")
	assert.False(t, tickets.poisoned)
}

func TestRecordEntry_PublisherFailureDoesNotFailEntry(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	pub := &fakePublisher{err: errors.New("nats down")}
	inv := &fakeInvalidator{}
	svc := newTestService(st, &settableClock{now: testBase}).WithPublisher(pub).WithCache(inv)

	resp, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "A1", resp.SpaceNumber)
	assert.Equal(t, 1, inv.count(), "cache invalidation still runs after a publish failure")
}

func TestRecordEntry_PublishesEntryEvent(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	pub := &fakePublisher{}
	svc := newTestService(st, &settableClock{now: testBase}).WithPublisher(pub)

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventParkingEntry, pub.events[0].subject)
	event, ok := pub.events[0].data.(models.ParkingEntryEvent)
	require.True(t, ok)
	assert.Equal(t, "B1234XYZ", event.PlateNumber)
	assert.Equal(t, "A1", event.SpaceNumber)
}

func TestRecordExit_ByTicketNumber(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	clk := &settableClock{now: testBase}
	pub := &fakePublisher{}
	idx := &fakeIndexer{}
	svc := newTestService(st, clk).WithPublisher(pub).WithIndexer(idx)

	entry, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	require.NoError(t, err)

	clk.Set(testBase.Add(90 * time.Minute))
	exit, err := svc.RecordExit(context.Background(), &models.ExitRequest{TicketNumber: entry.TicketNumber, PaymentMethod: "Card"})
	require.NoError(t, err)

	assert.Equal(t, int64(90), exit.DurationMinutes)
	assert.Equal(t, int64(1000), exit.TotalAmount, "90 minutes at 500/hour bills two hours")
	assert.Equal(t, "Card", exit.PaymentMethod)
	assert.Equal(t, testBase, exit.EntryTime)

	vehicle, _ := (&fakeVehicles{st}).GetByPlate(context.Background(), nil, "B1234XYZ")
	assert.False(t, vehicle.IsParked)

	space := st.spaces[st.spaceOrder[0]]
	assert.False(t, space.IsOccupied)
	assert.Nil(t, space.CurrentVehicleID)

	assert.Empty(t, st.openTransactions())

	require.Len(t, idx.docs, 1)
	assert.Equal(t, int64(1000), idx.docs[0].TotalAmount)
	assert.Equal(t, "A1", idx.docs[0].SpaceNumber)

	require.Len(t, pub.events, 2)
	assert.Equal(t, models.EventParkingExit, pub.events[1].subject)
}

func TestRecordExit_ByPlate(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	clk := &settableClock{now: testBase}
	svc := newTestService(st, clk)

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	require.NoError(t, err)

	clk.Set(testBase.Add(1 * time.Minute))
	exit, err := svc.RecordExit(context.Background(), &models.ExitRequest{PlateNumber: "B1234XYZ"})
	require.NoError(t, err)

	assert.Equal(t, int64(500), exit.TotalAmount, "one minute bills the minimum hour")
	assert.Equal(t, "Cash", exit.PaymentMethod, "payment method defaults to cash")
}

func TestRecordExit_UnknownTicket(t *testing.T) {
	st := newFakeState()
	svc := newTestService(st, &settableClock{now: testBase})

	_, err := svc.RecordExit(context.Background(), &models.ExitRequest{TicketNumber: "PK-000000000000"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecordExit_VehicleNotParked(t *testing.T) {
	st := newFakeState()
	st.addVehicle("B1234XYZ", false)
	svc := newTestService(st, &settableClock{now: testBase})

	_, err := svc.RecordExit(context.Background(), &models.ExitRequest{PlateNumber: "B1234XYZ"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecordExit_MissingIdentifiers(t *testing.T) {
	svc := newTestService(newFakeState(), &settableClock{now: testBase})

	_, err := svc.RecordExit(context.Background(), &models.ExitRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRecordExit_InvalidPaymentMethod(t *testing.T) {
	svc := newTestService(newFakeState(), &settableClock{now: testBase})

	_, err := svc.RecordExit(context.Background(), &models.ExitRequest{PlateNumber: "B1234XYZ", PaymentMethod: "Barter"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRecordExit_ClockBeforeEntryLeavesSessionOpen(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	clk := &settableClock{now: testBase}
	svc := newTestService(st, clk)

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	require.NoError(t, err)

	clk.Set(testBase.Add(-5 * time.Minute))
	_, err = svc.RecordExit(context.Background(), &models.ExitRequest{PlateNumber: "B1234XYZ"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInterval)

	// Nothing changed: the session stays open for a later, valid exit.
	vehicle, _ := (&fakeVehicles{st}).GetByPlate(context.Background(), nil, "B1234XYZ")
	assert.True(t, vehicle.IsParked)
	assert.True(t, st.spaces[st.spaceOrder[0]].IsOccupied)
	assert.Len(t, st.openTransactions(), 1)
}

func TestRecordExit_SecondExitFails(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	clk := &settableClock{now: testBase}
	svc := newTestService(st, clk)

	entry, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	require.NoError(t, err)

	clk.Set(testBase.Add(30 * time.Minute))
	_, err = svc.RecordExit(context.Background(), &models.ExitRequest{TicketNumber: entry.TicketNumber})
	require.NoError(t, err)

	_, err = svc.RecordExit(context.Background(), &models.ExitRequest{TicketNumber: entry.TicketNumber})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.False(t, st.spaces[st.spaceOrder[0]].IsOccupied)
}

func TestEntryThenExitFreesSpaceForNextVehicle(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	clk := &settableClock{now: testBase}
	svc := newTestService(st, clk)

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1111AA"}, "admin")
	require.NoError(t, err)

	_, err = svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B2222BB"}, "admin")
	assert.ErrorIs(t, err, apperrors.ErrNoSpaceAvailable)

	clk.Set(testBase.Add(2 * time.Hour))
	_, err = svc.RecordExit(context.Background(), &models.ExitRequest{PlateNumber: "B1111AA"})
	require.NoError(t, err)

	resp, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B2222BB"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "A1", resp.SpaceNumber)
}

func TestReleaseAlreadyFreeSpaceIsNoOp(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	clk := &settableClock{now: testBase}
	svc := newTestService(st, clk)

	_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
	require.NoError(t, err)

	clk.Set(testBase.Add(30 * time.Minute))
	_, err = svc.RecordExit(context.Background(), &models.ExitRequest{PlateNumber: "B1234XYZ"})
	require.NoError(t, err)

	spaceID := st.spaceOrder[0]
	require.False(t, st.spaces[spaceID].IsOccupied)

	// A second release of the freed space must not error or change state.
	spaces := &fakeSpaces{st}
	require.NoError(t, spaces.Release(context.Background(), nil, spaceID))
	assert.False(t, st.spaces[spaceID].IsOccupied)
	assert.Nil(t, st.spaces[spaceID].CurrentVehicleID)

	// The space is still allocatable afterwards.
	resp, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B5678ZZ"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "A1", resp.SpaceNumber)
}

func TestConcurrentEntries_SamePlateParksOnce(t *testing.T) {
	st := newFakeState()
	st.addSpace("A1", 500)
	st.addSpace("A2", 500)
	svc := newTestService(st, &settableClock{now: testBase})

	const workers = 8
	var wg sync.WaitGroup
	var successes, alreadyParked int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: "B1234XYZ"}, "admin")
			switch {
			case err == nil:
				atomic.AddInt64(&successes, 1)
			case errors.Is(err, apperrors.ErrAlreadyParked):
				atomic.AddInt64(&alreadyParked, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes)
	assert.Equal(t, int64(workers-1), alreadyParked)
	assert.Len(t, st.openTransactions(), 1)
}

func TestConcurrentEntries_NeverDoubleAllocate(t *testing.T) {
	st := newFakeState()
	for i := 1; i <= 3; i++ {
		st.addSpace(fmt.Sprintf("A%d", i), 500)
	}
	svc := newTestService(st, &settableClock{now: testBase})

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	allocated := make(map[string]string)
	var noSpace int64
	for i := 0; i < workers; i++ {
		plate := fmt.Sprintf("B%04dZZ", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.RecordEntry(context.Background(), &models.EntryRequest{PlateNumber: plate}, "admin")
			switch {
			case err == nil:
				mu.Lock()
				if prev, taken := allocated[resp.SpaceNumber]; taken {
					t.Errorf("space %s allocated to both %s and %s", resp.SpaceNumber, prev, plate)
				}
				allocated[resp.SpaceNumber] = plate
				mu.Unlock()
			case errors.Is(err, apperrors.ErrNoSpaceAvailable):
				atomic.AddInt64(&noSpace, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, allocated, 3, "exactly as many entries succeed as there are spaces")
	assert.Equal(t, int64(workers-3), noSpace)
	assert.Len(t, st.openTransactions(), 3)
}
