package parking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-system/internal/parking"
	"parking-system/internal/store/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newService(t *testing.T, carSpots, bikeSpots int) (*parking.SessionService, *memory.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
	store := memory.NewStore(parking.Provision(carSpots, bikeSpots))
	svc := parking.NewSessionService(store, parking.NewDefaultFareCalculator(), parking.WithClock(clock.Now))
	return svc, store, clock
}

func TestProcessIncomingVehicle(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newService(t, 3, 2)

	res, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)

	assert.False(t, res.ReturningUser)
	assert.Equal(t, 1, res.Ticket.Spot.ID)
	assert.False(t, res.Ticket.Spot.Available)

	ticket, err := store.GetOpenTicket(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", ticket.VehicleRegNumber)
	assert.True(t, ticket.InTime.Equal(clock.now))
	assert.Nil(t, ticket.OutTime)
	assert.True(t, ticket.Price.IsZero())
	assert.False(t, ticket.ReturningUser)
	assert.False(t, ticket.Spot.Available)

	spot, err := store.GetSpot(ctx, 1)
	require.NoError(t, err)
	assert.False(t, spot.Available)
}

func TestProcessIncomingVehicleUsesCategoryPool(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, 3, 2)

	bike, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryBike, "BIKE1")
	require.NoError(t, err)
	assert.Equal(t, 4, bike.Ticket.Spot.ID)

	car, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "CAR1")
	require.NoError(t, err)
	assert.Equal(t, 1, car.Ticket.Spot.ID)

	car2, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "CAR2")
	require.NoError(t, err)
	assert.Equal(t, 2, car2.Ticket.Spot.ID)
}

func TestProcessIncomingVehicleNoSpotAvailable(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t, 1, 1)

	_, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "FIRST")
	require.NoError(t, err)

	_, err = svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "SECOND")
	assert.ErrorIs(t, err, parking.ErrNoSpotAvailable)

	_, err = store.GetOpenTicket(ctx, "SECOND")
	assert.ErrorIs(t, err, parking.ErrNotFound)

	spots, err := store.ListSpots(ctx)
	require.NoError(t, err)
	assert.False(t, spots[0].Available)
	assert.True(t, spots[1].Available, "bike spot must be untouched")
}

func TestProcessIncomingVehicleInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t, 1, 1)

	_, err := svc.ProcessIncomingVehicle(ctx, parking.Category("TRUCK"), "ABCDEF")
	assert.ErrorIs(t, err, parking.ErrInvalidCategory)

	_, err = svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "  ")
	assert.ErrorIs(t, err, parking.ErrInvalidRegistration)

	spots, err := store.ListSpots(ctx)
	require.NoError(t, err)
	for _, spot := range spots {
		assert.True(t, spot.Available)
	}
}

func TestProcessIncomingVehicleAlreadyParked(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t, 2, 0)

	_, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)

	_, err = svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	assert.ErrorIs(t, err, parking.ErrSessionAlreadyOpen)

	spot, err := store.GetSpot(ctx, 2)
	require.NoError(t, err)
	assert.True(t, spot.Available)
}

func TestProcessExitingVehicle(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newService(t, 3, 2)

	arrival, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)

	clock.Advance(90 * time.Minute)

	res, err := svc.ProcessExitingVehicle(ctx, "ABCDEF")
	require.NoError(t, err)

	assert.False(t, res.ReturningUser)
	assert.True(t, res.Fare.Equal(decimal.RequireFromString("2.25")), res.Fare.String())
	require.NotNil(t, res.Ticket.OutTime)
	assert.True(t, res.Ticket.OutTime.Equal(clock.now))
	assert.False(t, res.Ticket.OutTime.Before(res.Ticket.InTime))
	assert.True(t, res.Ticket.Spot.Available)

	spot, err := store.GetSpot(ctx, arrival.Ticket.Spot.ID)
	require.NoError(t, err)
	assert.True(t, spot.Available)

	_, err = store.GetOpenTicket(ctx, "ABCDEF")
	assert.ErrorIs(t, err, parking.ErrNotFound)
}

func TestProcessExitingVehicleShortStayIsFree(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newService(t, 1, 1)

	_, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryBike, "BIKE1")
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	res, err := svc.ProcessExitingVehicle(ctx, "BIKE1")
	require.NoError(t, err)
	assert.True(t, res.Fare.IsZero())
}

func TestProcessExitingVehicleNoOpenSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, 1, 1)

	_, err := svc.ProcessExitingVehicle(ctx, "GHOST")
	assert.ErrorIs(t, err, parking.ErrNoOpenSession)

	_, err = svc.ProcessExitingVehicle(ctx, "")
	assert.ErrorIs(t, err, parking.ErrInvalidRegistration)
}

func TestProcessExitingVehicleClockSkewLeavesSessionOpen(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newService(t, 1, 0)

	_, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)

	clock.Advance(-time.Minute)

	_, err = svc.ProcessExitingVehicle(ctx, "ABCDEF")
	assert.ErrorIs(t, err, parking.ErrInvalidDuration)

	ticket, err := store.GetOpenTicket(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Nil(t, ticket.OutTime)

	spot, err := store.GetSpot(ctx, 1)
	require.NoError(t, err)
	assert.False(t, spot.Available)
}

func TestReturningUserGetsDiscount(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newService(t, 1, 0)

	first, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)
	assert.False(t, first.ReturningUser)

	clock.Advance(time.Hour)
	_, err = svc.ProcessExitingVehicle(ctx, "ABCDEF")
	require.NoError(t, err)

	returning, err := svc.IsReturningUser(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.True(t, returning)

	second, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)
	assert.True(t, second.ReturningUser)
	assert.False(t, second.Ticket.ReturningUser, "arrival tickets always start as non-returning")
	assert.True(t, second.Discount.Equal(decimal.RequireFromString("0.05")))

	clock.Advance(90 * time.Minute)
	res, err := svc.ProcessExitingVehicle(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.True(t, res.ReturningUser)
	assert.True(t, res.Ticket.ReturningUser)
	assert.True(t, res.Fare.Equal(decimal.RequireFromString("2.1375")), res.Fare.String())
}

func TestIsReturningUserIsReadOnly(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t, 1, 0)

	for i := 0; i < 3; i++ {
		returning, err := svc.IsReturningUser(ctx, "ABCDEF")
		require.NoError(t, err)
		assert.False(t, returning)
	}

	spots, err := store.ListSpots(ctx)
	require.NoError(t, err)
	assert.True(t, spots[0].Available)
}

func TestRegistrationIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newService(t, 2, 0)

	_, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "abc123")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = svc.ProcessExitingVehicle(ctx, "abc123")
	require.NoError(t, err)

	returning, err := svc.IsReturningUser(ctx, "ABC123")
	require.NoError(t, err)
	assert.False(t, returning)
}

func TestClosedTicketRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newService(t, 1, 0)

	_, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	res, err := svc.ProcessExitingVehicle(ctx, "ABCDEF")
	require.NoError(t, err)

	clock.Advance(time.Hour)

	reloaded, err := svc.GetTicket(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, parking.StateClosed, reloaded.State())
	assert.True(t, reloaded.InTime.Equal(res.Ticket.InTime))
	assert.True(t, reloaded.OutTime.Equal(*res.Ticket.OutTime))
	assert.True(t, reloaded.Price.Equal(res.Fare))
	assert.True(t, reloaded.Price.Equal(decimal.RequireFromString("3")))
}

func TestSessionTimesHaveMicrosecondResolution(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newService(t, 1, 0)
	clock.now = clock.now.Add(123456789 * time.Nanosecond)

	arrival, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, 123456000, arrival.Ticket.InTime.Nanosecond())

	clock.Advance(70*time.Minute + 999*time.Nanosecond)
	res, err := svc.ProcessExitingVehicle(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Ticket.OutTime.Nanosecond()%int(time.Microsecond))
	assert.Equal(t, "1.75", res.Fare.String())
}

func TestGetTicketPrefersOpenSession(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newService(t, 1, 0)

	_, err := svc.GetTicket(ctx, "ABCDEF")
	assert.ErrorIs(t, err, parking.ErrNotFound)

	_, err = svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = svc.ProcessExitingVehicle(ctx, "ABCDEF")
	require.NoError(t, err)
	_, err = svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)

	ticket, err := svc.GetTicket(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, parking.StateOpen, ticket.State())
}

// failingStore fails one named operation, inside and outside transactions.
type failingStore struct {
	parking.Store
	failOn string
}

var errDisk = errors.New("disk unavailable")

func (f *failingStore) fail(op string) error {
	if f.failOn == op {
		return parking.NewPersistenceError(op, errDisk)
	}
	return nil
}

func (f *failingStore) SaveTicket(ctx context.Context, ticket *parking.Ticket) error {
	if err := f.fail("save ticket"); err != nil {
		return err
	}
	return f.Store.SaveTicket(ctx, ticket)
}

func (f *failingStore) UpdateSpotAvailability(ctx context.Context, spotID int, available bool) error {
	if err := f.fail("update spot"); err != nil {
		return err
	}
	return f.Store.UpdateSpotAvailability(ctx, spotID, available)
}

func (f *failingStore) CountClosedTickets(ctx context.Context, reg string) (int, error) {
	if err := f.fail("count closed"); err != nil {
		return 0, err
	}
	return f.Store.CountClosedTickets(ctx, reg)
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(tx parking.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx parking.Store) error {
		return fn(&failingStore{Store: tx, failOn: f.failOn})
	})
}

func TestArrivalPersistenceFailureLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(parking.Provision(1, 0))
	svc := parking.NewSessionService(&failingStore{Store: store, failOn: "save ticket"}, parking.NewDefaultFareCalculator())

	_, err := svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	var pe *parking.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, errDisk)

	spot, err := store.GetSpot(ctx, 1)
	require.NoError(t, err)
	assert.True(t, spot.Available, "spot claim must roll back with the failed ticket")
}

func TestDeparturePersistenceFailureKeepsSessionOpen(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
	store := memory.NewStore(parking.Provision(1, 0))

	ok := parking.NewSessionService(store, parking.NewDefaultFareCalculator(), parking.WithClock(clock.Now))
	_, err := ok.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)
	clock.Advance(time.Hour)

	broken := parking.NewSessionService(&failingStore{Store: store, failOn: "update spot"},
		parking.NewDefaultFareCalculator(), parking.WithClock(clock.Now))
	_, err = broken.ProcessExitingVehicle(ctx, "ABCDEF")
	assert.ErrorIs(t, err, errDisk)

	ticket, err := store.GetOpenTicket(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Nil(t, ticket.OutTime)
}

func TestIsReturningUserPropagatesPersistenceError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(parking.Provision(1, 0))
	svc := parking.NewSessionService(&failingStore{Store: store, failOn: "count closed"}, parking.NewDefaultFareCalculator())

	_, err := svc.IsReturningUser(ctx, "ABCDEF")
	assert.ErrorIs(t, err, errDisk)

	_, err = svc.ProcessIncomingVehicle(ctx, parking.CategoryCar, "ABCDEF")
	assert.ErrorIs(t, err, errDisk)
}
