package parking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"parking-system/internal/logging"
)

// ArrivalResult describes an opened session. ReturningUser is the history
// check made before the ticket was created; the ticket itself always starts
// with ReturningUser false and only departure recomputes it.
type ArrivalResult struct {
	Ticket        *Ticket
	ReturningUser bool
	Discount      decimal.Decimal
}

type DepartureResult struct {
	Ticket        *Ticket
	ReturningUser bool
	Fare          decimal.Decimal
}

type SessionService struct {
	store Store
	fares *FareCalculator
	now   func() time.Time
}

type Option func(*SessionService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) {
		s.now = now
	}
}

func NewSessionService(store Store, fares *FareCalculator, opts ...Option) *SessionService {
	s := &SessionService{
		store: store,
		fares: fares,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp is the current time at the microsecond resolution stores keep.
func (s *SessionService) timestamp() time.Time {
	return s.now().Truncate(time.Microsecond)
}

// ProcessIncomingVehicle opens a session: it picks the lowest-numbered free
// spot of the category, claims it and saves an OPEN ticket in one Store
// transaction. On any error nothing is persisted.
func (s *SessionService) ProcessIncomingVehicle(ctx context.Context, category Category, regNumber string) (*ArrivalResult, error) {
	vehicle, err := NewVehicle(regNumber, category)
	if err != nil {
		return nil, err
	}

	returning, err := s.IsReturningUser(ctx, vehicle.RegistrationNumber)
	if err != nil {
		return nil, err
	}

	var ticket *Ticket
	err = s.store.WithinTx(ctx, func(tx Store) error {
		_, err := tx.GetOpenTicket(ctx, vehicle.RegistrationNumber)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", ErrSessionAlreadyOpen, vehicle.RegistrationNumber)
		case !errors.Is(err, ErrNotFound):
			return err
		}

		spot, err := NewSpotAllocator(tx).AllocateSpot(ctx, vehicle.Category)
		if err != nil {
			return err
		}

		if err := tx.ClaimSpot(ctx, spot.ID); err != nil {
			return err
		}
		spot.Occupy()

		ticket = &Ticket{
			Spot:             *spot,
			VehicleRegNumber: vehicle.RegistrationNumber,
			InTime:           s.timestamp(),
			Price:            decimal.Zero,
		}
		return tx.SaveTicket(ctx, ticket)
	})
	if err != nil {
		logging.Warn(ctx).
			Err(err).
			Str("registration", vehicle.RegistrationNumber).
			Str("category", vehicle.Category.String()).
			Msg("incoming vehicle rejected")
		return nil, err
	}

	logging.Info(ctx).
		Int64("ticket_id", ticket.ID).
		Int("spot", ticket.Spot.ID).
		Str("registration", ticket.VehicleRegNumber).
		Bool("returning_user", returning).
		Msg("parking session opened")

	return &ArrivalResult{
		Ticket:        ticket,
		ReturningUser: returning,
		Discount:      s.fares.Discount(),
	}, nil
}

// ProcessExitingVehicle closes the OPEN ticket of a vehicle, prices it and
// frees its spot. A fare error aborts before anything is written.
func (s *SessionService) ProcessExitingVehicle(ctx context.Context, regNumber string) (*DepartureResult, error) {
	reg, err := normalizeRegistration(regNumber)
	if err != nil {
		return nil, err
	}

	var result *DepartureResult
	err = s.store.WithinTx(ctx, func(tx Store) error {
		ticket, err := tx.GetOpenTicket(ctx, reg)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNoOpenSession, reg)
		}
		if err != nil {
			return err
		}

		outTime := s.timestamp()

		// The ticket being closed is still open, so any closed ticket is a
		// prior session.
		closed, err := tx.CountClosedTickets(ctx, reg)
		if err != nil {
			return err
		}
		returning := closed > 0

		fare, err := s.fares.ComputeFare(ticket.InTime, outTime, ticket.Spot.Category, returning)
		if err != nil {
			return err
		}

		ticket.OutTime = &outTime
		ticket.Price = fare
		ticket.ReturningUser = returning

		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}
		if err := tx.UpdateSpotAvailability(ctx, ticket.Spot.ID, true); err != nil {
			return err
		}
		ticket.Spot.Release()

		result = &DepartureResult{
			Ticket:        ticket,
			ReturningUser: returning,
			Fare:          fare,
		}
		return nil
	})
	if err != nil {
		logging.Warn(ctx).
			Err(err).
			Str("registration", reg).
			Msg("exiting vehicle rejected")
		return nil, err
	}

	logging.Info(ctx).
		Int64("ticket_id", result.Ticket.ID).
		Int("spot", result.Ticket.Spot.ID).
		Str("registration", reg).
		Str("fare", result.Fare.String()).
		Bool("returning_user", result.ReturningUser).
		Msg("parking session closed")

	return result, nil
}

// IsReturningUser reports whether the vehicle has at least one closed ticket.
// It never writes.
func (s *SessionService) IsReturningUser(ctx context.Context, regNumber string) (bool, error) {
	reg, err := normalizeRegistration(regNumber)
	if err != nil {
		return false, err
	}
	closed, err := s.store.CountClosedTickets(ctx, reg)
	if err != nil {
		return false, err
	}
	return closed > 0, nil
}

func (s *SessionService) ListSpots(ctx context.Context) ([]*ParkingSpot, error) {
	return s.store.ListSpots(ctx)
}

// GetTicket returns the open ticket of a vehicle, or its most recently closed
// one. ErrNotFound if the vehicle has never parked.
func (s *SessionService) GetTicket(ctx context.Context, regNumber string) (*Ticket, error) {
	reg, err := normalizeRegistration(regNumber)
	if err != nil {
		return nil, err
	}
	ticket, err := s.store.GetOpenTicket(ctx, reg)
	if errors.Is(err, ErrNotFound) {
		return s.store.GetLastClosedTicket(ctx, reg)
	}
	return ticket, err
}
