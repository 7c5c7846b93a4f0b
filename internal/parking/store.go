package parking

import "context"

// Store is the persistence collaborator of the session service.
//
// Absent rows are reported as ErrNotFound. ClaimSpot is a compare-and-swap:
// it marks the spot unavailable only if it is still available, and fails with
// ErrSpotTaken otherwise. UpdateTicket closes an open ticket and fails with
// ErrTicketClosed if it was already closed. Any other failure is a
// *PersistenceError.
//
// WithinTx runs fn against a Store whose writes become visible together when
// fn returns nil and are discarded when it returns an error.
type Store interface {
	FindAvailableSpot(ctx context.Context, category Category) (*ParkingSpot, error)
	ClaimSpot(ctx context.Context, spotID int) error
	UpdateSpotAvailability(ctx context.Context, spotID int, available bool) error
	GetSpot(ctx context.Context, spotID int) (*ParkingSpot, error)
	ListSpots(ctx context.Context) ([]*ParkingSpot, error)

	SaveTicket(ctx context.Context, ticket *Ticket) error
	GetOpenTicket(ctx context.Context, regNumber string) (*Ticket, error)
	GetLastClosedTicket(ctx context.Context, regNumber string) (*Ticket, error)
	CountClosedTickets(ctx context.Context, regNumber string) (int, error)
	UpdateTicket(ctx context.Context, ticket *Ticket) error

	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
