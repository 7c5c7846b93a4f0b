package parking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCategory     = errors.New("invalid vehicle category")
	ErrInvalidRegistration = errors.New("invalid vehicle registration number")
	ErrNoSpotAvailable     = errors.New("no parking spot available")
	ErrInvalidDuration     = errors.New("exit time is before entry time")
	ErrNoOpenSession       = errors.New("no open parking session for vehicle")
	ErrSessionAlreadyOpen  = errors.New("vehicle already has an open parking session")

	// Store-level conditions. ErrNotFound is never returned by the session
	// service for arrivals or departures; it is translated first.
	ErrNotFound     = errors.New("not found")
	ErrSpotTaken    = errors.New("parking spot is no longer available")
	ErrTicketClosed = errors.New("ticket is already closed")
)

// PersistenceError wraps a failure reported by a Store. The session service
// returns it to the caller as is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError returns nil when err is nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
