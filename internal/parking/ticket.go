package parking

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionState string

const (
	StateOpen   SessionState = "OPEN"
	StateClosed SessionState = "CLOSED"
)

// Ticket binds a vehicle to a spot for one session. InTime is set on arrival;
// OutTime, Price and ReturningUser are set once, on departure.
type Ticket struct {
	ID               int64
	Spot             ParkingSpot
	VehicleRegNumber string
	InTime           time.Time
	OutTime          *time.Time
	Price            decimal.Decimal
	ReturningUser    bool
}

func (t *Ticket) State() SessionState {
	if t.OutTime == nil {
		return StateOpen
	}
	return StateClosed
}

func (t *Ticket) IsOpen() bool {
	return t.State() == StateOpen
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.OutTime != nil {
		out := *t.OutTime
		c.OutTime = &out
	}
	return &c
}
