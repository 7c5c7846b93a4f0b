// Package messages renders session results as the user-facing text the
// console and HTTP drivers show. The wording is relied on by consumers and
// must not change.
package messages

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"parking-system/internal/parking"
)

// TimeLayout prints timestamps as e.g. "Thu Oct 15 09:30:00 UTC 2026".
const TimeLayout = "Mon Jan 02 15:04:05 MST 2006"

const (
	TicketGenerated       = "Generated Ticket and saved in DB"
	NoSpotAvailable       = "Error fetching parking number from DB. Parking slots might be full"
	IncomingFailed        = "Unable to process incoming vehicle"
	ExitingFailed         = "Unable to process exiting vehicle"
	IncorrectInput        = "Incorrect input provided"
	InvalidInput          = "Invalid input provided"
	AlreadyParked         = "This vehicle is already parked"
	NoOpenSession         = "No parking session found for this vehicle"
	welcomeBackFormat     = "Welcome back! As a recurring user of our parking lot, you'll benefit from a %s%% discount."
	parkInSpotFormat      = "Please park your vehicle in spot number:%d"
	recordedInTimeFormat  = "Recorded in-time for vehicle number:%s is:%s"
	payFareFormat         = "Please pay the parking fare:%s"
	recordedOutTimeFormat = "Recorded out-time for vehicle number:%s is:%s"
)

var hundred = decimal.NewFromInt(100)

// WelcomeBack is shown once per arrival of a returning user.
func WelcomeBack(discount decimal.Decimal) string {
	return fmt.Sprintf(welcomeBackFormat, discount.Mul(hundred).String())
}

func Arrival(res *parking.ArrivalResult) []string {
	var lines []string
	if res.ReturningUser {
		lines = append(lines, WelcomeBack(res.Discount))
	}
	return append(lines,
		TicketGenerated,
		fmt.Sprintf(parkInSpotFormat, res.Ticket.Spot.ID),
		fmt.Sprintf(recordedInTimeFormat, res.Ticket.VehicleRegNumber, FormatTime(res.Ticket.InTime)),
	)
}

func Departure(res *parking.DepartureResult) []string {
	return []string{
		fmt.Sprintf(payFareFormat, res.Fare.String()),
		fmt.Sprintf(recordedOutTimeFormat, res.Ticket.VehicleRegNumber, FormatTime(*res.Ticket.OutTime)),
	}
}

// IncomingError explains why an arrival was refused.
func IncomingError(err error) string {
	switch {
	case errors.Is(err, parking.ErrNoSpotAvailable):
		return NoSpotAvailable
	case errors.Is(err, parking.ErrInvalidCategory), errors.Is(err, parking.ErrInvalidRegistration):
		return InvalidInput
	case errors.Is(err, parking.ErrSessionAlreadyOpen):
		return AlreadyParked
	}
	return IncomingFailed
}

// ExitingError explains why a departure was refused.
func ExitingError(err error) string {
	switch {
	case errors.Is(err, parking.ErrNoOpenSession):
		return NoOpenSession
	case errors.Is(err, parking.ErrInvalidRegistration):
		return InvalidInput
	}
	return ExitingFailed
}

func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
