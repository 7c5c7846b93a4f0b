package parking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultFreeGracePeriod = 30 * time.Minute

// FareScale is the number of decimal places a fare is rounded to.
const FareScale int32 = 4

// RateTable maps each category to its hourly rate.
type RateTable map[Category]decimal.Decimal

var (
	DefaultRates = RateTable{
		CategoryCar:  decimal.RequireFromString("1.5"),
		CategoryBike: decimal.RequireFromString("1.0"),
	}
	DefaultReturningUserDiscount = decimal.RequireFromString("0.05")
)

var hour = decimal.NewFromInt(int64(time.Hour))

// FareCalculator is pure: it holds only the immutable tariff.
type FareCalculator struct {
	rates    RateTable
	grace    time.Duration
	discount decimal.Decimal
}

func NewFareCalculator(rates RateTable, grace time.Duration, discount decimal.Decimal) *FareCalculator {
	table := make(RateTable, len(rates))
	for c, r := range rates {
		table[c] = r
	}
	return &FareCalculator{
		rates:    table,
		grace:    grace,
		discount: discount,
	}
}

func NewDefaultFareCalculator() *FareCalculator {
	return NewFareCalculator(DefaultRates, DefaultFreeGracePeriod, DefaultReturningUserDiscount)
}

func (fc *FareCalculator) Rate(category Category) (decimal.Decimal, error) {
	rate, ok := fc.rates[category]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return rate, nil
}

// Discount is the fraction taken off a returning user's fare.
func (fc *FareCalculator) Discount() decimal.Decimal {
	return fc.discount
}

func (fc *FareCalculator) FreeGracePeriod() time.Duration {
	return fc.grace
}

// ComputeFare charges elapsed hours times the category rate, rounded half away
// from zero to FareScale places. Sessions shorter than the grace period are
// free, including zero-length ones; only an exit before the entry is rejected.
func (fc *FareCalculator) ComputeFare(inTime, outTime time.Time, category Category, returningUser bool) (decimal.Decimal, error) {
	rate, err := fc.Rate(category)
	if err != nil {
		return decimal.Zero, err
	}

	if outTime.Before(inTime) {
		return decimal.Zero, fmt.Errorf("%w: in %s, out %s", ErrInvalidDuration,
			inTime.Format(time.RFC3339), outTime.Format(time.RFC3339))
	}

	elapsed := outTime.Sub(inTime)
	if elapsed < fc.grace {
		return decimal.Zero, nil
	}

	// Divide last so terminating fares stay exact.
	fare := decimal.NewFromInt(int64(elapsed)).Mul(rate)
	if returningUser {
		fare = fare.Mul(decimal.NewFromInt(1).Sub(fc.discount))
	}

	return fare.Div(hour).Round(FareScale), nil
}
