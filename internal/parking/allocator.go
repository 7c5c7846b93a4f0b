package parking

import (
	"context"
	"errors"
	"fmt"
)

type SpotFinder interface {
	FindAvailableSpot(ctx context.Context, category Category) (*ParkingSpot, error)
}

// SpotAllocator picks the lowest-numbered available spot of a category. It
// does not mark the spot; the session service claims it together with the
// ticket it creates.
type SpotAllocator struct {
	spots SpotFinder
}

func NewSpotAllocator(spots SpotFinder) *SpotAllocator {
	return &SpotAllocator{spots: spots}
}

func (a *SpotAllocator) AllocateSpot(ctx context.Context, category Category) (*ParkingSpot, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	spot, err := a.spots.FindAvailableSpot(ctx, category)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: category %s", ErrNoSpotAvailable, category)
	}
	if err != nil {
		return nil, err
	}
	if spot == nil || spot.ID <= 0 || !spot.Available {
		return nil, fmt.Errorf("%w: category %s", ErrNoSpotAvailable, category)
	}
	return spot, nil
}
