package parking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParkingSpot(t *testing.T) {
	spot := NewParkingSpot(1, CategoryCar)

	assert.Equal(t, 1, spot.ID)
	assert.Equal(t, CategoryCar, spot.Category)
	assert.True(t, spot.Available)
}

func TestParkingSpotOccupyRelease(t *testing.T) {
	spot := NewParkingSpot(1, CategoryBike)

	spot.Occupy()
	assert.False(t, spot.Available)

	spot.Release()
	assert.True(t, spot.Available)
}

func TestProvision(t *testing.T) {
	spots := Provision(3, 2)

	want := []Category{CategoryCar, CategoryCar, CategoryCar, CategoryBike, CategoryBike}
	if assert.Len(t, spots, len(want)) {
		for i, spot := range spots {
			assert.Equal(t, i+1, spot.ID)
			assert.Equal(t, want[i], spot.Category)
			assert.True(t, spot.Available)
		}
	}

	assert.Empty(t, Provision(0, 0))
}
