package parking

type ParkingSpot struct {
	ID        int
	Category  Category
	Available bool
}

func NewParkingSpot(id int, category Category) *ParkingSpot {
	return &ParkingSpot{
		ID:        id,
		Category:  category,
		Available: true,
	}
}

func (s *ParkingSpot) Occupy() {
	s.Available = false
}

func (s *ParkingSpot) Release() {
	s.Available = true
}

// Provision lays out a facility: car spots are numbered first starting at 1,
// bike spots follow.
func Provision(carSpots, bikeSpots int) []*ParkingSpot {
	spots := make([]*ParkingSpot, 0, carSpots+bikeSpots)
	for i := 0; i < carSpots; i++ {
		spots = append(spots, NewParkingSpot(len(spots)+1, CategoryCar))
	}
	for i := 0; i < bikeSpots; i++ {
		spots = append(spots, NewParkingSpot(len(spots)+1, CategoryBike))
	}
	return spots
}
