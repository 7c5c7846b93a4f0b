package parking

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryCar  Category = "CAR"
	CategoryBike Category = "BIKE"
)

// Categories lists every known category in menu order.
var Categories = []Category{CategoryCar, CategoryBike}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryCar, CategoryBike:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

type Vehicle struct {
	RegistrationNumber string
	Category           Category
}

// NewVehicle validates the category and trims the registration number.
// Registration numbers are otherwise kept as given; they are case-sensitive.
func NewVehicle(registrationNumber string, category Category) (*Vehicle, error) {
	reg, err := normalizeRegistration(registrationNumber)
	if err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return &Vehicle{
		RegistrationNumber: reg,
		Category:           category,
	}, nil
}

func normalizeRegistration(registrationNumber string) (string, error) {
	reg := strings.TrimSpace(registrationNumber)
	if reg == "" {
		return "", ErrInvalidRegistration
	}
	return reg, nil
}
