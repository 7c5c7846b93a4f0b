package server

import (
	"context"

	"github.com/stretchr/testify/mock"

	"parking-system/internal/parking"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) ProcessIncomingVehicle(ctx context.Context, category parking.Category, regNumber string) (*parking.ArrivalResult, error) {
	args := m.Called(ctx, category, regNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parking.ArrivalResult), args.Error(1)
}

func (m *MockSessionService) ProcessExitingVehicle(ctx context.Context, regNumber string) (*parking.DepartureResult, error) {
	args := m.Called(ctx, regNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parking.DepartureResult), args.Error(1)
}

func (m *MockSessionService) IsReturningUser(ctx context.Context, regNumber string) (bool, error) {
	args := m.Called(ctx, regNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionService) ListSpots(ctx context.Context) ([]*parking.ParkingSpot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*parking.ParkingSpot), args.Error(1)
}

func (m *MockSessionService) GetTicket(ctx context.Context, regNumber string) (*parking.Ticket, error) {
	args := m.Called(ctx, regNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parking.Ticket), args.Error(1)
}
