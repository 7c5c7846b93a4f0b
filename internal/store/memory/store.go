// Package memory is a Store kept in process memory. All access goes through a
// single mutex, so allocation and spot claims are serialized.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"parking-system/internal/parking"
)

type state struct {
	spots   map[int]*parking.ParkingSpot
	tickets []*parking.Ticket
	nextID  int64
}

func (st *state) clone() *state {
	c := &state{
		spots:   make(map[int]*parking.ParkingSpot, len(st.spots)),
		tickets: make([]*parking.Ticket, len(st.tickets)),
		nextID:  st.nextID,
	}
	for id, spot := range st.spots {
		s := *spot
		c.spots[id] = &s
	}
	for i, t := range st.tickets {
		c.tickets[i] = t.Clone()
	}
	return c
}

type Store struct {
	mu    sync.Mutex
	state *state
}

var _ parking.Store = (*Store)(nil)

func NewStore(spots []*parking.ParkingSpot) *Store {
	st := &state{
		spots:  make(map[int]*parking.ParkingSpot, len(spots)),
		nextID: 1,
	}
	for _, spot := range spots {
		s := *spot
		st.spots[s.ID] = &s
	}
	return &Store{state: st}
}

func (s *Store) view() *view {
	return &view{state: s.state}
}

func (s *Store) FindAvailableSpot(ctx context.Context, category parking.Category) (*parking.ParkingSpot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindAvailableSpot(ctx, category)
}

func (s *Store) ClaimSpot(ctx context.Context, spotID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ClaimSpot(ctx, spotID)
}

func (s *Store) UpdateSpotAvailability(ctx context.Context, spotID int, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateSpotAvailability(ctx, spotID, available)
}

func (s *Store) GetSpot(ctx context.Context, spotID int) (*parking.ParkingSpot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetSpot(ctx, spotID)
}

func (s *Store) ListSpots(ctx context.Context) ([]*parking.ParkingSpot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListSpots(ctx)
}

func (s *Store) SaveTicket(ctx context.Context, ticket *parking.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().SaveTicket(ctx, ticket)
}

func (s *Store) GetOpenTicket(ctx context.Context, regNumber string) (*parking.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetOpenTicket(ctx, regNumber)
}

func (s *Store) GetLastClosedTicket(ctx context.Context, regNumber string) (*parking.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetLastClosedTicket(ctx, regNumber)
}

func (s *Store) CountClosedTickets(ctx context.Context, regNumber string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CountClosedTickets(ctx, regNumber)
}

func (s *Store) UpdateTicket(ctx context.Context, ticket *parking.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateTicket(ctx, ticket)
}

// WithinTx holds the store lock for the whole of fn and works on a copy of
// the state, which replaces the live state only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx parking.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&view{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// view implements parking.Store over a state without locking. The caller
// holds Store.mu.
type view struct {
	state *state
}

func (v *view) FindAvailableSpot(_ context.Context, category parking.Category) (*parking.ParkingSpot, error) {
	var best *parking.ParkingSpot
	for _, spot := range v.state.spots {
		if spot.Category != category || !spot.Available {
			continue
		}
		if best == nil || spot.ID < best.ID {
			best = spot
		}
	}
	if best == nil {
		return nil, parking.ErrNotFound
	}
	found := *best
	return &found, nil
}

func (v *view) ClaimSpot(_ context.Context, spotID int) error {
	spot, ok := v.state.spots[spotID]
	if !ok {
		return fmt.Errorf("spot %d: %w", spotID, parking.ErrNotFound)
	}
	if !spot.Available {
		return fmt.Errorf("spot %d: %w", spotID, parking.ErrSpotTaken)
	}
	spot.Occupy()
	return nil
}

func (v *view) UpdateSpotAvailability(_ context.Context, spotID int, available bool) error {
	spot, ok := v.state.spots[spotID]
	if !ok {
		return fmt.Errorf("spot %d: %w", spotID, parking.ErrNotFound)
	}
	spot.Available = available
	return nil
}

func (v *view) GetSpot(_ context.Context, spotID int) (*parking.ParkingSpot, error) {
	spot, ok := v.state.spots[spotID]
	if !ok {
		return nil, fmt.Errorf("spot %d: %w", spotID, parking.ErrNotFound)
	}
	found := *spot
	return &found, nil
}

func (v *view) ListSpots(_ context.Context) ([]*parking.ParkingSpot, error) {
	spots := make([]*parking.ParkingSpot, 0, len(v.state.spots))
	for _, spot := range v.state.spots {
		s := *spot
		spots = append(spots, &s)
	}
	sort.Slice(spots, func(i, j int) bool {
		return spots[i].ID < spots[j].ID
	})
	return spots, nil
}

func (v *view) SaveTicket(_ context.Context, ticket *parking.Ticket) error {
	if _, ok := v.state.spots[ticket.Spot.ID]; !ok {
		return fmt.Errorf("spot %d: %w", ticket.Spot.ID, parking.ErrNotFound)
	}
	ticket.ID = v.state.nextID
	v.state.nextID++
	v.state.tickets = append(v.state.tickets, ticket.Clone())
	return nil
}

func (v *view) withSpot(t *parking.Ticket) *parking.Ticket {
	c := t.Clone()
	if spot, ok := v.state.spots[c.Spot.ID]; ok {
		c.Spot = *spot
	}
	return c
}

func (v *view) GetOpenTicket(_ context.Context, regNumber string) (*parking.Ticket, error) {
	for i := len(v.state.tickets) - 1; i >= 0; i-- {
		t := v.state.tickets[i]
		if t.VehicleRegNumber == regNumber && t.IsOpen() {
			return v.withSpot(t), nil
		}
	}
	return nil, parking.ErrNotFound
}

func (v *view) GetLastClosedTicket(_ context.Context, regNumber string) (*parking.Ticket, error) {
	var last *parking.Ticket
	for _, t := range v.state.tickets {
		if t.VehicleRegNumber != regNumber || t.IsOpen() {
			continue
		}
		if last == nil || !t.OutTime.Before(*last.OutTime) {
			last = t
		}
	}
	if last == nil {
		return nil, parking.ErrNotFound
	}
	return v.withSpot(last), nil
}

func (v *view) CountClosedTickets(_ context.Context, regNumber string) (int, error) {
	n := 0
	for _, t := range v.state.tickets {
		if t.VehicleRegNumber == regNumber && !t.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (v *view) UpdateTicket(_ context.Context, ticket *parking.Ticket) error {
	for i, t := range v.state.tickets {
		if t.ID != ticket.ID {
			continue
		}
		if !t.IsOpen() {
			return fmt.Errorf("ticket %d: %w", ticket.ID, parking.ErrTicketClosed)
		}
		updated := t.Clone()
		if ticket.OutTime != nil {
			out := *ticket.OutTime
			updated.OutTime = &out
		}
		updated.Price = ticket.Price
		updated.ReturningUser = ticket.ReturningUser
		v.state.tickets[i] = updated
		return nil
	}
	return fmt.Errorf("ticket %d: %w", ticket.ID, parking.ErrNotFound)
}

func (v *view) WithinTx(_ context.Context, fn func(tx parking.Store) error) error {
	return fn(v)
}
