package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"parking-system/internal/parking"
)

const uniqueViolation = "23505"

type Store struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

var _ parking.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, q: db}
}

type spotRow struct {
	ID        int    `db:"parking_number"`
	Type      string `db:"type"`
	Available bool   `db:"available"`
}

func (r spotRow) toSpot() *parking.ParkingSpot {
	return &parking.ParkingSpot{
		ID:        r.ID,
		Category:  parking.Category(r.Type),
		Available: r.Available,
	}
}

type ticketRow struct {
	ID            int64           `db:"id"`
	SpotID        int             `db:"parking_number"`
	SpotType      string          `db:"type"`
	SpotAvailable bool            `db:"available"`
	RegNumber     string          `db:"vehicle_reg_number"`
	Price         decimal.Decimal `db:"price"`
	InTime        time.Time       `db:"in_time"`
	OutTime       sql.NullTime    `db:"out_time"`
	ReturningUser bool            `db:"returning_user"`
}

func (r ticketRow) toTicket() *parking.Ticket {
	t := &parking.Ticket{
		ID: r.ID,
		Spot: parking.ParkingSpot{
			ID:        r.SpotID,
			Category:  parking.Category(r.SpotType),
			Available: r.SpotAvailable,
		},
		VehicleRegNumber: r.RegNumber,
		Price:            r.Price,
		InTime:           r.InTime,
		ReturningUser:    r.ReturningUser,
	}
	if r.OutTime.Valid {
		out := r.OutTime.Time
		t.OutTime = &out
	}
	return t
}

const ticketColumns = `
	t.id, t.vehicle_reg_number, t.price, t.in_time, t.out_time, t.returning_user,
	p.parking_number, p.type, p.available`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Store) FindAvailableSpot(ctx context.Context, category parking.Category) (*parking.ParkingSpot, error) {
	query := `
		SELECT parking_number, type, available
		FROM parking
		WHERE type = $1 AND available
		ORDER BY parking_number
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	var row spotRow
	err := sqlx.GetContext(ctx, s.q, &row, query, string(category))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, parking.ErrNotFound
	}
	if err != nil {
		return nil, parking.NewPersistenceError("find available spot", err)
	}
	return row.toSpot(), nil
}

func (s *Store) ClaimSpot(ctx context.Context, spotID int) error {
	query := `UPDATE parking SET available = FALSE WHERE parking_number = $1 AND available`

	res, err := s.q.ExecContext(ctx, query, spotID)
	if err != nil {
		return parking.NewPersistenceError("claim spot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return parking.NewPersistenceError("claim spot", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := s.GetSpot(ctx, spotID); err != nil {
		return err
	}
	return fmt.Errorf("spot %d: %w", spotID, parking.ErrSpotTaken)
}

func (s *Store) UpdateSpotAvailability(ctx context.Context, spotID int, available bool) error {
	query := `UPDATE parking SET available = $1 WHERE parking_number = $2`

	res, err := s.q.ExecContext(ctx, query, available, spotID)
	if err != nil {
		return parking.NewPersistenceError("update spot availability", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return parking.NewPersistenceError("update spot availability", err)
	}
	if n == 0 {
		return fmt.Errorf("spot %d: %w", spotID, parking.ErrNotFound)
	}
	return nil
}

func (s *Store) GetSpot(ctx context.Context, spotID int) (*parking.ParkingSpot, error) {
	query := `SELECT parking_number, type, available FROM parking WHERE parking_number = $1`

	var row spotRow
	err := sqlx.GetContext(ctx, s.q, &row, query, spotID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spot %d: %w", spotID, parking.ErrNotFound)
	}
	if err != nil {
		return nil, parking.NewPersistenceError("get spot", err)
	}
	return row.toSpot(), nil
}

func (s *Store) ListSpots(ctx context.Context) ([]*parking.ParkingSpot, error) {
	query := `SELECT parking_number, type, available FROM parking ORDER BY parking_number`

	var rows []spotRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, query); err != nil {
		return nil, parking.NewPersistenceError("list spots", err)
	}

	spots := make([]*parking.ParkingSpot, len(rows))
	for i, row := range rows {
		spots[i] = row.toSpot()
	}
	return spots, nil
}

func (s *Store) SaveTicket(ctx context.Context, ticket *parking.Ticket) error {
	query := `
		INSERT INTO ticket (parking_number, vehicle_reg_number, price, in_time, out_time, returning_user)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := s.q.QueryRowxContext(ctx, query,
		ticket.Spot.ID, ticket.VehicleRegNumber, ticket.Price, ticket.InTime, ticket.OutTime, ticket.ReturningUser,
	).Scan(&ticket.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", parking.ErrSessionAlreadyOpen, ticket.VehicleRegNumber)
	}
	if err != nil {
		return parking.NewPersistenceError("save ticket", err)
	}
	return nil
}

func (s *Store) getTicket(ctx context.Context, op, query string, args ...any) (*parking.Ticket, error) {
	var row ticketRow
	err := sqlx.GetContext(ctx, s.q, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, parking.ErrNotFound
	}
	if err != nil {
		return nil, parking.NewPersistenceError(op, err)
	}
	return row.toTicket(), nil
}

func (s *Store) GetOpenTicket(ctx context.Context, regNumber string) (*parking.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM ticket t
		JOIN parking p ON p.parking_number = t.parking_number
		WHERE t.vehicle_reg_number = $1 AND t.out_time IS NULL
		ORDER BY t.in_time DESC
		LIMIT 1`

	return s.getTicket(ctx, "get open ticket", query, regNumber)
}

func (s *Store) GetLastClosedTicket(ctx context.Context, regNumber string) (*parking.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM ticket t
		JOIN parking p ON p.parking_number = t.parking_number
		WHERE t.vehicle_reg_number = $1 AND t.out_time IS NOT NULL
		ORDER BY t.out_time DESC, t.id DESC
		LIMIT 1`

	return s.getTicket(ctx, "get last closed ticket", query, regNumber)
}

func (s *Store) CountClosedTickets(ctx context.Context, regNumber string) (int, error) {
	query := `SELECT COUNT(*) FROM ticket WHERE vehicle_reg_number = $1 AND out_time IS NOT NULL`

	var count int
	if err := sqlx.GetContext(ctx, s.q, &count, query, regNumber); err != nil {
		return 0, parking.NewPersistenceError("count closed tickets", err)
	}
	return count, nil
}

func (s *Store) UpdateTicket(ctx context.Context, ticket *parking.Ticket) error {
	query := `
		UPDATE ticket SET out_time = $1, price = $2, returning_user = $3
		WHERE id = $4 AND out_time IS NULL`

	res, err := s.q.ExecContext(ctx, query, ticket.OutTime, ticket.Price, ticket.ReturningUser, ticket.ID)
	if err != nil {
		return parking.NewPersistenceError("update ticket", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return parking.NewPersistenceError("update ticket", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, s.q, &exists, `SELECT EXISTS(SELECT 1 FROM ticket WHERE id = $1)`, ticket.ID); err != nil {
		return parking.NewPersistenceError("update ticket", err)
	}
	if exists {
		return fmt.Errorf("ticket %d: %w", ticket.ID, parking.ErrTicketClosed)
	}
	return fmt.Errorf("ticket %d: %w", ticket.ID, parking.ErrNotFound)
}

// WithinTx commits when fn returns nil. Nested calls join the outer
// transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx parking.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return parking.NewPersistenceError("begin transaction", err)
	}

	if err := fn(&Store{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return parking.NewPersistenceError("commit transaction", err)
	}
	return nil
}
