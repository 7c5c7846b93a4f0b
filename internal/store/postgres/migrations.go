package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"parking-system/internal/parking"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS parking (
		parking_number INTEGER PRIMARY KEY,
		type           VARCHAR(10) NOT NULL,
		available      BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS ticket (
		id                 BIGSERIAL PRIMARY KEY,
		parking_number     INTEGER NOT NULL REFERENCES parking (parking_number),
		vehicle_reg_number VARCHAR(64) NOT NULL,
		price              NUMERIC NOT NULL DEFAULT 0,
		in_time            TIMESTAMPTZ NOT NULL,
		out_time           TIMESTAMPTZ,
		returning_user     BOOLEAN NOT NULL DEFAULT FALSE,
		CHECK (out_time IS NULL OR out_time >= in_time)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ticket_open_session_idx
		ON ticket (vehicle_reg_number) WHERE out_time IS NULL`,
	`CREATE INDEX IF NOT EXISTS ticket_vehicle_out_time_idx
		ON ticket (vehicle_reg_number, out_time)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Seed inserts the facility's spots. Existing spots keep their availability.
func Seed(ctx context.Context, db *sqlx.DB, spots []*parking.ParkingSpot) error {
	query := `
		INSERT INTO parking (parking_number, type, available)
		VALUES ($1, $2, $3)
		ON CONFLICT (parking_number) DO NOTHING`

	for _, spot := range spots {
		if _, err := db.ExecContext(ctx, query, spot.ID, string(spot.Category), spot.Available); err != nil {
			return fmt.Errorf("seed spot %d: %w", spot.ID, err)
		}
	}
	return nil
}
