package postgres

import (
	"context"
	"database/sql"
)

// Schema creates the tables used by this package.
const Schema = `
CREATE TABLE IF NOT EXISTS trips (
	id               TEXT PRIMARY KEY,
	trip_date        DATE NOT NULL,
	status           TEXT NOT NULL CHECK (status IN ('active', 'completed', 'cancelled')),
	is_settled       BOOLEAN NOT NULL DEFAULT FALSE,
	commercial_price NUMERIC(14, 2) NOT NULL DEFAULT 0,
	trip_price       NUMERIC(14, 2) NOT NULL DEFAULT 0,
	paid_amount      NUMERIC(14, 2) NOT NULL DEFAULT 0,
	collection       NUMERIC(14, 2) NOT NULL DEFAULT 0,
	commission       NUMERIC(14, 2) NOT NULL DEFAULT 0,
	quantity         INTEGER NOT NULL DEFAULT 0,
	customer_name    TEXT NOT NULL DEFAULT '',
	supplier_name    TEXT NOT NULL DEFAULT '',
	destination      TEXT NOT NULL DEFAULT '',
	notes            TEXT NOT NULL DEFAULT '',
	created_by       TEXT NOT NULL,
	version          INTEGER NOT NULL DEFAULT 1,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	CONSTRAINT cancelled_is_settled CHECK (status <> 'cancelled' OR is_settled)
);

CREATE INDEX IF NOT EXISTS trips_status_date_idx ON trips (status, trip_date);
CREATE INDEX IF NOT EXISTS trips_created_by_idx ON trips (created_by);

CREATE TABLE IF NOT EXISTS audit_logs (
	id         TEXT PRIMARY KEY,
	actor_id   TEXT NOT NULL,
	action     TEXT NOT NULL,
	target_id  TEXT NOT NULL,
	changes    JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS audit_logs_target_idx ON audit_logs (target_id, created_at);
`

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
