package repository

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS licenses (
		id           BIGSERIAL PRIMARY KEY,
		license_key  TEXT NOT NULL UNIQUE,
		email        TEXT NOT NULL DEFAULT '',
		customer_id  TEXT NOT NULL DEFAULT '',
		bound_device TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL,
		expires_at   BIGINT NOT NULL DEFAULT 0,
		created_at   BIGINT NOT NULL,
		updated_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_licenses_email_status ON licenses (email, status)`,
	`CREATE INDEX IF NOT EXISTS idx_licenses_customer_status ON licenses (customer_id, status)`,
	`CREATE TABLE IF NOT EXISTS billing_events (
		id           BIGSERIAL PRIMARY KEY,
		provider     TEXT NOT NULL,
		event_id     TEXT NOT NULL,
		event_type   TEXT NOT NULL,
		outcome      TEXT NOT NULL DEFAULT '',
		received_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		claimed_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ,
		UNIQUE (provider, event_id)
	)`,
	`ALTER TABLE billing_events ADD COLUMN IF NOT EXISTS claimed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
	`CREATE TABLE IF NOT EXISTS trade_journal (
		id         BIGSERIAL PRIMARY KEY,
		logged_at  TIMESTAMPTZ NOT NULL,
		symbol     TEXT NOT NULL,
		pattern    TEXT NOT NULL DEFAULT '',
		side       TEXT NOT NULL DEFAULT '',
		price      DOUBLE PRECISION NOT NULL DEFAULT 0,
		prz_low    DOUBLE PRECISION,
		prz_high   DOUBLE PRECISION,
		rsi        DOUBLE PRECISION,
		trend      TEXT NOT NULL DEFAULT '',
		status     TEXT NOT NULL,
		sl         DOUBLE PRECISION NOT NULL DEFAULT 0,
		tp         DOUBLE PRECISION NOT NULL DEFAULT 0,
		lot        DOUBLE PRECISION NOT NULL DEFAULT 0,
		note       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_journal_logged_at ON trade_journal (logged_at DESC)`,
}

// RunMigrations creates the licenses, billing_events and trade_journal
// tables. Every statement is idempotent.
func RunMigrations(ctx context.Context, pool PgxPool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return storageErr(fmt.Sprintf("migration %d", i), err)
		}
	}
	return nil
}
