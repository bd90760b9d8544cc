package database

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates the tables the stores expect. Statements are
// idempotent so startup can run this unconditionally.
func InitSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id UUID PRIMARY KEY,
			address TEXT NOT NULL,
			normalized_address TEXT NOT NULL UNIQUE,
			commercial_name TEXT NOT NULL DEFAULT '',
			legal_name TEXT NOT NULL DEFAULT '',
			delivery_instructions TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS geocode_cache (
			normalized_address TEXT PRIMARY KEY,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS delivery_items (
			id UUID PRIMARY KEY,
			delivery_address TEXT NOT NULL,
			normalized_address TEXT NOT NULL,
			commercial_entity TEXT NOT NULL DEFAULT '',
			package_count INTEGER NOT NULL DEFAULT 0,
			delivery_instructions TEXT NOT NULL DEFAULT '',
			customer_id UUID REFERENCES customers(id),
			status TEXT NOT NULL,
			invoice_id UUID,
			product_items JSONB,
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			linked_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_items_pending
			ON delivery_items (normalized_address, created_at)
			WHERE status = 'pending_link'`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id UUID PRIMARY KEY,
			invoice_number TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			client_name TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL,
			normalized_address TEXT NOT NULL,
			product_items JSONB,
			total_amount BIGINT NOT NULL DEFAULT 0,
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			customer_id UUID REFERENCES customers(id),
			status TEXT NOT NULL,
			delivery_item_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS daily_routes (
			date TEXT PRIMARY KEY,
			optimized_route JSONB NOT NULL,
			optimized_loading_list JSONB NOT NULL,
			street_level_polyline JSONB,
			total_distance_meters INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}

	return nil
}
