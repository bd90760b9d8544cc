package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/customer"
	"github.com/mfiguera/rutero/internal/geo"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectCustomerColumns = `id, address, normalized_address, commercial_name, legal_name, delivery_instructions, lat, lon, created_at, updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(s scanner) (*customer.Customer, error) {
	var c customer.Customer

	var lat, lon sql.NullFloat64

	if err := s.Scan(
		&c.ID, &c.Address, &c.NormalizedAddress, &c.CommercialName, &c.LegalName,
		&c.DeliveryInstructions, &lat, &lon, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if lat.Valid && lon.Valid {
		c.Coordinates = &geo.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}

	return &c, nil
}

func (s *Store) GetByNormalizedAddress(ctx context.Context, key string) (*customer.Customer, error) {
	query := `SELECT ` + selectCustomerColumns + `
		FROM customers
		WHERE normalized_address = $1`

	c, err := scanCustomer(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, customer.ErrNotFound
		}

		return nil, fmt.Errorf("getting customer by address: %w", err)
	}

	return c, nil
}

// CreateIfAbsent inserts the customer, relying on the unique index on
// normalized_address to make the find-or-create atomic. When a concurrent
// insert wins, the winner's row is returned with created=false.
func (s *Store) CreateIfAbsent(ctx context.Context, c *customer.Customer) (*customer.Customer, bool, error) {
	query := `
		INSERT INTO customers (id, address, normalized_address, commercial_name, legal_name, delivery_instructions, lat, lon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (normalized_address) DO NOTHING
		RETURNING ` + selectCustomerColumns

	var lat, lon *float64
	if c.Coordinates != nil {
		lat = &c.Coordinates.Lat
		lon = &c.Coordinates.Lon
	}

	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.db.QueryRowContext(ctx, query,
		id, c.Address, c.NormalizedAddress, c.CommercialName, c.LegalName,
		c.DeliveryInstructions, lat, lon,
	)

	stored, err := scanCustomer(row)
	if err == nil {
		return stored, true, nil
	}

	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("creating customer: %w", err)
	}

	// Conflict: someone else created the row; read it back.
	existing, err := s.GetByNormalizedAddress(ctx, c.NormalizedAddress)
	if err != nil {
		return nil, false, fmt.Errorf("reading customer after create conflict: %w", err)
	}

	return existing, false, nil
}

// UpdateObserved applies last-write-wins per field: empty strings leave the
// stored value alone. Coordinates are deliberately not part of this update.
func (s *Store) UpdateObserved(ctx context.Context, id uuid.UUID, obs customer.Observed) error {
	query := `
		UPDATE customers
		SET commercial_name = COALESCE(NULLIF($2, ''), commercial_name),
			legal_name = COALESCE(NULLIF($3, ''), legal_name),
			delivery_instructions = COALESCE(NULLIF($4, ''), delivery_instructions),
			updated_at = NOW()
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, obs.CommercialName, obs.LegalName, obs.DeliveryInstructions)
	if err != nil {
		return fmt.Errorf("updating customer: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating customer: rows affected: %w", err)
	}

	if rows == 0 {
		return customer.ErrNotFound
	}

	return nil
}
