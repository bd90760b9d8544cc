package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/invoice"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	products, err := json.Marshal(inv.ProductItems)
	if err != nil {
		return fmt.Errorf("encoding product items: %w", err)
	}

	var lat, lon *float64
	if inv.Coordinates != nil {
		lat = &inv.Coordinates.Lat
		lon = &inv.Coordinates.Lon
	}

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	query := `
		INSERT INTO invoices (id, invoice_number, image_url, client_name, address, normalized_address, product_items, total_amount, lat, lon, customer_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING created_at`

	err = s.db.QueryRowContext(ctx, query,
		inv.ID, inv.InvoiceNumber, inv.ImageURL, inv.ClientName, inv.Address,
		inv.NormalizedAddress, products, inv.TotalAmount, lat, lon,
		inv.CustomerID, inv.Status,
	).Scan(&inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `
		SELECT id, invoice_number, image_url, client_name, address, normalized_address, product_items, total_amount, lat, lon, customer_id, status, created_at
		FROM invoices
		WHERE id = $1`

	var inv invoice.Invoice

	var products []byte

	var lat, lon sql.NullFloat64

	var statusStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.ImageURL, &inv.ClientName, &inv.Address,
		&inv.NormalizedAddress, &products, &inv.TotalAmount, &lat, &lon,
		&inv.CustomerID, &statusStr, &inv.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	inv.Status = invoice.Status(statusStr)

	if lat.Valid && lon.Valid {
		inv.Coordinates = &geo.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}

	if len(products) > 0 {
		if err := json.Unmarshal(products, &inv.ProductItems); err != nil {
			return nil, fmt.Errorf("decoding product items: %w", err)
		}
	}

	return &inv, nil
}
