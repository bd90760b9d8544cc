package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/delivery"
	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/invoice"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// OldestPending selects the link candidate: the oldest still-pending stop
// at the address, from any day's report.
func (s *Store) OldestPending(ctx context.Context, normalizedAddress string) (*delivery.Item, error) {
	query := `
		SELECT id, delivery_address, normalized_address, commercial_entity, package_count, delivery_instructions, customer_id, status, lat, lon, created_at
		FROM delivery_items
		WHERE normalized_address = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT 1`

	var item delivery.Item

	var statusStr string

	var lat, lon sql.NullFloat64

	err := s.db.QueryRowContext(ctx, query, normalizedAddress, delivery.StatusPendingLink).Scan(
		&item.ID, &item.DeliveryAddress, &item.NormalizedAddress, &item.CommercialEntity,
		&item.PackageCount, &item.DeliveryInstructions, &item.CustomerID, &statusStr,
		&lat, &lon, &item.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, delivery.ErrNotFound
		}

		return nil, fmt.Errorf("selecting oldest pending item: %w", err)
	}

	item.Status = delivery.Status(statusStr)

	if lat.Valid && lon.Valid {
		item.Coordinates = &geo.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}

	return &item, nil
}

// ClaimPending is the conditional claim: it succeeds only if the item is
// still pending_link, so two concurrent invoices can never both take the
// same stop.
func (s *Store) ClaimPending(ctx context.Context, itemID, invoiceID uuid.UUID, products []invoice.ProductItem) (bool, error) {
	encoded, err := json.Marshal(products)
	if err != nil {
		return false, fmt.Errorf("encoding product items: %w", err)
	}

	query := `
		UPDATE delivery_items
		SET status = $3,
			invoice_id = $2,
			product_items = $4,
			linked_at = NOW()
		WHERE id = $1 AND status = $5`

	res, err := s.db.ExecContext(ctx, query, itemID, invoiceID, delivery.StatusLinked, encoded, delivery.StatusPendingLink)
	if err != nil {
		return false, fmt.Errorf("claiming delivery item: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming delivery item: rows affected: %w", err)
	}

	return rows == 1, nil
}

func (s *Store) MarkInvoiceLinked(ctx context.Context, invoiceID, itemID uuid.UUID) error {
	query := `
		UPDATE invoices
		SET status = $2, delivery_item_id = $3
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query, invoiceID, invoice.StatusLinked, itemID); err != nil {
		return fmt.Errorf("marking invoice linked: %w", err)
	}

	return nil
}
