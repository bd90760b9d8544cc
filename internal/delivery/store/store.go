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

func (s *Store) CreateItem(ctx context.Context, item *delivery.Item) error {
	query := `
		INSERT INTO delivery_items (id, delivery_address, normalized_address, commercial_entity, package_count, delivery_instructions, customer_id, status, lat, lon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at`

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	var lat, lon *float64
	if item.Coordinates != nil {
		lat = &item.Coordinates.Lat
		lon = &item.Coordinates.Lon
	}

	err := s.db.QueryRowContext(ctx, query,
		item.ID, item.DeliveryAddress, item.NormalizedAddress, item.CommercialEntity,
		item.PackageCount, item.DeliveryInstructions, item.CustomerID, item.Status,
		lat, lon,
	).Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating delivery item: %w", err)
	}

	return nil
}

// LinkedProducts batch-loads the latest linked stop's product items for
// each address, one query per route build.
func (s *Store) LinkedProducts(ctx context.Context, normalizedAddresses []string) (map[string][]invoice.ProductItem, error) {
	if len(normalizedAddresses) == 0 {
		return map[string][]invoice.ProductItem{}, nil
	}

	query := `
		SELECT DISTINCT ON (normalized_address) normalized_address, product_items
		FROM delivery_items
		WHERE normalized_address = ANY($1) AND status = $2
		ORDER BY normalized_address, linked_at DESC`

	rows, err := s.db.QueryContext(ctx, query, normalizedAddresses, delivery.StatusLinked)
	if err != nil {
		return nil, fmt.Errorf("loading linked products: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]invoice.ProductItem, len(normalizedAddresses))

	for rows.Next() {
		var (
			key      string
			products []byte
		)

		if err := rows.Scan(&key, &products); err != nil {
			return nil, fmt.Errorf("scanning linked products: %w", err)
		}

		if len(products) == 0 {
			continue
		}

		var items []invoice.ProductItem
		if err := json.Unmarshal(products, &items); err != nil {
			return nil, fmt.Errorf("decoding linked products: %w", err)
		}

		out[key] = items
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading linked products: %w", err)
	}

	return out, nil
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*delivery.Item, error) {
	query := `
		SELECT id, delivery_address, normalized_address, commercial_entity, package_count, delivery_instructions, customer_id, status, invoice_id, product_items, lat, lon, created_at, linked_at
		FROM delivery_items
		WHERE id = $1`

	var (
		item     delivery.Item
		lat, lon sql.NullFloat64
		products []byte
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.DeliveryAddress, &item.NormalizedAddress, &item.CommercialEntity,
		&item.PackageCount, &item.DeliveryInstructions, &item.CustomerID, &item.Status,
		&item.InvoiceID, &products, &lat, &lon, &item.CreatedAt, &item.LinkedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, delivery.ErrNotFound
		}

		return nil, fmt.Errorf("getting delivery item: %w", err)
	}

	if lat.Valid && lon.Valid {
		item.Coordinates = &geo.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}

	if len(products) > 0 {
		var items []invoice.ProductItem
		if err := json.Unmarshal(products, &items); err != nil {
			return nil, fmt.Errorf("decoding product items: %w", err)
		}

		item.ProductItems = items
	}

	return &item, nil
}
