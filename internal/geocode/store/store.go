package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mfiguera/rutero/internal/geo"
)

// Store is the SQL-backed geocode cache keyed by normalized address.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) (geo.Coordinates, bool, error) {
	query := `
		SELECT lat, lon
		FROM geocode_cache
		WHERE normalized_address = $1
	`

	var c geo.Coordinates

	err := s.db.QueryRowContext(ctx, query, key).Scan(&c.Lat, &c.Lon)
	if err != nil {
		if err == sql.ErrNoRows {
			return geo.Coordinates{}, false, nil
		}

		return geo.Coordinates{}, false, fmt.Errorf("reading geocode cache: %w", err)
	}

	return c, true, nil
}

func (s *Store) Put(ctx context.Context, key string, c geo.Coordinates) error {
	query := `
		INSERT INTO geocode_cache (normalized_address, lat, lon, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (normalized_address) DO UPDATE
		SET lat = EXCLUDED.lat,
			lon = EXCLUDED.lon
	`

	if _, err := s.db.ExecContext(ctx, query, key, c.Lat, c.Lon); err != nil {
		return fmt.Errorf("writing geocode cache: %w", err)
	}

	return nil
}
