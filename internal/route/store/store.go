package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/route"
)

var ErrNotFound = errors.New("daily route not found")

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveDailyRoute replaces the whole record for the route's date. Partial
// updates are never visible: the row is a single derived artifact.
func (s *Store) SaveDailyRoute(ctx context.Context, r *route.DailyRoute) error {
	optimized, err := json.Marshal(r.OptimizedRoute)
	if err != nil {
		return fmt.Errorf("encoding optimized route: %w", err)
	}

	loading, err := json.Marshal(r.OptimizedLoadingList)
	if err != nil {
		return fmt.Errorf("encoding loading list: %w", err)
	}

	polylineJSON, err := json.Marshal(r.StreetLevelPolyline)
	if err != nil {
		return fmt.Errorf("encoding polyline: %w", err)
	}

	query := `
		INSERT INTO daily_routes (date, optimized_route, optimized_loading_list, street_level_polyline, total_distance_meters, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (date) DO UPDATE
		SET optimized_route = EXCLUDED.optimized_route,
			optimized_loading_list = EXCLUDED.optimized_loading_list,
			street_level_polyline = EXCLUDED.street_level_polyline,
			total_distance_meters = EXCLUDED.total_distance_meters,
			created_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, r.Date, optimized, loading, polylineJSON, r.TotalDistanceMeters); err != nil {
		return fmt.Errorf("saving daily route: %w", err)
	}

	return nil
}

// GetDailyRoute returns the stored route for a YYYY-MM-DD date.
func (s *Store) GetDailyRoute(ctx context.Context, date string) (*route.DailyRoute, error) {
	query := `
		SELECT date, optimized_route, optimized_loading_list, street_level_polyline, total_distance_meters, created_at
		FROM daily_routes
		WHERE date = $1`

	var r route.DailyRoute

	var optimized, loading, polylineJSON []byte

	err := s.db.QueryRowContext(ctx, query, date).Scan(
		&r.Date, &optimized, &loading, &polylineJSON, &r.TotalDistanceMeters, &r.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("getting daily route: %w", err)
	}

	if err := json.Unmarshal(optimized, &r.OptimizedRoute); err != nil {
		return nil, fmt.Errorf("decoding optimized route: %w", err)
	}

	if err := json.Unmarshal(loading, &r.OptimizedLoadingList); err != nil {
		return nil, fmt.Errorf("decoding loading list: %w", err)
	}

	if len(polylineJSON) > 0 {
		var path []geo.Coordinates
		if err := json.Unmarshal(polylineJSON, &path); err != nil {
			return nil, fmt.Errorf("decoding polyline: %w", err)
		}

		r.StreetLevelPolyline = path
	}

	return &r, nil
}
