// Package geocode resolves addresses to coordinates through a durable cache.
package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mfiguera/rutero/internal/geo"
)

// Provider is an external geocoding collaborator. The boolean result is
// false when the provider has no answer for the address; that is a data
// condition, not an error.
type Provider interface {
	Geocode(ctx context.Context, addr string) (geo.Coordinates, bool, error)
}

// Cache is durable storage of resolved coordinates keyed by normalized
// address. A missing key is a normal empty result.
type Cache interface {
	Get(ctx context.Context, key string) (geo.Coordinates, bool, error)
	Put(ctx context.Context, key string, c geo.Coordinates) error
}

type Service struct {
	cache    Cache
	provider Provider
}

func NewService(cache Cache, provider Provider) *Service {
	return &Service{cache: cache, provider: provider}
}

// Resolve returns coordinates for the raw address, keyed in the cache by
// key (the normalized address). On a cache miss the provider is asked with
// the full address first and a simplified variant second; any success is
// cached before returning so identical addresses never re-trigger network
// calls. A false result means the address is not geocodable right now,
// either unknown to the provider or the provider being unreachable; only
// cache failures are errors.
func (s *Service) Resolve(ctx context.Context, raw, key string) (geo.Coordinates, bool, error) {
	if key == "" {
		return geo.Coordinates{}, false, nil
	}

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		return geo.Coordinates{}, false, fmt.Errorf("reading geocode cache: %w", err)
	}

	if ok {
		return cached, true, nil
	}

	coords, ok, err := s.provider.Geocode(ctx, raw)
	if err != nil {
		// A provider outage surfaces as not-geocodable rather than an
		// error: the caller's review flow handles the address, and the
		// cache miss means the next lookup asks again once the provider
		// recovers.
		slog.Warn("geocoding provider failed", "address", raw, "error", err)

		return geo.Coordinates{}, false, nil
	}

	if !ok {
		if simplified := simplify(raw); simplified != raw {
			coords, ok, err = s.provider.Geocode(ctx, simplified)
			if err != nil {
				slog.Warn("geocoding provider failed", "address", simplified, "error", err)

				return geo.Coordinates{}, false, nil
			}
		}
	}

	if !ok {
		return geo.Coordinates{}, false, nil
	}

	if !coords.Valid() {
		return geo.Coordinates{}, false, fmt.Errorf("geocoding %q: provider returned invalid coordinates %s", raw, coords)
	}

	// A failed cache write costs a repeat lookup later, not the result.
	if err := s.cache.Put(ctx, key, coords); err != nil {
		slog.Warn("failed to cache geocode result", "key", key, "error", err)
	}

	return coords, true, nil
}

// simplify drops secondary address lines (everything after the street and
// number) to give providers a second chance at noisy addresses.
func simplify(raw string) string {
	head, _, found := strings.Cut(raw, ",")
	if !found {
		return raw
	}

	return strings.TrimSpace(head)
}
