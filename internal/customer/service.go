package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/geo"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=customer
type Repository interface {
	GetByNormalizedAddress(ctx context.Context, key string) (*Customer, error)

	// CreateIfAbsent inserts the customer unless one already exists for its
	// normalized address. It returns the stored record and whether this
	// call created it; a lost race returns the winner's record.
	CreateIfAbsent(ctx context.Context, c *Customer) (*Customer, bool, error)

	// UpdateObserved overwrites only the non-empty fields of obs on the
	// stored record. Coordinates are never touched.
	UpdateObserved(ctx context.Context, id uuid.UUID, obs Observed) error
}

// Geocoder resolves an address to coordinates, or reports it unresolvable.
type Geocoder interface {
	Resolve(ctx context.Context, raw, key string) (geo.Coordinates, bool, error)
}

type Service struct {
	repo     Repository
	geocoder Geocoder
}

func NewService(repo Repository, geocoder Geocoder) *Service {
	return &Service{repo: repo, geocoder: geocoder}
}

// ResolveOrCreate finds the customer for the normalized address key,
// creating it if absent. New customers are geocoded once at creation; an
// ungeocodable address still yields a customer, just without coordinates.
// For existing customers each non-empty observed field overwrites the
// stored value (last write wins per field); blanks never clobber.
func (s *Service) ResolveOrCreate(ctx context.Context, key string, obs Observed) (*Customer, error) {
	if key == "" {
		return nil, errors.New("resolve customer: empty normalized address")
	}

	existing, err := s.repo.GetByNormalizedAddress(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("looking up customer: %w", err)
	}

	if err == nil {
		return s.merge(ctx, existing, obs)
	}

	c := &Customer{
		Address:              obs.Address,
		NormalizedAddress:    key,
		CommercialName:       obs.CommercialName,
		LegalName:            obs.LegalName,
		DeliveryInstructions: obs.DeliveryInstructions,
	}

	coords, ok, err := s.geocoder.Resolve(ctx, obs.Address, key)
	if err != nil {
		return nil, fmt.Errorf("geocoding new customer: %w", err)
	}

	if ok {
		c.Coordinates = &coords
	}

	stored, created, err := s.repo.CreateIfAbsent(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}

	if created {
		return stored, nil
	}

	// Another document won the create race; fold our observations into the
	// winner's record instead.
	return s.merge(ctx, stored, obs)
}

func (s *Service) merge(ctx context.Context, existing *Customer, obs Observed) (*Customer, error) {
	changed := Observed{}

	if obs.CommercialName != "" && obs.CommercialName != existing.CommercialName {
		changed.CommercialName = obs.CommercialName
		existing.CommercialName = obs.CommercialName
	}

	if obs.LegalName != "" && obs.LegalName != existing.LegalName {
		changed.LegalName = obs.LegalName
		existing.LegalName = obs.LegalName
	}

	if obs.DeliveryInstructions != "" && obs.DeliveryInstructions != existing.DeliveryInstructions {
		changed.DeliveryInstructions = obs.DeliveryInstructions
		existing.DeliveryInstructions = obs.DeliveryInstructions
	}

	if changed == (Observed{}) {
		return existing, nil
	}

	if err := s.repo.UpdateObserved(ctx, existing.ID, changed); err != nil {
		return nil, fmt.Errorf("updating customer %s: %w", existing.ID, err)
	}

	return existing, nil
}
