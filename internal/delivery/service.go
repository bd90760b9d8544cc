package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfiguera/rutero/internal/address"
	"github.com/mfiguera/rutero/internal/customer"
	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/invoice"
	"github.com/mfiguera/rutero/internal/route"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=delivery
type Repository interface {
	// CreateItem persists the item and stamps CreatedAt.
	CreateItem(ctx context.Context, item *Item) error

	// LinkedProducts returns, per normalized address, the product items of
	// the most recently linked stop at that address. Addresses with no
	// linked stop are absent from the map.
	LinkedProducts(ctx context.Context, normalizedAddresses []string) (map[string][]invoice.ProductItem, error)
}

// CustomerResolver finds or creates the customer behind a stop's address.
type CustomerResolver interface {
	ResolveOrCreate(ctx context.Context, key string, obs customer.Observed) (*customer.Customer, error)
}

// Geocoder resolves the depot address through the shared geocoding cache.
type Geocoder interface {
	Resolve(ctx context.Context, raw, key string) (geo.Coordinates, bool, error)
}

// RouteSaver persists the day's optimization result.
type RouteSaver interface {
	SaveDailyRoute(ctx context.Context, dr *route.DailyRoute) error
}

// StreetRouter turns an ordered coordinate sequence into a street-level
// path. It never changes the visiting order.
type StreetRouter interface {
	Route(ctx context.Context, ordered []geo.Coordinates) ([]geo.Coordinates, int, error)
}

// ReportStop is one raw stop as extracted from a delivery report.
type ReportStop struct {
	DeliveryAddress      string `json:"delivery_address"`
	CommercialEntity     string `json:"commercial_entity"`
	PackageCount         int    `json:"package_count"`
	DeliveryInstructions string `json:"delivery_instructions"`
}

// ReportResult is what processing one report produced: every persisted
// item, the addresses left out of optimization, and the day's route.
type ReportResult struct {
	Items      []*Item           `json:"delivery_items"`
	Ungeocoded []string          `json:"ungeocoded_addresses"`
	Route      *route.DailyRoute `json:"route,omitempty"`
}

type Service struct {
	repo       Repository
	customers  CustomerResolver
	geocoder   Geocoder
	routes     RouteSaver
	streets    StreetRouter
	optimizer  *route.Optimizer
	normalizer *address.Normalizer
	depot      string
}

// NewService builds the report-processing pipeline. streets may be nil when
// no street-routing collaborator is configured; a nil normalizer selects
// the default. depot is the raw depot address, geocoded per report through
// the shared cache.
func NewService(
	repo Repository,
	customers CustomerResolver,
	geocoder Geocoder,
	routes RouteSaver,
	streets StreetRouter,
	optimizer *route.Optimizer,
	normalizer *address.Normalizer,
	depot string,
) *Service {
	if normalizer == nil {
		normalizer = address.NewNormalizer(nil)
	}

	return &Service{
		repo:       repo,
		customers:  customers,
		geocoder:   geocoder,
		routes:     routes,
		streets:    streets,
		optimizer:  optimizer,
		normalizer: normalizer,
		depot:      depot,
	}
}

// ProcessReport ingests one day's delivery report: every stop is persisted
// as a delivery item, stops without coordinates end up review_required and
// are reported separately, and the remaining stops are optimized into the
// day's route. Re-processing a date replaces that date's route record. A
// stop that fails to resolve does not abort the batch.
func (s *Service) ProcessReport(ctx context.Context, date string, stops []ReportStop) (*ReportResult, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("parsing report date %q: %w", date, err)
	}

	result := &ReportResult{
		Items:      make([]*Item, 0, len(stops)),
		Ungeocoded: []string{},
	}

	routeStops := make([]route.Stop, 0, len(stops))
	stopKeys := make([]string, 0, len(stops))

	for _, stop := range stops {
		item, err := s.processStop(ctx, stop)
		if err != nil {
			slog.Error("failed to process delivery stop",
				"address", stop.DeliveryAddress, "error", err)
			continue
		}

		result.Items = append(result.Items, item)

		if item.Status == StatusReviewRequired {
			result.Ungeocoded = append(result.Ungeocoded, item.DeliveryAddress)
			continue
		}

		routeStops = append(routeStops, route.Stop{
			ItemID:           item.ID,
			Address:          item.DeliveryAddress,
			CommercialEntity: item.CommercialEntity,
			PackageCount:     item.PackageCount,
			Coordinates:      *item.Coordinates,
		})
		stopKeys = append(stopKeys, item.NormalizedAddress)
	}

	s.enrichProducts(ctx, routeStops, stopKeys)

	dr, err := s.buildRoute(ctx, date, routeStops)
	if err != nil {
		return nil, err
	}

	if err := s.routes.SaveDailyRoute(ctx, dr); err != nil {
		return nil, fmt.Errorf("saving daily route for %s: %w", date, err)
	}

	result.Route = dr

	return result, nil
}

func (s *Service) processStop(ctx context.Context, stop ReportStop) (*Item, error) {
	item := &Item{
		DeliveryAddress:      stop.DeliveryAddress,
		NormalizedAddress:    s.normalizer.Normalize(stop.DeliveryAddress),
		CommercialEntity:     stop.CommercialEntity,
		PackageCount:         stop.PackageCount,
		DeliveryInstructions: stop.DeliveryInstructions,
		Status:               StatusPendingLink,
	}

	if item.NormalizedAddress == "" {
		item.Status = StatusReviewRequired
	} else {
		c, err := s.customers.ResolveOrCreate(ctx, item.NormalizedAddress, customer.Observed{
			Address:              stop.DeliveryAddress,
			CommercialName:       stop.CommercialEntity,
			DeliveryInstructions: stop.DeliveryInstructions,
		})
		if err != nil {
			return nil, fmt.Errorf("resolving customer: %w", err)
		}

		item.CustomerID = &c.ID
		item.Coordinates = c.Coordinates

		if item.Coordinates == nil {
			item.Status = StatusReviewRequired
		}
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("creating delivery item: %w", err)
	}

	return item, nil
}

// enrichProducts copies the product items of already-linked stops onto the
// route stops sharing their address, so the loading list shows the crew
// what goes on the vehicle. Re-running a date after invoices linked picks
// them up. Enrichment is display data only; a failure costs the product
// detail, not the route.
func (s *Service) enrichProducts(ctx context.Context, stops []route.Stop, keys []string) {
	if len(stops) == 0 {
		return
	}

	products, err := s.repo.LinkedProducts(ctx, keys)
	if err != nil {
		slog.Warn("failed to load linked products for route", "error", err)
		return
	}

	for i := range stops {
		stops[i].ProductItems = products[keys[i]]
	}
}

func (s *Service) buildRoute(ctx context.Context, date string, stops []route.Stop) (*route.DailyRoute, error) {
	depotKey := s.normalizer.Normalize(s.depot)

	depot, ok, err := s.geocoder.Resolve(ctx, s.depot, depotKey)
	if err != nil {
		return nil, fmt.Errorf("geocoding depot: %w", err)
	}

	if !ok {
		return nil, fmt.Errorf("geocoding depot: address %q not found", s.depot)
	}

	ordered, total, err := s.optimizer.Optimize(ctx, depot, stops)
	if err != nil {
		return nil, fmt.Errorf("optimizing route for %s: %w", date, err)
	}

	dr := &route.DailyRoute{
		Date:                 date,
		OptimizedRoute:       ordered,
		OptimizedLoadingList: route.LoadingList(ordered),
		TotalDistanceMeters:  total,
	}

	if s.streets != nil && len(ordered) > 0 {
		path, meters, err := s.streets.Route(ctx, closedTour(depot, ordered))
		if err != nil {
			// Straight-line order is still the valid output.
			slog.Warn("street-level routing unavailable", "date", date, "error", err)
		} else {
			dr.StreetLevelPolyline = path
			dr.TotalDistanceMeters = meters
		}
	}

	return dr, nil
}

// closedTour prefixes and suffixes the depot so the street router traces
// the full depot-to-depot loop.
func closedTour(depot geo.Coordinates, ordered []route.Stop) []geo.Coordinates {
	points := make([]geo.Coordinates, 0, len(ordered)+2)
	points = append(points, depot)

	for _, s := range ordered {
		points = append(points, s.Coordinates)
	}

	return append(points, depot)
}
