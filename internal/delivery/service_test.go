package delivery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfiguera/rutero/internal/customer"
	"github.com/mfiguera/rutero/internal/delivery"
	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/geocode"
	"github.com/mfiguera/rutero/internal/invoice"
	"github.com/mfiguera/rutero/internal/route"
)

const depotAddress = "Corrientes 1000, Rosario"

type fakeRepo struct {
	items  []*delivery.Item
	linked map[string][]invoice.ProductItem
}

func (r *fakeRepo) CreateItem(_ context.Context, item *delivery.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	r.items = append(r.items, item)

	return nil
}

func (r *fakeRepo) LinkedProducts(_ context.Context, keys []string) (map[string][]invoice.ProductItem, error) {
	out := map[string][]invoice.ProductItem{}

	for _, key := range keys {
		if p, ok := r.linked[key]; ok {
			out[key] = p
		}
	}

	return out, nil
}

// fakeResolver hands out customers keyed by normalized address; addresses
// in the ungeocodable set resolve without coordinates.
type fakeResolver struct {
	ungeocodable map[string]bool
	resolved     map[string]*customer.Customer
}

func newFakeResolver(ungeocodable ...string) *fakeResolver {
	set := map[string]bool{}
	for _, key := range ungeocodable {
		set[key] = true
	}

	return &fakeResolver{ungeocodable: set, resolved: map[string]*customer.Customer{}}
}

func (f *fakeResolver) ResolveOrCreate(_ context.Context, key string, obs customer.Observed) (*customer.Customer, error) {
	if c, ok := f.resolved[key]; ok {
		return c, nil
	}

	c := &customer.Customer{
		ID:                uuid.New(),
		Address:           obs.Address,
		NormalizedAddress: key,
		CommercialName:    obs.CommercialName,
	}

	if !f.ungeocodable[key] {
		// Spread customers out so every stop gets distinct coordinates.
		c.Coordinates = &geo.Coordinates{Lat: -32.9 - 0.01*float64(len(f.resolved)), Lon: -60.66}
	}

	f.resolved[key] = c

	return c, nil
}

type fakeGeocoder struct {
	coords geo.Coordinates
	found  bool
	err    error
}

func (f *fakeGeocoder) Resolve(context.Context, string, string) (geo.Coordinates, bool, error) {
	return f.coords, f.found, f.err
}

type fakeRouteSaver struct {
	saved *route.DailyRoute
}

func (f *fakeRouteSaver) SaveDailyRoute(_ context.Context, dr *route.DailyRoute) error {
	f.saved = dr
	return nil
}

type fakeStreetRouter struct {
	path   []geo.Coordinates
	meters int
	err    error

	gotPoints []geo.Coordinates
}

func (f *fakeStreetRouter) Route(_ context.Context, ordered []geo.Coordinates) ([]geo.Coordinates, int, error) {
	f.gotPoints = ordered

	return f.path, f.meters, f.err
}

func newService(repo *fakeRepo, resolver *fakeResolver, geocoder *fakeGeocoder, saver *fakeRouteSaver, streets delivery.StreetRouter) *delivery.Service {
	return delivery.NewService(repo, resolver, geocoder, saver, streets,
		route.NewOptimizer(nil, 0), nil, depotAddress)
}

func TestService_ProcessReport_UngeocodedStopsReviewRequired(t *testing.T) {
	repo := &fakeRepo{}
	resolver := newFakeResolver("urquiza 455 rosario")
	geocoder := &fakeGeocoder{coords: geo.Coordinates{Lat: -32.94, Lon: -60.65}, found: true}
	saver := &fakeRouteSaver{}

	svc := newService(repo, resolver, geocoder, saver, nil)

	result, err := svc.ProcessReport(context.Background(), "2026-08-29", []delivery.ReportStop{
		{DeliveryAddress: "Urquiza 455, Rosario", CommercialEntity: "Kiosco X", PackageCount: 2},
		{DeliveryAddress: "Mitre 782, Rosario", CommercialEntity: "Almacén Y", PackageCount: 1},
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, delivery.StatusReviewRequired, result.Items[0].Status)
	assert.Equal(t, delivery.StatusPendingLink, result.Items[1].Status)

	// X is reported separately, not silently dropped.
	assert.Equal(t, []string{"Urquiza 455, Rosario"}, result.Ungeocoded)

	// Only Y is optimized.
	require.NotNil(t, result.Route)
	require.Len(t, result.Route.OptimizedRoute, 1)
	assert.Equal(t, result.Items[1].ID, result.Route.OptimizedRoute[0].ItemID)
	assert.Equal(t, "2026-08-29", result.Route.Date)
	assert.Positive(t, result.Route.TotalDistanceMeters)

	// Both items were persisted regardless of status.
	assert.Len(t, repo.items, 2)
	assert.Same(t, result.Route, saver.saved)
}

func TestService_ProcessReport_LoadingListReversesRoute(t *testing.T) {
	repo := &fakeRepo{}
	resolver := newFakeResolver()
	geocoder := &fakeGeocoder{coords: geo.Coordinates{Lat: -32.94, Lon: -60.65}, found: true}
	saver := &fakeRouteSaver{}

	svc := newService(repo, resolver, geocoder, saver, nil)

	result, err := svc.ProcessReport(context.Background(), "2026-08-29", []delivery.ReportStop{
		{DeliveryAddress: "Urquiza 455, Rosario", PackageCount: 3},
		{DeliveryAddress: "Mitre 782, Rosario", PackageCount: 1},
		{DeliveryAddress: "Alvear 120, Rosario", PackageCount: 2},
	})
	require.NoError(t, err)

	rt := result.Route
	require.Len(t, rt.OptimizedRoute, 3)
	require.Len(t, rt.OptimizedLoadingList, 3)

	for i := range rt.OptimizedRoute {
		assert.Equal(t,
			rt.OptimizedRoute[i].ItemID,
			rt.OptimizedLoadingList[len(rt.OptimizedLoadingList)-1-i].ItemID)
	}
}

func TestService_ProcessReport_EmptyReport(t *testing.T) {
	repo := &fakeRepo{}
	saver := &fakeRouteSaver{}
	geocoder := &fakeGeocoder{coords: geo.Coordinates{Lat: -32.94, Lon: -60.65}, found: true}

	svc := newService(repo, newFakeResolver(), geocoder, saver, nil)

	result, err := svc.ProcessReport(context.Background(), "2026-08-29", nil)
	require.NoError(t, err)

	assert.Empty(t, result.Items)
	assert.Empty(t, result.Ungeocoded)
	require.NotNil(t, result.Route)
	assert.Empty(t, result.Route.OptimizedRoute)
	assert.Empty(t, result.Route.OptimizedLoadingList)
	assert.Zero(t, result.Route.TotalDistanceMeters)
}

func TestService_ProcessReport_StreetRoutingDegradesGracefully(t *testing.T) {
	repo := &fakeRepo{}
	geocoder := &fakeGeocoder{coords: geo.Coordinates{Lat: -32.94, Lon: -60.65}, found: true}
	saver := &fakeRouteSaver{}
	streets := &fakeStreetRouter{err: errors.New("osrm unreachable")}

	svc := newService(repo, newFakeResolver(), geocoder, saver, streets)

	result, err := svc.ProcessReport(context.Background(), "2026-08-29", []delivery.ReportStop{
		{DeliveryAddress: "Urquiza 455, Rosario", PackageCount: 1},
		{DeliveryAddress: "Mitre 782, Rosario", PackageCount: 1},
	})
	require.NoError(t, err)

	// The straight-line order stands; only the polyline is missing.
	require.NotNil(t, result.Route)
	assert.Len(t, result.Route.OptimizedRoute, 2)
	assert.Empty(t, result.Route.StreetLevelPolyline)
	assert.Positive(t, result.Route.TotalDistanceMeters)
}

func TestService_ProcessReport_StreetRoutingEnrichesRoute(t *testing.T) {
	repo := &fakeRepo{}
	geocoder := &fakeGeocoder{coords: geo.Coordinates{Lat: -32.94, Lon: -60.65}, found: true}
	saver := &fakeRouteSaver{}
	streets := &fakeStreetRouter{
		path:   []geo.Coordinates{{Lat: -32.94, Lon: -60.65}, {Lat: -32.91, Lon: -60.66}},
		meters: 4321,
	}

	svc := newService(repo, newFakeResolver(), geocoder, saver, streets)

	result, err := svc.ProcessReport(context.Background(), "2026-08-29", []delivery.ReportStop{
		{DeliveryAddress: "Urquiza 455, Rosario", PackageCount: 1},
		{DeliveryAddress: "Mitre 782, Rosario", PackageCount: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, streets.path, result.Route.StreetLevelPolyline)
	assert.Equal(t, 4321, result.Route.TotalDistanceMeters)

	// The street router sees the closed depot-to-depot loop.
	require.Len(t, streets.gotPoints, 4)
	assert.Equal(t, geocoder.coords, streets.gotPoints[0])
	assert.Equal(t, geocoder.coords, streets.gotPoints[len(streets.gotPoints)-1])
}

func TestService_ProcessReport_DepotNotGeocodable(t *testing.T) {
	repo := &fakeRepo{}
	saver := &fakeRouteSaver{}

	svc := newService(repo, newFakeResolver(), &fakeGeocoder{}, saver, nil)

	_, err := svc.ProcessReport(context.Background(), "2026-08-29", []delivery.ReportStop{
		{DeliveryAddress: "Urquiza 455, Rosario", PackageCount: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depot")

	// Items were still persisted before the route failed.
	assert.Len(t, repo.items, 1)
}

func TestService_ProcessReport_RejectsBadDate(t *testing.T) {
	svc := newService(&fakeRepo{}, newFakeResolver(), &fakeGeocoder{found: true}, &fakeRouteSaver{}, nil)

	_, err := svc.ProcessReport(context.Background(), "29/08/2026", nil)
	assert.Error(t, err)
}

func TestService_ProcessReport_LoadingListCarriesLinkedProducts(t *testing.T) {
	products := []invoice.ProductItem{
		{ProductCode: "1041", Quantity: 2, Description: "Galletitas de arroz", ItemTotal: 450000},
		{ProductCode: "2300", Quantity: 5, Description: "Yerba 1kg", ItemTotal: 1250000},
	}

	// A previous run of this address already linked an invoice.
	repo := &fakeRepo{linked: map[string][]invoice.ProductItem{
		"urquiza 455 rosario": products,
	}}
	geocoder := &fakeGeocoder{coords: geo.Coordinates{Lat: -32.94, Lon: -60.65}, found: true}
	saver := &fakeRouteSaver{}

	svc := newService(repo, newFakeResolver(), geocoder, saver, nil)

	result, err := svc.ProcessReport(context.Background(), "2026-08-29", []delivery.ReportStop{
		{DeliveryAddress: "Urquiza 455, Rosario", PackageCount: 2},
		{DeliveryAddress: "Mitre 782, Rosario", PackageCount: 1},
	})
	require.NoError(t, err)

	byAddress := map[string][]invoice.ProductItem{}
	for _, s := range result.Route.OptimizedLoadingList {
		byAddress[s.Address] = s.ProductItems
	}

	// The linked stop's products ride along on the loading list; a stop
	// with nothing linked yet stays empty.
	assert.Equal(t, products, byAddress["Urquiza 455, Rosario"])
	assert.Empty(t, byAddress["Mitre 782, Rosario"])

	for _, s := range result.Route.OptimizedRoute {
		if s.Address == "Urquiza 455, Rosario" {
			assert.Equal(t, products, s.ProductItems)
		}
	}
}

// memCustomerRepo is a map-backed customer repository so the outage test
// can run the real resolver and geocoding services end to end.
type memCustomerRepo struct {
	byKey map[string]*customer.Customer
}

func (r *memCustomerRepo) GetByNormalizedAddress(_ context.Context, key string) (*customer.Customer, error) {
	c, ok := r.byKey[key]
	if !ok {
		return nil, customer.ErrNotFound
	}

	clone := *c

	return &clone, nil
}

func (r *memCustomerRepo) CreateIfAbsent(_ context.Context, c *customer.Customer) (*customer.Customer, bool, error) {
	if existing, ok := r.byKey[c.NormalizedAddress]; ok {
		clone := *existing
		return &clone, false, nil
	}

	c.ID = uuid.New()
	r.byKey[c.NormalizedAddress] = c

	return c, true, nil
}

func (r *memCustomerRepo) UpdateObserved(_ context.Context, _ uuid.UUID, _ customer.Observed) error {
	return nil
}

type memGeocodeCache struct {
	entries map[string]geo.Coordinates
}

func (c *memGeocodeCache) Get(_ context.Context, key string) (geo.Coordinates, bool, error) {
	coords, ok := c.entries[key]
	return coords, ok, nil
}

func (c *memGeocodeCache) Put(_ context.Context, key string, coords geo.Coordinates) error {
	c.entries[key] = coords
	return nil
}

type downProvider struct{}

func (downProvider) Geocode(context.Context, string) (geo.Coordinates, bool, error) {
	return geo.Coordinates{}, false, errors.New("connection refused")
}

func TestService_ProcessReport_ProviderOutageKeepsStops(t *testing.T) {
	repo := &fakeRepo{}
	saver := &fakeRouteSaver{}

	geocodeSvc := geocode.NewService(&memGeocodeCache{entries: map[string]geo.Coordinates{}}, downProvider{})
	customers := customer.NewService(&memCustomerRepo{byKey: map[string]*customer.Customer{}}, geocodeSvc)

	depot := &fakeGeocoder{coords: geo.Coordinates{Lat: -32.94, Lon: -60.65}, found: true}

	svc := delivery.NewService(repo, customers, depot, saver, nil,
		route.NewOptimizer(nil, 0), nil, depotAddress)

	result, err := svc.ProcessReport(context.Background(), "2026-08-29", []delivery.ReportStop{
		{DeliveryAddress: "Urquiza 455, Rosario", PackageCount: 2},
		{DeliveryAddress: "Mitre 782, Rosario", PackageCount: 1},
	})
	require.NoError(t, err)

	// Every stop is persisted and accounted for even with the geocoding
	// provider down; nothing is silently dropped.
	require.Len(t, repo.items, 2)
	require.Len(t, result.Items, 2)

	for _, item := range result.Items {
		assert.Equal(t, delivery.StatusReviewRequired, item.Status)
	}

	assert.ElementsMatch(t,
		[]string{"Urquiza 455, Rosario", "Mitre 782, Rosario"},
		result.Ungeocoded)

	require.NotNil(t, result.Route)
	assert.Empty(t, result.Route.OptimizedRoute)
}
