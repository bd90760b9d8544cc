package route

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/invoice"
)

// Stop is one delivery stop as rendered on a route sheet. It carries the
// display fields the crew needs; the delivery item remains the owner of the
// mutable state.
type Stop struct {
	ItemID           uuid.UUID             `json:"item_id"`
	Address          string                `json:"address"`
	CommercialEntity string                `json:"commercial_entity"`
	PackageCount     int                   `json:"package_count"`
	ProductItems     []invoice.ProductItem `json:"product_items"`
	Coordinates      geo.Coordinates       `json:"coordinates"`
}

// DailyRoute is the optimization result for one calendar day, keyed by
// date. Re-running optimization for the same day replaces the whole record.
// JSON field names are part of the persisted compatibility surface.
type DailyRoute struct {
	Date                 string            `json:"date"` // YYYY-MM-DD
	OptimizedRoute       []Stop            `json:"optimized_route"`
	OptimizedLoadingList []Stop            `json:"optimized_loading_list"`
	StreetLevelPolyline  []geo.Coordinates `json:"street_level_polyline,omitempty"`
	TotalDistanceMeters  int               `json:"total_distance_meters"`
	CreatedAt            time.Time         `json:"created_at"`
}

// LoadingList derives the LIFO loading order from an optimized route: the
// last stop visited is loaded first so it sits at the back of the vehicle.
// The depot is not part of the input and so never appears in the output.
func LoadingList(orderedStops []Stop) []Stop {
	if len(orderedStops) == 0 {
		return []Stop{}
	}

	out := make([]Stop, len(orderedStops))
	for i, s := range orderedStops {
		out[len(orderedStops)-1-i] = s
	}

	return out
}
