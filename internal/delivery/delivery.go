package delivery

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/invoice"
)

var ErrNotFound = errors.New("delivery item not found")

// Status is the linking state of a delivery stop. Values are part of the
// persisted compatibility surface and must not change.
type Status string

const (
	// StatusPendingLink marks a stop waiting for its invoice.
	StatusPendingLink Status = "pending_link"
	// StatusLinked marks a stop claimed by an invoice. Terminal.
	StatusLinked Status = "linked"
	// StatusReviewRequired marks a stop that could not be resolved
	// automatically (unusable address or no geocode).
	StatusReviewRequired Status = "review_required"
)

// Item is one stop extracted from a delivery report. It references its
// customer but is a standalone persisted record.
type Item struct {
	ID                   uuid.UUID
	DeliveryAddress      string
	NormalizedAddress    string
	CommercialEntity     string
	PackageCount         int
	DeliveryInstructions string
	CustomerID           *uuid.UUID
	Status               Status
	InvoiceID            *uuid.UUID
	ProductItems         []invoice.ProductItem
	Coordinates          *geo.Coordinates
	CreatedAt            time.Time
	LinkedAt             *time.Time
}
