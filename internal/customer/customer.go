package customer

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/geo"
)

var ErrNotFound = errors.New("customer not found")

// Customer is the identity anchor for a physical delivery address.
// At most one Customer exists per normalized address.
type Customer struct {
	ID                   uuid.UUID
	Address              string
	NormalizedAddress    string
	CommercialName       string
	LegalName            string
	DeliveryInstructions string
	Coordinates          *geo.Coordinates
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// Observed carries the fields a document happens to mention about a
// customer. Delivery reports mainly supply the commercial name and
// delivery instructions; invoices mainly supply the legal name.
type Observed struct {
	Address              string
	CommercialName       string
	LegalName            string
	DeliveryInstructions string
}
