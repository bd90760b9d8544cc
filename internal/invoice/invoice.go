package invoice

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/geo"
)

var ErrNotFound = errors.New("invoice not found")

// Status is the linking state of an invoice. Values are part of the
// persisted compatibility surface and must not change.
type Status string

const (
	StatusUnlinked Status = "unlinked"
	StatusLinked   Status = "linked"
)

// ProductItem is one line of an invoice's product table.
type ProductItem struct {
	ProductCode string `json:"product_code"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
	ItemTotal   int64  `json:"item_total"` // cents
}

// Invoice is one parsed invoice document. Immutable after creation except
// for Status, which flips to linked when the reconciliation matcher claims
// a delivery stop for it.
type Invoice struct {
	ID                uuid.UUID
	InvoiceNumber     string
	ImageURL          string
	ClientName        string
	Address           string
	NormalizedAddress string
	ProductItems      []ProductItem
	TotalAmount       int64 // cents
	Coordinates       *geo.Coordinates
	CustomerID        *uuid.UUID
	Status            Status
	CreatedAt         time.Time
}
