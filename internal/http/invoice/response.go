package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/invoice"
)

type invoiceResponse struct {
	ID                uuid.UUID             `json:"id"`
	InvoiceNumber     string                `json:"invoice_number"`
	ImageURL          string                `json:"image_url,omitempty"`
	ClientName        string                `json:"client_name,omitempty"`
	Address           string                `json:"address"`
	NormalizedAddress string                `json:"normalized_address"`
	ProductItems      []invoice.ProductItem `json:"product_items"`
	TotalAmount       int64                 `json:"total_amount"`
	Coordinates       *geo.Coordinates      `json:"coordinates,omitempty"`
	CustomerID        *uuid.UUID            `json:"customer_id,omitempty"`
	Status            invoice.Status        `json:"status"`
	CreatedAt         time.Time             `json:"created_at"`
}

func toResponse(inv *invoice.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		ImageURL:          inv.ImageURL,
		ClientName:        inv.ClientName,
		Address:           inv.Address,
		NormalizedAddress: inv.NormalizedAddress,
		ProductItems:      inv.ProductItems,
		TotalAmount:       inv.TotalAmount,
		Coordinates:       inv.Coordinates,
		CustomerID:        inv.CustomerID,
		Status:            inv.Status,
		CreatedAt:         inv.CreatedAt,
	}
}
