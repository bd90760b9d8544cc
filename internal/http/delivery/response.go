package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/delivery"
	"github.com/mfiguera/rutero/internal/geo"
	"github.com/mfiguera/rutero/internal/invoice"
	"github.com/mfiguera/rutero/internal/route"
)

type itemResponse struct {
	ID                   uuid.UUID             `json:"id"`
	DeliveryAddress      string                `json:"delivery_address"`
	NormalizedAddress    string                `json:"normalized_address"`
	CommercialEntity     string                `json:"commercial_entity,omitempty"`
	PackageCount         int                   `json:"package_count"`
	DeliveryInstructions string                `json:"delivery_instructions,omitempty"`
	CustomerID           *uuid.UUID            `json:"customer_id,omitempty"`
	Status               delivery.Status       `json:"status"`
	InvoiceID            *uuid.UUID            `json:"invoice_id,omitempty"`
	ProductItems         []invoice.ProductItem `json:"product_items,omitempty"`
	Coordinates          *geo.Coordinates      `json:"coordinates,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	LinkedAt             *time.Time            `json:"linked_at,omitempty"`
}

type reportResponse struct {
	Items      []itemResponse    `json:"delivery_items"`
	Ungeocoded []string          `json:"ungeocoded_addresses"`
	Route      *route.DailyRoute `json:"route,omitempty"`
}

func toItemResponse(item *delivery.Item) itemResponse {
	return itemResponse{
		ID:                   item.ID,
		DeliveryAddress:      item.DeliveryAddress,
		NormalizedAddress:    item.NormalizedAddress,
		CommercialEntity:     item.CommercialEntity,
		PackageCount:         item.PackageCount,
		DeliveryInstructions: item.DeliveryInstructions,
		CustomerID:           item.CustomerID,
		Status:               item.Status,
		InvoiceID:            item.InvoiceID,
		ProductItems:         item.ProductItems,
		Coordinates:          item.Coordinates,
		CreatedAt:            item.CreatedAt,
		LinkedAt:             item.LinkedAt,
	}
}

func toReportResponse(result *delivery.ReportResult) reportResponse {
	resp := reportResponse{
		Items:      make([]itemResponse, len(result.Items)),
		Ungeocoded: result.Ungeocoded,
		Route:      result.Route,
	}

	for i, item := range result.Items {
		resp.Items[i] = toItemResponse(item)
	}

	return resp
}
