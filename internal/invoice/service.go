package invoice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/address"
	"github.com/mfiguera/rutero/internal/customer"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
}

// Uploader stores an invoice image and returns a viewable URL. It is only
// used to attach a reference; matching never consults it.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

type Service struct {
	repo       Repository
	customers  *customer.Service
	uploader   Uploader
	normalizer *address.Normalizer
}

func NewService(repo Repository, customers *customer.Service, uploader Uploader, normalizer *address.Normalizer) *Service {
	if normalizer == nil {
		normalizer = address.NewNormalizer(nil)
	}

	return &Service{repo: repo, customers: customers, uploader: uploader, normalizer: normalizer}
}

// ProcessParams is one parsed invoice handed in by the extraction pipeline.
type ProcessParams struct {
	InvoiceNumber string
	ClientName    string
	Address       string
	TotalAmount   int64 // cents
	ProductItems  []ProductItem

	// Optional source image to attach.
	ImageName        string
	ImageContentType string
	Image            []byte
}

// Process stores a parsed invoice: attaches the uploaded image, converges
// the customer identity for its address and persists the record as
// unlinked. Reconciliation against delivery stops is the matcher's job and
// runs after this.
func (s *Service) Process(ctx context.Context, params ProcessParams) (*Invoice, error) {
	inv := &Invoice{
		InvoiceNumber:     params.InvoiceNumber,
		ClientName:        params.ClientName,
		Address:           params.Address,
		NormalizedAddress: s.normalizer.Normalize(params.Address),
		ProductItems:      params.ProductItems,
		TotalAmount:       params.TotalAmount,
		Status:            StatusUnlinked,
	}

	if len(params.Image) > 0 && s.uploader != nil {
		url, err := s.uploader.Upload(ctx, params.ImageName, params.ImageContentType, params.Image)
		if err != nil {
			// The image is a convenience reference; losing it must not
			// block ingestion of the invoice data.
			slog.Warn("failed to upload invoice image", "invoice_number", params.InvoiceNumber, "error", err)
		} else {
			inv.ImageURL = url
		}
	}

	if inv.NormalizedAddress != "" {
		c, err := s.customers.ResolveOrCreate(ctx, inv.NormalizedAddress, customer.Observed{
			Address:   params.Address,
			LegalName: params.ClientName,
		})
		if err != nil {
			return nil, fmt.Errorf("resolving customer for invoice: %w", err)
		}

		inv.CustomerID = &c.ID
		inv.Coordinates = c.Coordinates
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invoice: %w", err)
	}

	return inv, nil
}

// Get returns a stored invoice by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}
