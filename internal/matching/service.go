// Package matching links invoices to the delivery stops they document.
package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mfiguera/rutero/internal/delivery"
	"github.com/mfiguera/rutero/internal/invoice"
)

// Outcome classifies a link attempt.
type Outcome string

const (
	// OutcomeLinked means the invoice claimed a pending delivery stop.
	OutcomeLinked Outcome = "linked"
	// OutcomeNoCandidate means no pending stop shares the invoice's
	// address; the invoice stays unlinked.
	OutcomeNoCandidate Outcome = "no_candidate"
	// OutcomeAmbiguousOrStale means candidates kept being claimed by
	// concurrent uploads until the retry budget ran out.
	OutcomeAmbiguousOrStale Outcome = "ambiguous_or_stale"
)

// LinkResult reports what happened to one invoice.
type LinkResult struct {
	Outcome        Outcome    `json:"outcome"`
	DeliveryItemID *uuid.UUID `json:"delivery_item_id,omitempty"`
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	// OldestPending returns the oldest delivery item still pending_link at
	// the address, or delivery.ErrNotFound.
	OldestPending(ctx context.Context, normalizedAddress string) (*delivery.Item, error)

	// ClaimPending transitions the item from pending_link to linked,
	// stamping the invoice id and denormalizing its product items, but
	// only if the item is still pending. It returns false when the
	// conditional update lost.
	ClaimPending(ctx context.Context, itemID, invoiceID uuid.UUID, products []invoice.ProductItem) (bool, error)

	// MarkInvoiceLinked flips the invoice's status to linked.
	MarkInvoiceLinked(ctx context.Context, invoiceID, itemID uuid.UUID) error
}

const maxClaimAttempts = 5

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Link attaches the invoice to the oldest delivery stop still pending at
// its address, regardless of which day's report created it: recurring
// customers with several outstanding deliveries resolve strictly in
// arrival order. A lost claim re-selects the next-oldest candidate rather
// than failing the upload. This is a best-effort heuristic; when several
// same-address deliveries are genuinely ambiguous it never blocks
// ingestion waiting for disambiguation.
func (s *Service) Link(ctx context.Context, inv *invoice.Invoice) (LinkResult, error) {
	if inv.NormalizedAddress == "" {
		return LinkResult{Outcome: OutcomeNoCandidate}, nil
	}

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		item, err := s.repo.OldestPending(ctx, inv.NormalizedAddress)
		if err != nil {
			if errors.Is(err, delivery.ErrNotFound) {
				return LinkResult{Outcome: OutcomeNoCandidate}, nil
			}

			return LinkResult{}, fmt.Errorf("selecting link candidate: %w", err)
		}

		claimed, err := s.repo.ClaimPending(ctx, item.ID, inv.ID, inv.ProductItems)
		if err != nil {
			return LinkResult{}, fmt.Errorf("claiming delivery item %s: %w", item.ID, err)
		}

		if !claimed {
			// A concurrent invoice took this one; try the next oldest.
			continue
		}

		if err := s.repo.MarkInvoiceLinked(ctx, inv.ID, item.ID); err != nil {
			return LinkResult{}, fmt.Errorf("marking invoice %s linked: %w", inv.ID, err)
		}

		inv.Status = invoice.StatusLinked

		return LinkResult{Outcome: OutcomeLinked, DeliveryItemID: &item.ID}, nil
	}

	return LinkResult{Outcome: OutcomeAmbiguousOrStale}, nil
}
