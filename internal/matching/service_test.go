package matching_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mfiguera/rutero/internal/delivery"
	"github.com/mfiguera/rutero/internal/invoice"
	"github.com/mfiguera/rutero/internal/matching"
)

const testKey = "mendoza 8195 rosario"

func testInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		ID:                uuid.New(),
		NormalizedAddress: testKey,
		Status:            invoice.StatusUnlinked,
		ProductItems: []invoice.ProductItem{
			{ProductCode: "1041", Quantity: 2, Description: "Galletitas de arroz", ItemTotal: 450000},
		},
	}
}

func TestService_Link(t *testing.T) {
	type testCase struct {
		name        string
		inv         *invoice.Invoice
		setupMock   func(inv *invoice.Invoice, m *matching.MockRepository)
		wantOutcome matching.Outcome
		wantErr     bool
	}

	tests := []testCase{
		{
			name: "LinksOldestPending",
			inv:  testInvoice(),
			setupMock: func(inv *invoice.Invoice, m *matching.MockRepository) {
				item := &delivery.Item{ID: uuid.New(), NormalizedAddress: testKey, Status: delivery.StatusPendingLink}
				m.EXPECT().
					OldestPending(gomock.Any(), testKey).
					Return(item, nil)
				m.EXPECT().
					ClaimPending(gomock.Any(), item.ID, inv.ID, inv.ProductItems).
					Return(true, nil)
				m.EXPECT().
					MarkInvoiceLinked(gomock.Any(), inv.ID, item.ID).
					Return(nil)
			},
			wantOutcome: matching.OutcomeLinked,
		},
		{
			name: "NoCandidateLeavesInvoiceUnlinked",
			inv:  testInvoice(),
			setupMock: func(inv *invoice.Invoice, m *matching.MockRepository) {
				m.EXPECT().
					OldestPending(gomock.Any(), testKey).
					Return(nil, delivery.ErrNotFound)
			},
			wantOutcome: matching.OutcomeNoCandidate,
		},
		{
			name: "LostClaimRetriesNextOldest",
			inv:  testInvoice(),
			setupMock: func(inv *invoice.Invoice, m *matching.MockRepository) {
				first := &delivery.Item{ID: uuid.New(), Status: delivery.StatusPendingLink}
				second := &delivery.Item{ID: uuid.New(), Status: delivery.StatusPendingLink}

				gomock.InOrder(
					m.EXPECT().OldestPending(gomock.Any(), testKey).Return(first, nil),
					m.EXPECT().ClaimPending(gomock.Any(), first.ID, inv.ID, gomock.Any()).Return(false, nil),
					m.EXPECT().OldestPending(gomock.Any(), testKey).Return(second, nil),
					m.EXPECT().ClaimPending(gomock.Any(), second.ID, inv.ID, gomock.Any()).Return(true, nil),
					m.EXPECT().MarkInvoiceLinked(gomock.Any(), inv.ID, second.ID).Return(nil),
				)
			},
			wantOutcome: matching.OutcomeLinked,
		},
		{
			name: "RetriesExhausted",
			inv:  testInvoice(),
			setupMock: func(inv *invoice.Invoice, m *matching.MockRepository) {
				item := &delivery.Item{ID: uuid.New(), Status: delivery.StatusPendingLink}
				m.EXPECT().
					OldestPending(gomock.Any(), testKey).
					Return(item, nil).
					Times(5)
				m.EXPECT().
					ClaimPending(gomock.Any(), item.ID, inv.ID, gomock.Any()).
					Return(false, nil).
					Times(5)
			},
			wantOutcome: matching.OutcomeAmbiguousOrStale,
		},
		{
			name: "EmptyAddressIsNoCandidate",
			inv:  &invoice.Invoice{ID: uuid.New()},
			setupMock: func(inv *invoice.Invoice, m *matching.MockRepository) {
			},
			wantOutcome: matching.OutcomeNoCandidate,
		},
		{
			name: "RepoError",
			inv:  testInvoice(),
			setupMock: func(inv *invoice.Invoice, m *matching.MockRepository) {
				m.EXPECT().
					OldestPending(gomock.Any(), testKey).
					Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := matching.NewMockRepository(ctrl)
			tt.setupMock(tt.inv, repo)

			svc := matching.NewService(repo)
			got, err := svc.Link(context.Background(), tt.inv)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, got.Outcome)

			if got.Outcome == matching.OutcomeLinked {
				assert.NotNil(t, got.DeliveryItemID)
				assert.Equal(t, invoice.StatusLinked, tt.inv.Status)
			} else {
				assert.Equal(t, invoice.StatusUnlinked, tt.inv.Status)
			}
		})
	}
}

// memoryRepo implements the conditional claim the way the SQL store does,
// so linking behavior under concurrency can be exercised in memory.
type memoryRepo struct {
	mu     sync.Mutex
	items  map[uuid.UUID]*delivery.Item
	linked map[uuid.UUID]uuid.UUID // invoice id -> item id
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:  map[uuid.UUID]*delivery.Item{},
		linked: map[uuid.UUID]uuid.UUID{},
	}
}

func (r *memoryRepo) addPending(key string, createdAt time.Time) *delivery.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := &delivery.Item{
		ID:                uuid.New(),
		NormalizedAddress: key,
		Status:            delivery.StatusPendingLink,
		CreatedAt:         createdAt,
	}
	r.items[item.ID] = item

	return item
}

func (r *memoryRepo) OldestPending(_ context.Context, key string) (*delivery.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []*delivery.Item

	for _, item := range r.items {
		if item.NormalizedAddress == key && item.Status == delivery.StatusPendingLink {
			candidates = append(candidates, item)
		}
	}

	if len(candidates) == 0 {
		return nil, delivery.ErrNotFound
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	clone := *candidates[0]

	return &clone, nil
}

func (r *memoryRepo) ClaimPending(_ context.Context, itemID, invoiceID uuid.UUID, products []invoice.ProductItem) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok || item.Status != delivery.StatusPendingLink {
		return false, nil
	}

	now := time.Now()
	item.Status = delivery.StatusLinked
	item.InvoiceID = &invoiceID
	item.ProductItems = products
	item.LinkedAt = &now

	return true, nil
}

func (r *memoryRepo) MarkInvoiceLinked(_ context.Context, invoiceID, itemID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.linked[invoiceID] = itemID

	return nil
}

func TestService_Link_OldestFirstAcrossBatches(t *testing.T) {
	repo := newMemoryRepo()
	svc := matching.NewService(repo)

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// The oldest pending stop may come from a much earlier report; linking
	// still picks it first.
	old := repo.addPending(testKey, base.AddDate(0, 0, -7))
	recent := repo.addPending(testKey, base)

	res, err := svc.Link(context.Background(), testInvoice())
	require.NoError(t, err)
	require.Equal(t, matching.OutcomeLinked, res.Outcome)
	assert.Equal(t, old.ID, *res.DeliveryItemID)

	res, err = svc.Link(context.Background(), testInvoice())
	require.NoError(t, err)
	require.Equal(t, matching.OutcomeLinked, res.Outcome)
	assert.Equal(t, recent.ID, *res.DeliveryItemID)
}

func TestService_Link_NInvoicesForNPendingItems(t *testing.T) {
	repo := newMemoryRepo()
	svc := matching.NewService(repo)

	const n = 8

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		repo.addPending(testKey, base.Add(time.Duration(i)*time.Minute))
	}

	var wg sync.WaitGroup

	results := make([]matching.LinkResult, n)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			res, err := svc.Link(context.Background(), testInvoice())
			if err != nil {
				t.Errorf("link %d: %v", i, err)
				return
			}

			results[i] = res
		}(i)
	}
	wg.Wait()

	claimed := map[uuid.UUID]struct{}{}

	for i, res := range results {
		require.Equal(t, matching.OutcomeLinked, res.Outcome, "invoice %d not linked", i)

		_, dup := claimed[*res.DeliveryItemID]
		assert.False(t, dup, "delivery item %s double-linked", res.DeliveryItemID)
		claimed[*res.DeliveryItemID] = struct{}{}
	}

	// Every pending item was claimed exactly once.
	assert.Len(t, claimed, n)

	for _, item := range repo.items {
		assert.Equal(t, delivery.StatusLinked, item.Status)
	}
}

func TestService_Link_EarlierInvoiceStaysUnlinked(t *testing.T) {
	repo := newMemoryRepo()
	svc := matching.NewService(repo)

	// Invoice arrives before any delivery report mentions the address.
	first := testInvoice()

	res, err := svc.Link(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeNoCandidate, res.Outcome)
	assert.Equal(t, invoice.StatusUnlinked, first.Status)

	// A report then creates a pending stop; the next invoice claims it.
	repo.addPending(testKey, time.Now())

	second := testInvoice()

	res, err = svc.Link(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeLinked, res.Outcome)

	// The first invoice predates the candidate and is not retroactively
	// linked.
	assert.Equal(t, invoice.StatusUnlinked, first.Status)
	_, ok := repo.linked[first.ID]
	assert.False(t, ok)
}
