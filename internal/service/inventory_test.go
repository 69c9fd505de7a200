package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merch-inventory-dashboard/internal/cache"
	"merch-inventory-dashboard/internal/metrics"
	"merch-inventory-dashboard/internal/model"
	"merch-inventory-dashboard/internal/repository"
	"merch-inventory-dashboard/pkg/apierror"
)

// mockStore keeps items and sales in memory and implements both
// repositories.
type mockStore struct {
	mu      sync.Mutex
	items   map[string]model.InventoryItem
	sales   []model.SalesLogEntry
	listErr error
	sellErr error
}

func newMockStore(items ...model.InventoryItem) *mockStore {
	m := &mockStore{items: make(map[string]model.InventoryItem)}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

func (m *mockStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	items := make([]model.InventoryItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *mockStore) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *mockStore) Add(ctx context.Context, item model.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[item.ID]; ok {
		return repository.ErrDuplicateItem
	}
	m.items[item.ID] = item
	return nil
}

func (m *mockStore) Update(ctx context.Context, item model.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[item.ID]; !ok {
		return repository.ErrItemNotFound
	}
	m.items[item.ID] = item
	return nil
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return repository.ErrItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockStore) Sell(ctx context.Context, id string, quantity int, soldAt time.Time) (*model.SaleReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sellErr != nil {
		return nil, m.sellErr
	}
	item, ok := m.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	if item.Quantity < quantity {
		return nil, repository.ErrInsufficientStock
	}
	item.Quantity -= quantity
	m.items[id] = item
	m.sales = append(m.sales, model.SalesLogEntry{
		ID:           int64(len(m.sales) + 1),
		ItemID:       id,
		Name:         item.Name,
		QuantitySold: quantity,
		Timestamp:    soldAt,
	})
	return &model.SaleReceipt{
		ItemID:       id,
		Name:         item.Name,
		QuantitySold: quantity,
		Remaining:    item.Quantity,
		SoldAt:       soldAt,
	}, nil
}

func (m *mockStore) salesCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}

// salesView adapts mockStore to SalesLogRepository.
type salesView struct{ m *mockStore }

func (v salesView) List(ctx context.Context) ([]model.SalesLogEntry, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	if v.m.listErr != nil {
		return nil, v.m.listErr
	}
	entries := make([]model.SalesLogEntry, len(v.m.sales))
	for i := range v.m.sales {
		entries[len(entries)-1-i] = v.m.sales[i]
	}
	return entries, nil
}

// failingCache fails every call.
type failingCache struct{ cache.Cache }

func (failingCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

// lossyCache drops receipt writes and remembers the claim TTL.
type lossyCache struct {
	*cache.MemoryCache
	claimTTL time.Duration
}

func (c *lossyCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.claimTTL = ttl
	return c.MemoryCache.SetNX(ctx, key, value, ttl)
}

func (c *lossyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("READONLY replica")
}

func newTestService(t *testing.T, store *mockStore) (*InventoryService, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	svc := NewInventoryService(store, salesView{store}, Options{
		Cache:   cache.NewMemoryCache(),
		Metrics: m,
	})
	require.NotNil(t, svc)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, m
}

func bat() model.InventoryItem {
	return model.InventoryItem{ID: "B1", Name: "Bat", Price: decimal.RequireFromString("29.99"), Quantity: 10}
}

func TestNewInventoryService_RequiresRepositories(t *testing.T) {
	assert.Nil(t, NewInventoryService(nil, nil, Options{}))
}

func TestAdd_NormalizesAndStores(t *testing.T) {
	store := newMockStore()
	svc, m := newTestService(t, store)

	item, err := svc.Add(context.Background(), model.InventoryItem{
		ID:       "  B1 ",
		Name:     " Bat ",
		Price:    decimal.RequireFromString("29.994"),
		Quantity: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "B1", item.ID)
	assert.Equal(t, "Bat", item.Name)
	assert.Equal(t, "29.99", item.Price.StringFixed(2))
	assert.Contains(t, store.items, "B1")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues(OpAdd, "ok")))
}

func TestAdd_Validation(t *testing.T) {
	svc, m := newTestService(t, newMockStore())

	_, err := svc.Add(context.Background(), model.InventoryItem{
		ID:       "",
		Price:    decimal.NewFromInt(-1),
		Quantity: -2,
	})

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Len(t, apiErr.Details, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues(OpAdd, "invalid")))
}

func TestAdd_Duplicate(t *testing.T) {
	store := newMockStore(bat())
	svc, m := newTestService(t, store)

	_, err := svc.Add(context.Background(), model.InventoryItem{ID: "B1", Name: "Other", Price: decimal.NewFromInt(1), Quantity: 1})

	assert.ErrorIs(t, err, repository.ErrDuplicateItem)
	assert.Equal(t, "Bat", store.items["B1"].Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues(OpAdd, "duplicate")))
}

func TestUpdateAndDelete_NotFound(t *testing.T) {
	svc, m := newTestService(t, newMockStore())

	_, err := svc.Update(context.Background(), bat())
	assert.ErrorIs(t, err, repository.ErrItemNotFound)

	err = svc.Delete(context.Background(), "B1")
	assert.ErrorIs(t, err, repository.ErrItemNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues(OpUpdate, "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues(OpDelete, "not_found")))
}

func TestItem_NotFound(t *testing.T) {
	svc, _ := newTestService(t, newMockStore())

	_, err := svc.Item(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrItemNotFound)
}

func TestSell_Success(t *testing.T) {
	store := newMockStore(bat())
	svc, m := newTestService(t, store)

	receipt, err := svc.Sell(context.Background(), "B1", 3)
	require.NoError(t, err)

	assert.Equal(t, "Bat", receipt.Name)
	assert.Equal(t, 7, receipt.Remaining)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), receipt.SoldAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sales))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UnitsSold))
}

func TestSell_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		quantity int
		wantErr  error
		reason   string
	}{
		{name: "insufficient", id: "B1", quantity: 20, wantErr: repository.ErrInsufficientStock, reason: metrics.ReasonInsufficient},
		{name: "missing", id: "X9", quantity: 1, wantErr: repository.ErrItemNotFound, reason: metrics.ReasonNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore(bat())
			svc, m := newTestService(t, store)

			_, err := svc.Sell(context.Background(), tt.id, tt.quantity)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 10, store.items["B1"].Quantity)
			assert.Zero(t, store.salesCount())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.SellRejections.WithLabelValues(tt.reason)))
		})
	}
}

func TestSell_RejectsQuantityAboveColumnRange(t *testing.T) {
	store := newMockStore(bat())
	svc, _ := newTestService(t, store)

	_, err := svc.Sell(context.Background(), "B1", math.MaxInt32+1)

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "quantity", apiErr.Details[0].Field)
	assert.Zero(t, store.salesCount())
}

func TestAdd_RejectsValuesAboveColumnRange(t *testing.T) {
	svc, _ := newTestService(t, newMockStore())

	_, err := svc.Add(context.Background(), model.InventoryItem{
		ID:       "B1",
		Name:     "Bat",
		Price:    decimal.RequireFromString("100000000"),
		Quantity: math.MaxInt32 + 1,
	})

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	require.Len(t, apiErr.Details, 2)
	assert.Equal(t, apierror.FieldError{Field: "price", Message: "must be at most 99999999.99"}, apiErr.Details[0])
	assert.Equal(t, "quantity", apiErr.Details[1].Field)
}

func TestAdd_AcceptsColumnMaximums(t *testing.T) {
	svc, _ := newTestService(t, newMockStore())

	_, err := svc.Add(context.Background(), model.InventoryItem{
		ID:       "B1",
		Price:    decimal.RequireFromString("99999999.99"),
		Quantity: math.MaxInt32,
	})
	assert.NoError(t, err)
}

func TestSell_RejectsNonPositiveQuantity(t *testing.T) {
	store := newMockStore(bat())
	svc, _ := newTestService(t, store)

	_, err := svc.Sell(context.Background(), "B1", 0)

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "quantity", apiErr.Details[0].Field)
	assert.Zero(t, store.salesCount())
}

func TestSellOnce_SameTokenSellsOnce(t *testing.T) {
	store := newMockStore(bat())
	svc, m := newTestService(t, store)
	ctx := context.Background()

	first, err := svc.SellOnce(ctx, "tok-1", "B1", 2)
	require.NoError(t, err)

	again, err := svc.SellOnce(ctx, "tok-1", "B1", 2)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
	require.NotNil(t, again)
	assert.Equal(t, first.Remaining, again.Remaining)

	assert.Equal(t, 8, store.items["B1"].Quantity)
	assert.Equal(t, 1, store.salesCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SellRejections.WithLabelValues(metrics.ReasonDuplicate)))
}

func TestSellOnce_FailureReleasesToken(t *testing.T) {
	store := newMockStore(bat())
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.SellOnce(ctx, "tok-2", "B1", 50)
	require.ErrorIs(t, err, repository.ErrInsufficientStock)

	receipt, err := svc.SellOnce(ctx, "tok-2", "B1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, receipt.Remaining)
}

func TestSellOnce_TokenReusedForOtherSale(t *testing.T) {
	ball := model.InventoryItem{ID: "F1", Name: "Football", Price: decimal.NewFromInt(20), Quantity: 5}
	store := newMockStore(bat(), ball)
	svc, m := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.SellOnce(ctx, "tok-5", "B1", 2)
	require.NoError(t, err)

	receipt, err := svc.SellOnce(ctx, "tok-5", "F1", 2)
	assert.ErrorIs(t, err, ErrIdempotencyMismatch)
	assert.Nil(t, receipt)

	_, err = svc.SellOnce(ctx, "tok-5", "B1", 3)
	assert.ErrorIs(t, err, ErrIdempotencyMismatch)

	assert.Equal(t, 5, store.items["F1"].Quantity)
	assert.Equal(t, 8, store.items["B1"].Quantity)
	assert.Equal(t, 1, store.salesCount())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SellRejections.WithLabelValues(metrics.ReasonKeyReused)))
}

func TestSellOnce_LostReceiptReleasesToken(t *testing.T) {
	store := newMockStore(bat())
	lossy := &lossyCache{MemoryCache: cache.NewMemoryCache()}
	svc := NewInventoryService(store, salesView{store}, Options{Cache: lossy, IdempotencyTTL: 24 * time.Hour})
	ctx := context.Background()

	_, err := svc.SellOnce(ctx, "tok-6", "B1", 1)
	require.NoError(t, err)

	assert.Equal(t, sellClaimTTL, lossy.claimTTL)
	_, err = lossy.Get(ctx, sellTokenKey("tok-6"))
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestSellOnce_ClaimTTLNeverExceedsIdempotencyTTL(t *testing.T) {
	store := newMockStore(bat())
	svc := NewInventoryService(store, salesView{store}, Options{Cache: cache.NewMemoryCache(), IdempotencyTTL: 10 * time.Second})

	assert.Equal(t, 10*time.Second, svc.claimTTL())
}

func TestSellOnce_EmptyTokenSkipsGuard(t *testing.T) {
	store := newMockStore(bat())
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.SellOnce(ctx, "", "B1", 1)
	require.NoError(t, err)
	_, err = svc.SellOnce(ctx, "", "B1", 1)
	require.NoError(t, err)

	assert.Equal(t, 2, store.salesCount())
}

func TestSellOnce_CacheDownStillSells(t *testing.T) {
	store := newMockStore(bat())
	svc := NewInventoryService(store, salesView{store}, Options{Cache: failingCache{}})

	_, err := svc.SellOnce(context.Background(), "tok-3", "B1", 1)

	require.NoError(t, err)
	assert.Equal(t, 9, store.items["B1"].Quantity)
}

func TestSellOnce_ConcurrentSameToken(t *testing.T) {
	store := newMockStore(bat())
	svc, _ := newTestService(t, store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.SellOnce(context.Background(), "tok-4", "B1", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.salesCount())
	assert.Equal(t, 9, store.items["B1"].Quantity)
}

func TestInventoryAndSalesLog_PropagateStorageErrors(t *testing.T) {
	store := newMockStore()
	store.listErr = errors.New("connection refused")
	svc, _ := newTestService(t, store)

	_, err := svc.Inventory(context.Background())
	assert.ErrorContains(t, err, "connection refused")

	_, err = svc.SalesLog(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestScenario_BatLifecycle(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Add(ctx, bat())
	require.NoError(t, err)

	_, err = svc.Sell(ctx, "B1", 3)
	require.NoError(t, err)

	_, err = svc.Sell(ctx, "B1", 20)
	require.ErrorIs(t, err, repository.ErrInsufficientStock)

	entries, err := svc.SalesLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "B1", entries[0].ItemID)
	assert.Equal(t, "Bat", entries[0].Name)
	assert.Equal(t, 3, entries[0].QuantitySold)

	require.NoError(t, svc.Delete(ctx, "B1"))
	items, err := svc.Inventory(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}
