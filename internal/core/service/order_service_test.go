package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/driftndash/storefront/internal/core/domain"
)

// Mock DatabaseRepository
type mockDB struct {
	mu sync.Mutex

	created     []domain.Order
	createErr   error
	statusCalls map[string]domain.OrderStatus
	statusErr   error

	softDeleted []string
	restored    []string
	archiveErr  error

	snapshot    *domain.OrderSnapshot
	snapshotErr error

	shippingOpts  []domain.ShippingOption
	shippingCalls int
}

func newMockDB() *mockDB {
	return &mockDB{statusCalls: make(map[string]domain.OrderStatus)}
}

func (m *mockDB) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, order)
	return nil
}

func (m *mockDB) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statusCalls[orderID] = status
	return nil
}

func (m *mockDB) SoftDelete(ctx context.Context, orderID string) error {
	if m.archiveErr != nil {
		return m.archiveErr
	}
	m.softDeleted = append(m.softDeleted, orderID)
	return nil
}

func (m *mockDB) Restore(ctx context.Context, orderID string) error {
	if m.archiveErr != nil {
		return m.archiveErr
	}
	m.restored = append(m.restored, orderID)
	return nil
}

func (m *mockDB) ListByCustomer(ctx context.Context, customerID string) ([]domain.OrderSummary, error) {
	return nil, nil
}

func (m *mockDB) ListAll(ctx context.Context) ([]domain.OrderSummary, error)      { return nil, nil }
func (m *mockDB) ListArchived(ctx context.Context) ([]domain.OrderSummary, error) { return nil, nil }

func (m *mockDB) GetDetail(ctx context.Context, orderID string) (*domain.OrderDetail, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDB) GetSnapshot(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	if m.snapshotErr != nil {
		return nil, m.snapshotErr
	}
	snap := *m.snapshot
	snap.OrderID = orderID
	return &snap, nil
}

func (m *mockDB) ListShippingOptions(ctx context.Context) ([]domain.ShippingOption, error) {
	m.shippingCalls++
	return m.shippingOpts, nil
}

func (m *mockDB) GetStock(ctx context.Context, itemID string) (*domain.StockEntry, error) {
	return nil, nil
}

// Mock CacheRepository
type mockCache struct {
	mu             sync.Mutex
	idempotencySet map[string]bool
	idempotencyErr error
	shipping       []domain.ShippingOption
}

func newMockCache() *mockCache {
	return &mockCache{idempotencySet: make(map[string]bool)}
}

func (m *mockCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idempotencyErr != nil {
		return false, m.idempotencyErr
	}
	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCache) DeleteIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	return nil
}

func (m *mockCache) GetShippingOptions(ctx context.Context) ([]domain.ShippingOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shipping, nil
}

func (m *mockCache) SetShippingOptions(ctx context.Context, opts []domain.ShippingOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shipping = opts
	return nil
}

// Mock NotificationDispatcher
type mockDispatcher struct {
	mu      sync.Mutex
	sent    []domain.EmailMessage
	sendErr error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, msg domain.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testSnapshot() *domain.OrderSnapshot {
	return &domain.OrderSnapshot{
		CustomerName: "Jamie Cruz",
		Email:        "jamie@example.com",
		Region:       "Metro",
		Rate:         decimal.RequireFromString("50.00"),
		Status:       domain.OrderStatusPending,
		DatePlaced:   time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Lines: []domain.LineDetail{
			{ItemID: "item-1", ItemName: "Car Wax", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
		},
	}
}

func newTestService(db *mockDB, cache *mockCache, notify *mockDispatcher) *OrderService {
	svc := NewOrderService(db, cache, notify, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestPlaceOrder_Success(t *testing.T) {
	db := newMockDB()
	db.snapshot = testSnapshot()
	notify := &mockDispatcher{}
	svc := newTestService(db, newMockCache(), notify)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "cust-1",
		ShippingID: "ship-1",
		Lines: []LineRequest{
			{ItemID: "item-1", Quantity: 2},
			{ItemID: "item-2", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.OrderID)
	assert.Empty(t, result.Warning)

	require.Len(t, db.created, 1)
	order := db.created[0]
	assert.Equal(t, result.OrderID, order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, svc.now(), order.DatePlaced)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, domain.OrderLine{ItemID: "item-1", Quantity: 2}, order.Lines[0])

	require.Len(t, notify.sent, 1)
	assert.Equal(t, "jamie@example.com", notify.sent[0].To)
	assert.Contains(t, notify.sent[0].Subject, "Confirmation")
	assert.True(t, notify.sent[0].AttachPDF)
}

func TestPlaceOrder_StatusCanonicalized(t *testing.T) {
	db := newMockDB()
	db.snapshot = testSnapshot()
	svc := newTestService(db, newMockCache(), &mockDispatcher{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "cust-1",
		ShippingID: "ship-1",
		Status:     "PENDING",
		Lines:      []LineRequest{{ItemID: "item-1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, db.created[0].Status)
}

func TestPlaceOrder_Validation(t *testing.T) {
	cases := []struct {
		name string
		req  PlaceOrderRequest
	}{
		{"missing customer", PlaceOrderRequest{ShippingID: "s", Lines: []LineRequest{{ItemID: "i", Quantity: 1}}}},
		{"missing shipping", PlaceOrderRequest{CustomerID: "c", Lines: []LineRequest{{ItemID: "i", Quantity: 1}}}},
		{"no lines", PlaceOrderRequest{CustomerID: "c", ShippingID: "s"}},
		{"zero quantity", PlaceOrderRequest{CustomerID: "c", ShippingID: "s", Lines: []LineRequest{{ItemID: "i", Quantity: 0}}}},
		{"negative quantity", PlaceOrderRequest{CustomerID: "c", ShippingID: "s", Lines: []LineRequest{{ItemID: "i", Quantity: -2}}}},
		{"line missing item", PlaceOrderRequest{CustomerID: "c", ShippingID: "s", Lines: []LineRequest{{Quantity: 1}}}},
		{"bad status", PlaceOrderRequest{CustomerID: "c", ShippingID: "s", Status: "refunded", Lines: []LineRequest{{ItemID: "i", Quantity: 1}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newMockDB()
			svc := newTestService(db, newMockCache(), &mockDispatcher{})

			_, err := svc.PlaceOrder(context.Background(), tc.req)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Empty(t, db.created, "storage must not be touched on invalid input")
		})
	}
}

func TestPlaceOrder_DuplicateRequest(t *testing.T) {
	db := newMockDB()
	db.snapshot = testSnapshot()
	svc := newTestService(db, newMockCache(), &mockDispatcher{})

	req := PlaceOrderRequest{
		RequestID:  "req-1",
		CustomerID: "cust-1",
		ShippingID: "ship-1",
		Lines:      []LineRequest{{ItemID: "item-1", Quantity: 1}},
	}

	_, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Len(t, db.created, 1)
}

func TestPlaceOrder_RetryAfterFailedCreation(t *testing.T) {
	db := newMockDB()
	db.snapshot = testSnapshot()
	db.createErr = errors.New("deadlock found when trying to get lock")
	cache := newMockCache()
	svc := newTestService(db, cache, &mockDispatcher{})

	req := PlaceOrderRequest{
		RequestID:  "req-retry",
		CustomerID: "cust-1",
		ShippingID: "ship-1",
		Lines:      []LineRequest{{ItemID: "item-1", Quantity: 1}},
	}

	_, err := svc.PlaceOrder(context.Background(), req)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateRequest)

	// The failed attempt committed nothing, so the same request id must be
	// usable again.
	db.createErr = nil
	result, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.Len(t, db.created, 1)
}

func TestPlaceOrder_RetryAfterInsufficientStock(t *testing.T) {
	db := newMockDB()
	db.snapshot = testSnapshot()
	db.createErr = &domain.InsufficientStockError{ItemID: "item-1"}
	svc := newTestService(db, newMockCache(), &mockDispatcher{})

	req := PlaceOrderRequest{
		RequestID:  "req-restock",
		CustomerID: "cust-1",
		ShippingID: "ship-1",
		Lines:      []LineRequest{{ItemID: "item-1", Quantity: 3}},
	}

	_, err := svc.PlaceOrder(context.Background(), req)
	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short))

	db.createErr = nil
	_, err = svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err, "restocked item should be orderable under the same request id")
	assert.Len(t, db.created, 1)
}

func TestPlaceOrder_MergesDuplicateItemLines(t *testing.T) {
	db := newMockDB()
	db.snapshot = testSnapshot()
	svc := newTestService(db, newMockCache(), &mockDispatcher{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "cust-1",
		ShippingID: "ship-1",
		Lines: []LineRequest{
			{ItemID: "item-1", Quantity: 1},
			{ItemID: "item-2", Quantity: 1},
			{ItemID: "item-1", Quantity: 2},
		},
	})
	require.NoError(t, err)

	require.Len(t, db.created, 1)
	require.Len(t, db.created[0].Lines, 2)
	assert.Equal(t, domain.OrderLine{ItemID: "item-1", Quantity: 3}, db.created[0].Lines[0])
	assert.Equal(t, domain.OrderLine{ItemID: "item-2", Quantity: 1}, db.created[0].Lines[1])
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	db := newMockDB()
	db.createErr = &domain.InsufficientStockError{ItemID: "item-2"}
	notify := &mockDispatcher{}
	svc := newTestService(db, newMockCache(), notify)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "cust-1",
		ShippingID: "ship-1",
		Lines:      []LineRequest{{ItemID: "item-2", Quantity: 5}},
	})

	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, "item-2", short.ItemID)
	assert.Empty(t, notify.sent, "rejected orders must not notify")
}

func TestPlaceOrder_NotificationFailureIsWarning(t *testing.T) {
	db := newMockDB()
	db.snapshot = testSnapshot()
	notify := &mockDispatcher{sendErr: errors.New("broker down")}
	svc := newTestService(db, newMockCache(), notify)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerID: "cust-1",
		ShippingID: "ship-1",
		Lines:      []LineRequest{{ItemID: "item-1", Quantity: 1}},
	})
	require.NoError(t, err, "a committed order must not fail on notification trouble")
	assert.NotEmpty(t, result.Warning)
	assert.Len(t, db.created, 1)
}

func TestSetStatus_Success(t *testing.T) {
	db := newMockDB()
	db.snapshot = testSnapshot()
	notify := &mockDispatcher{}
	svc := newTestService(db, newMockCache(), notify)

	warning, err := svc.SetStatus(context.Background(), "order-1", "Shipped")
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, domain.OrderStatusShipped, db.statusCalls["order-1"])

	require.Len(t, notify.sent, 1)
	assert.True(t, strings.Contains(notify.sent[0].Subject, "Status"))
}

func TestSetStatus_InvalidStatus(t *testing.T) {
	db := newMockDB()
	svc := newTestService(db, newMockCache(), &mockDispatcher{})

	_, err := svc.SetStatus(context.Background(), "order-1", "teleported")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Empty(t, db.statusCalls)
}

func TestSetStatus_NotFound(t *testing.T) {
	db := newMockDB()
	db.statusErr = domain.ErrNotFound
	svc := newTestService(db, newMockCache(), &mockDispatcher{})

	_, err := svc.SetStatus(context.Background(), "missing", "cancelled")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetStatus_SnapshotFailureIsWarning(t *testing.T) {
	db := newMockDB()
	db.snapshotErr = errors.New("replica lagging")
	svc := newTestService(db, newMockCache(), &mockDispatcher{})

	warning, err := svc.SetStatus(context.Background(), "order-1", "delivered")
	require.NoError(t, err)
	assert.NotEmpty(t, warning)
	assert.Equal(t, domain.OrderStatusDelivered, db.statusCalls["order-1"])
}

func TestListShippingOptions_CachesReferenceData(t *testing.T) {
	db := newMockDB()
	db.shippingOpts = []domain.ShippingOption{
		{ID: "ship-1", Region: "Metro", Rate: decimal.RequireFromString("50.00")},
	}
	cache := newMockCache()
	svc := newTestService(db, cache, &mockDispatcher{})

	opts, err := svc.ListShippingOptions(context.Background())
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, 1, db.shippingCalls)

	// Second read is served from cache.
	opts, err = svc.ListShippingOptions(context.Background())
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, 1, db.shippingCalls)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	db := newMockDB()
	svc := newTestService(db, newMockCache(), &mockDispatcher{})

	require.NoError(t, svc.SoftDelete(context.Background(), "order-1"))
	require.NoError(t, svc.Restore(context.Background(), "order-1"))
	assert.Equal(t, []string{"order-1"}, db.softDeleted)
	assert.Equal(t, []string{"order-1"}, db.restored)
}
