package fulfillment

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthwave/checkout-service/internal/catalog"
	"github.com/wealthwave/checkout-service/internal/notify"
	"github.com/wealthwave/checkout-service/internal/orders"
	"github.com/wealthwave/checkout-service/internal/payment"
)

// fakeStore mimics the data store's native atomicity: conditional
// single-row status updates and a unique (user, product) entitlement set.
type fakeStore struct {
	mu     sync.Mutex
	order  orders.Order
	exists bool

	getCalls     int
	entitlements map[string]bool
}

func newFakeStore(o orders.Order) *fakeStore {
	return &fakeStore{order: o, exists: true, entitlements: map[string]bool{}}
}

func (f *fakeStore) GetOrder(_ context.Context, orderID string) (orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if !f.exists || orderID != f.order.ID {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrOrderNotFound, orderID)
	}
	return f.order, nil
}

func (f *fakeStore) MarkPaid(_ context.Context, orderID, paymentIntentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order.Status == orders.StatusPaid {
		return false, nil
	}
	f.order.Status = orders.StatusPaid
	f.order.PaymentIntentID = paymentIntentID
	return true, nil
}

func (f *fakeStore) MarkExpired(_ context.Context, orderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order.Status != orders.StatusPending {
		return false, nil
	}
	f.order.Status = orders.StatusExpired
	return true, nil
}

func (f *fakeStore) GrantEntitlement(_ context.Context, userID, productID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entitlements[userID+"|"+productID] = true
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, eventType string, _ notify.PurchaseSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return f.err
}

func testOrder() orders.Order {
	return orders.Order{
		ID:         "ord-1",
		UserID:     "user-1",
		Status:     orders.StatusPending,
		TotalCents: 34300,
		Currency:   "usd",
		Items: []orders.LineItem{
			{ProductID: "course-a", Quantity: 1, UnitPriceCents: 14900,
				ProductName: "Course A", ProductType: catalog.TypeCourse},
			{ProductID: "guide-b", Quantity: 2, UnitPriceCents: 9700,
				ProductName: "Guide B", ProductType: catalog.TypeMisc},
		},
	}
}

func completedEvent() payment.Event {
	return payment.Event{
		ID: "evt-1", Kind: payment.EventPaymentCompleted,
		SessionID: "cs_1", OrderID: "ord-1", UserID: "user-1",
		PaymentIntentID: "pi_1",
	}
}

func TestCompletedGrantsEntitlementsOnce(t *testing.T) {
	store := newFakeStore(testOrder())
	nf := &fakeNotifier{}
	svc := &Service{Store: store, Notifier: nf}

	res, err := svc.HandleEvent(context.Background(), completedEvent())
	require.NoError(t, err)
	assert.True(t, res.BecamePaid)
	assert.Equal(t, orders.StatusPaid, res.Status)

	assert.Equal(t, orders.StatusPaid, store.order.Status)
	assert.Equal(t, "pi_1", store.order.PaymentIntentID)

	// only the course product carries an entitlement, never the guide
	assert.Len(t, store.entitlements, 1)
	assert.True(t, store.entitlements["user-1|course-a"])

	assert.Equal(t, []string{notify.EventOrderPaid}, nf.events)
}

func TestDuplicateCompletedIsNoOp(t *testing.T) {
	store := newFakeStore(testOrder())
	svc := &Service{Store: store}

	first, err := svc.HandleEvent(context.Background(), completedEvent())
	require.NoError(t, err)
	require.True(t, first.BecamePaid)

	second, err := svc.HandleEvent(context.Background(), completedEvent())
	require.NoError(t, err, "duplicate delivery must return success")
	assert.False(t, second.BecamePaid)
	assert.Len(t, store.entitlements, 1)
}

func TestConcurrentDuplicatesGrantOnce(t *testing.T) {
	store := newFakeStore(testOrder())
	svc := &Service{Store: store}

	const n = 8
	var wg sync.WaitGroup
	became := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.HandleEvent(context.Background(), completedEvent())
			assert.NoError(t, err)
			became <- res.BecamePaid
		}()
	}
	wg.Wait()
	close(became)

	transitions := 0
	for b := range became {
		if b {
			transitions++
		}
	}
	assert.Equal(t, 1, transitions, "exactly one delivery wins the transition")
	assert.Len(t, store.entitlements, 1)
}

func TestExpiryNeverOverridesPayment(t *testing.T) {
	store := newFakeStore(testOrder())
	nf := &fakeNotifier{}
	svc := &Service{Store: store, Notifier: nf}

	_, err := svc.HandleEvent(context.Background(), completedEvent())
	require.NoError(t, err)

	ev := completedEvent()
	ev.ID = "evt-2"
	ev.Kind = payment.EventPaymentExpired
	res, err := svc.HandleEvent(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, orders.StatusPaid, res.Status)
	assert.Equal(t, orders.StatusPaid, store.order.Status)
	// no expiry notification for an order that stayed paid
	assert.Equal(t, []string{notify.EventOrderPaid}, nf.events)
}

func TestExpiryDowngradesPending(t *testing.T) {
	store := newFakeStore(testOrder())
	nf := &fakeNotifier{}
	svc := &Service{Store: store, Notifier: nf}

	ev := completedEvent()
	ev.Kind = payment.EventPaymentExpired
	res, err := svc.HandleEvent(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, orders.StatusExpired, res.Status)
	assert.Empty(t, store.entitlements)
	assert.Equal(t, []string{notify.EventOrderExpired}, nf.events)
}

func TestUnknownEventKindAcknowledged(t *testing.T) {
	store := newFakeStore(testOrder())
	svc := &Service{Store: store}

	res, err := svc.HandleEvent(context.Background(), payment.Event{ID: "evt-x", Kind: payment.EventUnknown})
	require.NoError(t, err)
	assert.True(t, res.Ignored)
	assert.Zero(t, store.getCalls, "unrecognized kinds never touch the store")
}

func TestCompletedWithoutOrderIDIsRetryable(t *testing.T) {
	svc := &Service{Store: newFakeStore(testOrder())}
	_, err := svc.HandleEvent(context.Background(), payment.Event{ID: "evt-1", Kind: payment.EventPaymentCompleted})
	assert.ErrorIs(t, err, ErrMissingOrderID)
}

func TestExpiredWithoutOrderIDAcknowledged(t *testing.T) {
	store := newFakeStore(testOrder())
	svc := &Service{Store: store}

	res, err := svc.HandleEvent(context.Background(), payment.Event{ID: "evt-1", Kind: payment.EventPaymentExpired})
	require.NoError(t, err, "nothing to downgrade, nothing to retry")
	assert.True(t, res.Ignored)
	assert.Zero(t, store.getCalls)
	assert.Equal(t, orders.StatusPending, store.order.Status)
}

func TestOrderNotFoundIsRetryable(t *testing.T) {
	store := newFakeStore(testOrder())
	store.exists = false
	svc := &Service{Store: store}

	_, err := svc.HandleEvent(context.Background(), completedEvent())
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	store := newFakeStore(testOrder())
	nf := &fakeNotifier{err: assert.AnError}
	svc := &Service{Store: store, Notifier: nf}

	res, err := svc.HandleEvent(context.Background(), completedEvent())
	require.NoError(t, err, "notification failures never fail fulfillment")
	assert.True(t, res.BecamePaid)
	assert.Equal(t, orders.StatusPaid, store.order.Status)
	assert.Len(t, store.entitlements, 1)
}
