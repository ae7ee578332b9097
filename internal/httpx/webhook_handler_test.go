package httpx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthwave/checkout-service/internal/catalog"
	"github.com/wealthwave/checkout-service/internal/fulfillment"
	"github.com/wealthwave/checkout-service/internal/orders"
	"github.com/wealthwave/checkout-service/internal/payment"
)

type fakeProcessor struct {
	ev  payment.Event
	err error
}

func (f *fakeProcessor) CreateSession(context.Context, payment.CreateSessionInput) (payment.Session, error) {
	return payment.Session{}, nil
}

func (f *fakeProcessor) VerifyEvent([]byte, string) (payment.Event, error) {
	return f.ev, f.err
}

type fakeStore struct {
	mu           sync.Mutex
	order        orders.Order
	exists       bool
	calls        int
	entitlements map[string]bool
	storeErr     error
}

func (f *fakeStore) touch() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeStore) GetOrder(_ context.Context, orderID string) (orders.Order, error) {
	f.touch()
	if f.storeErr != nil {
		return orders.Order{}, f.storeErr
	}
	if !f.exists {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrOrderNotFound, orderID)
	}
	return f.order, nil
}

func (f *fakeStore) MarkPaid(_ context.Context, _, pi string) (bool, error) {
	f.touch()
	became := f.order.Status != orders.StatusPaid
	f.order.Status = orders.StatusPaid
	f.order.PaymentIntentID = pi
	return became, nil
}

func (f *fakeStore) MarkExpired(context.Context, string) (bool, error) {
	f.touch()
	became := f.order.Status == orders.StatusPending
	if became {
		f.order.Status = orders.StatusExpired
	}
	return became, nil
}

func (f *fakeStore) GrantEntitlement(_ context.Context, userID, productID, _ string) error {
	f.touch()
	if f.entitlements == nil {
		f.entitlements = map[string]bool{}
	}
	f.entitlements[userID+"|"+productID] = true
	return nil
}

func newWebhookServer(proc *fakeProcessor, store *fakeStore) *chiServer {
	r := NewRouter()
	(&WebhookHandler{Processor: proc, Engine: &fulfillment.Service{Store: store}}).Register(r)
	return &chiServer{r}
}

type chiServer struct{ h http.Handler }

func (s *chiServer) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func pendingOrder() orders.Order {
	return orders.Order{
		ID: "ord-1", UserID: "user-1", Status: orders.StatusPending,
		TotalCents: 34300, Currency: "usd",
		Items: []orders.LineItem{
			{ProductID: "course-a", Quantity: 1, UnitPriceCents: 14900,
				ProductName: "Course A", ProductType: catalog.TypeCourse},
		},
	}
}

func TestWebhookInvalidSignatureRejectedBeforeStore(t *testing.T) {
	store := &fakeStore{order: pendingOrder(), exists: true}
	srv := newWebhookServer(&fakeProcessor{err: payment.ErrInvalidSignature}, store)

	rec := srv.post("/stripe/webhook", "{}")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.calls, "no store access before signature verification")
	assert.NotContains(t, rec.Body.String(), "whsec", "never leak secret material")
}

func TestWebhookMissingConfigIs500(t *testing.T) {
	store := &fakeStore{}
	srv := newWebhookServer(&fakeProcessor{err: payment.ErrMissingConfig}, store)

	rec := srv.post("/stripe/webhook", "{}")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, store.calls)
}

func TestWebhookCompletedFulfills(t *testing.T) {
	store := &fakeStore{order: pendingOrder(), exists: true}
	proc := &fakeProcessor{ev: payment.Event{
		ID: "evt-1", Kind: payment.EventPaymentCompleted,
		OrderID: "ord-1", PaymentIntentID: "pi_1",
	}}
	srv := newWebhookServer(proc, store)

	rec := srv.post("/stripe/webhook", "{}")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"received":true`)
	assert.Equal(t, orders.StatusPaid, store.order.Status)
	assert.True(t, store.entitlements["user-1|course-a"])
}

func TestWebhookUnknownOrderIs404(t *testing.T) {
	store := &fakeStore{exists: false}
	proc := &fakeProcessor{ev: payment.Event{
		ID: "evt-1", Kind: payment.EventPaymentCompleted, OrderID: "ord-missing",
	}}
	srv := newWebhookServer(proc, store)

	rec := srv.post("/stripe/webhook", "{}")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookStoreFailureIsRetryable(t *testing.T) {
	store := &fakeStore{storeErr: assert.AnError}
	proc := &fakeProcessor{ev: payment.Event{
		ID: "evt-1", Kind: payment.EventPaymentCompleted, OrderID: "ord-1",
	}}
	srv := newWebhookServer(proc, store)

	rec := srv.post("/stripe/webhook", "{}")
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "non-2xx so the processor redelivers")
}

func TestWebhookUnknownEventKindAcknowledged(t *testing.T) {
	store := &fakeStore{}
	proc := &fakeProcessor{ev: payment.Event{ID: "evt-9", Kind: payment.EventUnknown}}
	srv := newWebhookServer(proc, store)

	rec := srv.post("/stripe/webhook", "{}")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, store.calls)
}
