package handler_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tailorcv/tailorcv-backend/internal/handler"
	"github.com/tailorcv/tailorcv-backend/internal/models"
	"github.com/tailorcv/tailorcv-backend/internal/repository"
	"github.com/tailorcv/tailorcv-backend/internal/service"
	"github.com/tailorcv/tailorcv-backend/pkg/utils"
)

const testWebhookSecret = "whsec_test_secret"

type stubGateway struct {
	mock.Mock
}

func (m *stubGateway) CreateCustomer(email, fullName string) (string, error) {
	args := m.Called(email, fullName)
	return args.String(0), args.Error(1)
}

func (m *stubGateway) CreateCheckoutSession(customerID, priceID string, subscription bool, metadata map[string]string) (*stripe.CheckoutSession, error) {
	args := m.Called(customerID, priceID, subscription, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.CheckoutSession), args.Error(1)
}

func (m *stubGateway) GetSessionLineItems(sessionID string) ([]*stripe.LineItem, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stripe.LineItem), args.Error(1)
}

type stubUserStore struct {
	mock.Mock
}

func (m *stubUserStore) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *stubUserStore) GetByStripeCustomerID(customerID string) (*models.User, error) {
	args := m.Called(customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *stubUserStore) SetStripeCustomerID(userID uint, customerID string) error {
	args := m.Called(userID, customerID)
	return args.Error(0)
}

func (m *stubUserStore) UpdateSubscription(userID uint, status models.CustomerStatus, planID string, endsAt *time.Time) error {
	args := m.Called(userID, status, planID, endsAt)
	return args.Error(0)
}

func (m *stubUserStore) UpdateSubscriptionStatus(userID uint, status models.CustomerStatus) error {
	args := m.Called(userID, status)
	return args.Error(0)
}

type stubPurchaseStore struct {
	mock.Mock
}

func (m *stubPurchaseStore) Create(purchase *models.Purchase) error {
	args := m.Called(purchase)
	return args.Error(0)
}

func (m *stubPurchaseStore) GetBySessionID(sessionID string) (*models.Purchase, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}

func (m *stubPurchaseStore) GetUserPurchaseHistory(userID uint) ([]models.Purchase, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Purchase), args.Error(1)
}

func (m *stubPurchaseStore) CompleteWithCredits(sessionID string, p repository.CompletePurchaseParams) (bool, error) {
	args := m.Called(sessionID, p)
	return args.Bool(0), args.Error(1)
}

func (m *stubPurchaseStore) MarkFailed(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

type stubWebhookStore struct {
	mock.Mock
}

func (m *stubWebhookStore) Create(event *models.WebhookEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *stubWebhookStore) GetByEventID(eventID string) (*models.WebhookEvent, error) {
	args := m.Called(eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookEvent), args.Error(1)
}

func (m *stubWebhookStore) MarkProcessed(eventID string) error {
	args := m.Called(eventID)
	return args.Error(0)
}

type webhookFixture struct {
	app       *fiber.App
	gateway   *stubGateway
	users     *stubUserStore
	purchases *stubPurchaseStore
	events    *stubWebhookStore
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		gateway:   new(stubGateway),
		users:     new(stubUserStore),
		purchases: new(stubPurchaseStore),
		events:    new(stubWebhookStore),
	}

	catalog := models.NewPlanCatalog("price_monthly", "price_yearly", "price_pack")
	svc := service.NewPaymentService(f.gateway, f.users, f.purchases, f.events, catalog, nil, zap.NewNop())
	h := handler.NewPaymentHandler(svc, utils.NewValidator(), testWebhookSecret)

	f.app = fiber.New()
	f.app.Post("/api/payments/webhook", h.HandleStripeWebhook)
	return f
}

// signPayload produces a Stripe-Signature header value: the v1 scheme is an
// HMAC-SHA256 over "<timestamp>.<raw body>" keyed with the endpoint secret.
func signPayload(secret string, payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func webhookRequest(payload []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	return req
}

func checkoutCompletedPayload(eventID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2022-11-15",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_123",
				"customer": "cus_1",
				"amount_total": 999,
				"currency": "usd",
				"payment_intent": "pi_1"
			}
		}
	}`, eventID))
}

func TestHandleStripeWebhook_ValidSignature(t *testing.T) {
	f := newWebhookFixture()

	f.events.On("GetByEventID", "evt_1").Return(nil, gorm.ErrRecordNotFound)
	f.events.On("Create", mock.AnythingOfType("*models.WebhookEvent")).Return(nil)
	f.users.On("GetByStripeCustomerID", "cus_1").
		Return(&models.User{ID: 1, StripeCustomerID: "cus_1"}, nil)
	f.gateway.On("GetSessionLineItems", "cs_123").
		Return([]*stripe.LineItem{{Price: &stripe.Price{ID: "price_monthly"}}}, nil)
	f.purchases.On("CompleteWithCredits", "cs_123", mock.Anything).Return(true, nil)
	f.events.On("MarkProcessed", "evt_1").Return(nil)

	payload := checkoutCompletedPayload("evt_1")
	resp, err := f.app.Test(webhookRequest(payload, signPayload(testWebhookSecret, payload, time.Now())))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	f.purchases.AssertNumberOfCalls(t, "CompleteWithCredits", 1)
}

func TestHandleStripeWebhook_TamperedBody(t *testing.T) {
	f := newWebhookFixture()

	payload := checkoutCompletedPayload("evt_1")
	signature := signPayload(testWebhookSecret, payload, time.Now())

	tampered := bytes.Replace(payload, []byte(`"amount_total": 999`), []byte(`"amount_total": 1`), 1)
	resp, err := f.app.Test(webhookRequest(tampered, signature))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	// Nothing may touch the stores before the signature clears.
	f.events.AssertNotCalled(t, "Create", mock.Anything)
	f.purchases.AssertNotCalled(t, "CompleteWithCredits", mock.Anything, mock.Anything)
}

func TestHandleStripeWebhook_WrongSecret(t *testing.T) {
	f := newWebhookFixture()

	payload := checkoutCompletedPayload("evt_1")
	resp, err := f.app.Test(webhookRequest(payload, signPayload("whsec_other", payload, time.Now())))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleStripeWebhook_MissingSignature(t *testing.T) {
	f := newWebhookFixture()

	resp, err := f.app.Test(webhookRequest(checkoutCompletedPayload("evt_1"), ""))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleStripeWebhook_StaleTimestamp(t *testing.T) {
	f := newWebhookFixture()

	payload := checkoutCompletedPayload("evt_1")
	signature := signPayload(testWebhookSecret, payload, time.Now().Add(-time.Hour))
	resp, err := f.app.Test(webhookRequest(payload, signature))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleStripeWebhook_RedeliveryCreditsOnce(t *testing.T) {
	f := newWebhookFixture()

	f.events.On("GetByEventID", "evt_1").Return(nil, gorm.ErrRecordNotFound).Once()
	f.events.On("Create", mock.AnythingOfType("*models.WebhookEvent")).Return(nil).Once()
	f.users.On("GetByStripeCustomerID", "cus_1").
		Return(&models.User{ID: 1, StripeCustomerID: "cus_1"}, nil)
	f.gateway.On("GetSessionLineItems", "cs_123").
		Return([]*stripe.LineItem{{Price: &stripe.Price{ID: "price_monthly"}}}, nil)
	f.purchases.On("CompleteWithCredits", "cs_123", mock.Anything).Return(true, nil)
	f.events.On("MarkProcessed", "evt_1").Return(nil).Once()
	f.events.On("GetByEventID", "evt_1").
		Return(&models.WebhookEvent{StripeEventID: "evt_1", Processed: true}, nil).Once()

	payload := checkoutCompletedPayload("evt_1")

	for i := 0; i < 2; i++ {
		resp, err := f.app.Test(webhookRequest(payload, signPayload(testWebhookSecret, payload, time.Now())))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	f.purchases.AssertNumberOfCalls(t, "CompleteWithCredits", 1)
}

func TestHandleStripeWebhook_ReconcilerFailureReturns500(t *testing.T) {
	f := newWebhookFixture()

	f.events.On("GetByEventID", "evt_1").Return(nil, gorm.ErrRecordNotFound)
	f.events.On("Create", mock.AnythingOfType("*models.WebhookEvent")).Return(nil)
	f.users.On("GetByStripeCustomerID", "cus_1").
		Return(&models.User{ID: 1, StripeCustomerID: "cus_1"}, nil)
	f.gateway.On("GetSessionLineItems", "cs_123").
		Return([]*stripe.LineItem{{Price: &stripe.Price{ID: "price_monthly"}}}, nil)
	f.purchases.On("CompleteWithCredits", "cs_123", mock.Anything).Return(false, assert.AnError)

	payload := checkoutCompletedPayload("evt_1")
	resp, err := f.app.Test(webhookRequest(payload, signPayload(testWebhookSecret, payload, time.Now())))

	// A store failure must surface as non-2xx so the provider redelivers.
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	f.events.AssertNotCalled(t, "MarkProcessed", mock.Anything)
}
