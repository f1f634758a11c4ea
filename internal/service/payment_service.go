package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/tailorcv/tailorcv-backend/internal/models"
	"github.com/tailorcv/tailorcv-backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidPlan  = errors.New("unknown plan")
	ErrUserNotFound = errors.New("no user for billing customer")
)

// StripeGateway is the slice of the Stripe API the payment service needs.
type StripeGateway interface {
	CreateCustomer(email, fullName string) (string, error)
	CreateCheckoutSession(customerID, priceID string, subscription bool, metadata map[string]string) (*stripe.CheckoutSession, error)
	GetSessionLineItems(sessionID string) ([]*stripe.LineItem, error)
}

type UserStore interface {
	GetByID(id uint) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	SetStripeCustomerID(userID uint, customerID string) error
	UpdateSubscription(userID uint, status models.CustomerStatus, planID string, endsAt *time.Time) error
	UpdateSubscriptionStatus(userID uint, status models.CustomerStatus) error
}

type PurchaseStore interface {
	Create(purchase *models.Purchase) error
	GetBySessionID(sessionID string) (*models.Purchase, error)
	GetUserPurchaseHistory(userID uint) ([]models.Purchase, error)
	CompleteWithCredits(sessionID string, p repository.CompletePurchaseParams) (bool, error)
	MarkFailed(sessionID string) error
}

type WebhookStore interface {
	Create(event *models.WebhookEvent) error
	GetByEventID(eventID string) (*models.WebhookEvent, error)
	MarkProcessed(eventID string) error
}

type ReceiptMailer interface {
	SendPurchaseConfirmation(email, fullName, planName string, credits int) error
}

type PaymentService struct {
	stripe    StripeGateway
	users     UserStore
	purchases PurchaseStore
	events    WebhookStore
	plans     *models.PlanCatalog
	mailer    ReceiptMailer
	logger    *zap.Logger
}

func NewPaymentService(
	stripeGateway StripeGateway,
	users UserStore,
	purchases PurchaseStore,
	events WebhookStore,
	plans *models.PlanCatalog,
	mailer ReceiptMailer,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		stripe:    stripeGateway,
		users:     users,
		purchases: purchases,
		events:    events,
		plans:     plans,
		mailer:    mailer,
		logger:    logger,
	}
}

func (s *PaymentService) GetPlans() []models.Plan {
	return s.plans.All()
}

func (s *PaymentService) GetUserPurchaseHistory(userID uint) ([]models.Purchase, error) {
	return s.purchases.GetUserPurchaseHistory(userID)
}

// CreateCheckoutSession opens a Stripe Checkout session for the plan and
// records a pending Purchase carrying what will be granted on completion.
// Each call creates its own pending Purchase; attempts stay independent
// until reconciled.
func (s *PaymentService) CreateCheckoutSession(userID uint, planID string) (*models.CheckoutSession, error) {
	plan, ok := s.plans.ByID(planID)
	if !ok {
		return nil, ErrInvalidPlan
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = s.stripe.CreateCustomer(user.Email, user.FullName)
		if err != nil {
			return nil, fmt.Errorf("failed to create billing customer: %w", err)
		}
		if err := s.users.SetStripeCustomerID(user.ID, customerID); err != nil {
			return nil, err
		}
	}

	sess, err := s.stripe.CreateCheckoutSession(
		customerID,
		plan.PriceID,
		plan.Type != models.PurchaseTypeCredits,
		map[string]string{
			"user_id": fmt.Sprintf("%d", user.ID),
			"plan_id": plan.ID,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	periodStart, periodEnd := plan.SubscriptionWindow(time.Now())
	purchase := &models.Purchase{
		UserID:          user.ID,
		PlanID:          plan.ID,
		Type:            plan.Type,
		Status:          models.PurchaseStatusPending,
		StripeSessionID: sess.ID,
		AmountTotal:     plan.Amount,
		Currency:        "usd",
		Credits:         plan.Credits,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
	}
	if err := s.purchases.Create(purchase); err != nil {
		return nil, err
	}

	return &models.CheckoutSession{
		ID:  sess.ID,
		URL: sess.URL,
	}, nil
}

// HandleStripeWebhook dispatches a signature-verified event. A returned
// error means the provider should retry; expected mismatches (unknown user,
// duplicate delivery, unrecognized type) are logged and acked so retries
// stop.
func (s *PaymentService) HandleStripeWebhook(event *stripe.Event) error {
	if existing, err := s.events.GetByEventID(event.ID); err == nil && existing.Processed {
		s.logger.Info("duplicate webhook event, skipping",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
		)
		return nil
	}

	// Audit log is best effort; a log-write failure must not block
	// reconciliation.
	if err := s.events.Create(&models.WebhookEvent{
		StripeEventID: event.ID,
		EventType:     string(event.Type),
		Payload:       string(event.Data.Raw),
	}); err != nil {
		s.logger.Warn("failed to record webhook event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}

	var err error
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err == nil {
			err = s.recordPurchase(&session)
		}

	case "checkout.session.expired", "checkout.session.async_payment_failed":
		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err == nil {
			err = s.purchases.MarkFailed(session.ID)
		}

	case "invoice.paid":
		var invoice stripe.Invoice
		if err = json.Unmarshal(event.Data.Raw, &invoice); err == nil {
			err = s.creditRenewal(&invoice)
		}

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err = json.Unmarshal(event.Data.Raw, &sub); err == nil {
			err = s.syncSubscription(&sub)
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err = json.Unmarshal(event.Data.Raw, &sub); err == nil {
			err = s.cancelSubscription(&sub)
		}

	default:
		// Unrecognized types are acked to avoid provider retry storms.
		s.logger.Debug("ignoring webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
		)
	}

	if errors.Is(err, ErrUserNotFound) {
		// Unrecoverable mismatch; retrying will not conjure the user.
		s.logger.Warn("webhook event references unknown user",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
		)
		err = nil
	}
	if err != nil {
		s.logger.Error("webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return err
	}

	if err := s.events.MarkProcessed(event.ID); err != nil {
		s.logger.Warn("failed to mark webhook event processed",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}
	return nil
}

// recordPurchase turns a completed checkout session into durable state:
// purchase completed, credits added, subscription activated, all in one
// transaction on the store side.
func (s *PaymentService) recordPurchase(session *stripe.CheckoutSession) error {
	user, err := s.resolveSessionUser(session)
	if err != nil {
		return err
	}

	items, err := s.stripe.GetSessionLineItems(session.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch line items for %s: %w", session.ID, err)
	}

	var plan models.Plan
	found := false
	for _, item := range items {
		if item.Price == nil {
			continue
		}
		if p, ok := s.plans.ByPriceID(item.Price.ID); ok {
			plan = p
			found = true
			break
		}
	}
	if !found {
		// A price outside the catalog cannot be reconciled and retrying
		// will not change that; log loudly and ack.
		s.logger.Error("checkout session has no catalog price",
			zap.String("session_id", session.ID),
		)
		return nil
	}

	paymentID := ""
	if session.PaymentIntent != nil {
		paymentID = session.PaymentIntent.ID
	} else if session.Subscription != nil {
		paymentID = session.Subscription.ID
	}

	periodStart, periodEnd := plan.SubscriptionWindow(time.Now())
	credited, err := s.purchases.CompleteWithCredits(session.ID, repository.CompletePurchaseParams{
		UserID:          user.ID,
		PlanID:          plan.ID,
		Type:            plan.Type,
		StripePaymentID: paymentID,
		AmountTotal:     session.AmountTotal,
		Currency:        string(session.Currency),
		Credits:         plan.Credits,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
	})
	if err != nil {
		return fmt.Errorf("failed to complete purchase for %s: %w", session.ID, err)
	}

	if !credited {
		s.logger.Info("purchase already completed, no credits applied",
			zap.String("session_id", session.ID),
		)
		return nil
	}

	s.logger.Info("purchase reconciled",
		zap.String("session_id", session.ID),
		zap.Uint("user_id", user.ID),
		zap.String("plan", plan.ID),
		zap.Int("credits", plan.Credits),
	)

	if s.mailer != nil {
		go s.mailer.SendPurchaseConfirmation(user.Email, user.FullName, plan.Name, plan.Credits)
	}
	return nil
}

// resolveSessionUser finds the local user for a checkout session. The
// customer id is authoritative; if it is stale (user re-subscribed under a
// new customer) the pending Purchase created at checkout time still knows
// the user, and the fresh customer id is written back.
func (s *PaymentService) resolveSessionUser(session *stripe.CheckoutSession) (*models.User, error) {
	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	if customerID != "" {
		user, err := s.users.GetByStripeCustomerID(customerID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	purchase, err := s.purchases.GetBySessionID(session.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user, err := s.users.GetByID(purchase.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if customerID != "" && user.StripeCustomerID != customerID {
		if err := s.users.SetStripeCustomerID(user.ID, customerID); err != nil {
			s.logger.Warn("failed to refresh stripe customer id",
				zap.Uint("user_id", user.ID),
				zap.Error(err),
			)
		}
	}
	return user, nil
}

// creditRenewal applies the recurring allotment for a paid invoice. The
// invoice id takes the place of a session id so the same unique-constraint
// idempotency applies to renewals.
func (s *PaymentService) creditRenewal(invoice *stripe.Invoice) error {
	if invoice.Customer == nil {
		return ErrUserNotFound
	}
	user, err := s.users.GetByStripeCustomerID(invoice.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	var plan models.Plan
	found := false
	if invoice.Lines != nil {
		for _, line := range invoice.Lines.Data {
			if line.Price == nil {
				continue
			}
			if p, ok := s.plans.ByPriceID(line.Price.ID); ok {
				plan = p
				found = true
				break
			}
		}
	}
	if !found {
		s.logger.Error("invoice has no catalog price",
			zap.String("invoice_id", invoice.ID),
		)
		return nil
	}

	periodStart, periodEnd := plan.SubscriptionWindow(time.Now())
	credited, err := s.purchases.CompleteWithCredits(invoice.ID, repository.CompletePurchaseParams{
		UserID:          user.ID,
		PlanID:          plan.ID,
		Type:            plan.Type,
		StripePaymentID: invoice.ID,
		AmountTotal:     invoice.AmountPaid,
		Currency:        string(invoice.Currency),
		Credits:         plan.Credits,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
	})
	if err != nil {
		return fmt.Errorf("failed to credit renewal %s: %w", invoice.ID, err)
	}

	if credited {
		s.logger.Info("renewal credited",
			zap.String("invoice_id", invoice.ID),
			zap.Uint("user_id", user.ID),
			zap.String("plan", plan.ID),
		)
	}
	return nil
}

func (s *PaymentService) syncSubscription(sub *stripe.Subscription) error {
	if sub.Customer == nil {
		return ErrUserNotFound
	}
	user, err := s.users.GetByStripeCustomerID(sub.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	planID := user.SubscriptionPlan
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price == nil {
				continue
			}
			if p, ok := s.plans.ByPriceID(item.Price.ID); ok {
				planID = p.ID
				break
			}
		}
	}

	var endsAt *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0)
		endsAt = &t
	}

	return s.users.UpdateSubscription(user.ID, mapSubscriptionStatus(sub.Status), planID, endsAt)
}

func (s *PaymentService) cancelSubscription(sub *stripe.Subscription) error {
	if sub.Customer == nil {
		return ErrUserNotFound
	}
	user, err := s.users.GetByStripeCustomerID(sub.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return s.users.UpdateSubscriptionStatus(user.ID, models.CustomerStatusCanceled)
}

func mapSubscriptionStatus(status stripe.SubscriptionStatus) models.CustomerStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.CustomerStatusActive
	case stripe.SubscriptionStatusCanceled:
		return models.CustomerStatusCanceled
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncompleteExpired:
		return models.CustomerStatusExpired
	default:
		return models.CustomerStatusInactive
	}
}
