package payment

import (
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/customer"
)

// StripeService wraps the Stripe SDK. The API key is installed once at
// construction; the service is built at startup and injected.
type StripeService struct {
	successURL string
	cancelURL  string
}

func NewStripeService(secretKey, frontendURL string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		successURL: frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:  frontendURL + "/pricing",
	}
}

func (s *StripeService) CreateCustomer(email, fullName string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(fullName),
	}

	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (s *StripeService) CreateCheckoutSession(customerID, priceID string, subscription bool, metadata map[string]string) (*stripe.CheckoutSession, error) {
	mode := stripe.CheckoutSessionModePayment
	if subscription {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
	}

	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	return session.New(params)
}

// GetSessionLineItems fetches what was actually bought in a checkout
// session; the reconciler maps the price ids back onto the plan catalog.
func (s *StripeService) GetSessionLineItems(sessionID string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}

	var items []*stripe.LineItem
	iter := session.ListLineItems(params)
	for iter.Next() {
		items = append(items, iter.LineItem())
	}
	return items, iter.Err()
}
