package models

type CreateCheckoutSessionRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
