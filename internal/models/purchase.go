package models

import "time"

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// Purchase is the local record of one checkout attempt. StripeSessionID holds
// the checkout session id, or the invoice id for recurring renewals, so the
// unique constraint covers both reconciliation paths.
type Purchase struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	UserID          uint           `json:"user_id" gorm:"not null;index"`
	PlanID          string         `json:"plan_id" gorm:"not null"`
	Type            PurchaseType   `json:"type" gorm:"not null"`
	Status          PurchaseStatus `json:"status" gorm:"not null;default:'pending'"`
	StripeSessionID string         `json:"stripe_session_id" gorm:"unique;not null"`
	StripePaymentID string         `json:"stripe_payment_id"`
	AmountTotal     int64          `json:"amount_total"`
	Currency        string         `json:"currency"`
	Credits         int            `json:"credits" gorm:"not null"`
	PeriodStart     *time.Time     `json:"period_start"`
	PeriodEnd       *time.Time     `json:"period_end"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
