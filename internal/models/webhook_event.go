package models

import "time"

// WebhookEvent is an append-only audit record of every inbound Stripe event.
// It backs the duplicate-delivery check and manual replay; it never mutates
// business state itself.
type WebhookEvent struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	StripeEventID string     `json:"stripe_event_id" gorm:"unique;not null"`
	EventType     string     `json:"event_type" gorm:"not null;index"`
	Payload       string     `json:"payload" gorm:"type:text"`
	Processed     bool       `json:"processed" gorm:"not null;default:false"`
	ProcessedAt   *time.Time `json:"processed_at"`
	CreatedAt     time.Time  `json:"created_at"`
}
