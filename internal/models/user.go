package models

import (
	"database/sql/driver"
	"time"
)

// CustomerStatus is the local view of the billing provider's subscription state.
type CustomerStatus string

const (
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusCanceled CustomerStatus = "canceled"
	CustomerStatusExpired  CustomerStatus = "expired"
)

// Scan implements sql.Scanner interface
func (s *CustomerStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = CustomerStatus(v)
	case []byte:
		*s = CustomerStatus(v)
	default:
		*s = CustomerStatusInactive
	}
	return nil
}

// Value implements driver.Valuer interface
func (s CustomerStatus) Value() (driver.Value, error) {
	return string(s), nil
}

type User struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	FullName           string         `json:"full_name" gorm:"not null"`
	Email              string         `json:"email" gorm:"unique;not null"`
	Password           string         `json:"-" gorm:"not null"`
	Credits            int            `json:"credits" gorm:"not null;default:3"`
	SubscriptionStatus CustomerStatus `json:"subscription_status" gorm:"not null;default:'inactive'"`
	SubscriptionPlan   string         `json:"subscription_plan"`
	SubscriptionEndsAt *time.Time     `json:"subscription_ends_at"`
	StripeCustomerID   string         `json:"-" gorm:"index"`
	IsVerified         bool           `json:"is_verified" gorm:"default:false"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
