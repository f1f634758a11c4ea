package models

import "time"

type GenerationStatus string

const (
	GenerationStatusPending   GenerationStatus = "pending"
	GenerationStatusCompleted GenerationStatus = "completed"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// Generation is one tailoring run. Credits are spent when the row is created
// and refunded if the run fails.
type Generation struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	UserID         uint             `json:"-" gorm:"not null;index"`
	ResumeID       uint             `json:"resume_id" gorm:"not null"`
	JobDescription string           `json:"job_description" gorm:"type:text;not null"`
	Output         string           `json:"output" gorm:"type:text"`
	Status         GenerationStatus `json:"status" gorm:"not null;default:'pending'"`
	CreditsSpent   int              `json:"credits_spent" gorm:"not null"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type GenerateRequest struct {
	ResumeID       string `json:"resume_id" validate:"required,uuid4"`
	JobDescription string `json:"job_description" validate:"required"`
}
