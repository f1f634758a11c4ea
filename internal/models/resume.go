package models

import "time"

type Resume struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	PublicID   string    `json:"id" gorm:"type:uuid;unique;not null"`
	UserID     uint      `json:"-" gorm:"not null;index"`
	Title      string    `json:"title" gorm:"not null"`
	Content    string    `json:"content" gorm:"type:text"`
	StorageKey string    `json:"-"`
	MimeType   string    `json:"mime_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateResumeRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type UpdateResumeRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}
