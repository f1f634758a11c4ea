package repository

import (
	"time"

	"github.com/tailorcv/tailorcv-backend/internal/models"
	"gorm.io/gorm"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

func (r *WebhookEventRepository) GetByEventID(eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.Where("stripe_event_id = ?", eventID).First(&event).Error
	return &event, err
}

func (r *WebhookEventRepository) MarkProcessed(eventID string) error {
	now := time.Now()
	return r.db.Model(&models.WebhookEvent{}).
		Where("stripe_event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": now,
		}).Error
}
