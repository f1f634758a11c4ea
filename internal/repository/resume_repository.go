package repository

import (
	"github.com/tailorcv/tailorcv-backend/internal/models"
	"gorm.io/gorm"
)

type ResumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

func (r *ResumeRepository) Create(resume *models.Resume) error {
	return r.db.Create(resume).Error
}

func (r *ResumeRepository) GetByPublicID(userID uint, publicID string) (*models.Resume, error) {
	var resume models.Resume
	err := r.db.Where("user_id = ? AND public_id = ?", userID, publicID).First(&resume).Error
	return &resume, err
}

func (r *ResumeRepository) GetByUserID(userID uint) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error
	return resumes, err
}

func (r *ResumeRepository) Update(resume *models.Resume) error {
	return r.db.Save(resume).Error
}

func (r *ResumeRepository) Delete(userID uint, publicID string) error {
	return r.db.Where("user_id = ? AND public_id = ?", userID, publicID).
		Delete(&models.Resume{}).Error
}
