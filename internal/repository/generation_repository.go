package repository

import (
	"errors"

	"github.com/tailorcv/tailorcv-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientCredits means the balance check inside the spend
// transaction failed; nothing was written.
var ErrInsufficientCredits = errors.New("insufficient credits")

type GenerationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// CreateWithSpend checks and decrements the user's balance and inserts the
// generation row in one transaction. The user row is locked so concurrent
// requests cannot both pass the balance check before either decrements.
func (r *GenerationRepository) CreateWithSpend(gen *models.Generation, cost int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, gen.UserID).Error; err != nil {
			return err
		}

		if user.Credits < cost {
			return ErrInsufficientCredits
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", gen.UserID).
			Update("credits", gorm.Expr("credits - ?", cost)).Error; err != nil {
			return err
		}

		gen.CreditsSpent = cost
		return tx.Create(gen).Error
	})
}

func (r *GenerationRepository) CompleteOutput(id uint, output string) error {
	return r.db.Model(&models.Generation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"output": output,
			"status": models.GenerationStatusCompleted,
		}).Error
}

// FailAndRefund marks the generation failed and returns the spent credits in
// the same transaction, so a crashed tailoring run never eats a credit.
func (r *GenerationRepository) FailAndRefund(id uint, userID uint, refund int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Generation{}).
			Where("id = ?", id).
			Update("status", models.GenerationStatusFailed).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("credits", gorm.Expr("credits + ?", refund)).Error
	})
}

func (r *GenerationRepository) GetByID(userID uint, id uint) (*models.Generation, error) {
	var gen models.Generation
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&gen).Error
	return &gen, err
}

func (r *GenerationRepository) GetByUserID(userID uint) ([]models.Generation, error) {
	var gens []models.Generation
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&gens).Error
	return gens, err
}
