package repository

import (
	"errors"
	"time"

	"github.com/tailorcv/tailorcv-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) Create(purchase *models.Purchase) error {
	return r.db.Create(purchase).Error
}

func (r *PurchaseRepository) GetBySessionID(sessionID string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.Where("stripe_session_id = ?", sessionID).First(&purchase).Error
	return &purchase, err
}

func (r *PurchaseRepository) GetUserPurchaseHistory(userID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&purchases).Error
	return purchases, err
}

func (r *PurchaseRepository) MarkFailed(sessionID string) error {
	return r.db.Model(&models.Purchase{}).
		Where("stripe_session_id = ? AND status = ?", sessionID, models.PurchaseStatusPending).
		Update("status", models.PurchaseStatusFailed).Error
}

// CompletePurchaseParams carries everything the reconciler resolved from the
// provider event: who gets credited and what the purchase turned out to be.
type CompletePurchaseParams struct {
	UserID          uint
	PlanID          string
	Type            models.PurchaseType
	StripePaymentID string
	AmountTotal     int64
	Currency        string
	Credits         int
	PeriodStart     *time.Time
	PeriodEnd       *time.Time
}

// CompleteWithCredits flips the Purchase for sessionID to completed and
// increments the user's credit balance in one transaction. The purchase row
// is locked for the duration, so a concurrent duplicate delivery serializes
// behind the first and then observes completed. Returns whether credits were
// applied by this call; an already-completed purchase is a no-op, not an
// error.
func (r *PurchaseRepository) CompleteWithCredits(sessionID string, p CompletePurchaseParams) (bool, error) {
	credited := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("stripe_session_id = ?", sessionID).
			First(&purchase).Error

		switch {
		case err == nil:
			if purchase.Status == models.PurchaseStatusCompleted {
				return nil
			}
			purchase.Status = models.PurchaseStatusCompleted
			purchase.StripePaymentID = p.StripePaymentID
			purchase.AmountTotal = p.AmountTotal
			purchase.Currency = p.Currency
			if err := tx.Save(&purchase).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No pending row (e.g. a renewal invoice). The unique constraint
			// on stripe_session_id resolves concurrent creates to one winner;
			// the loser errors out and the provider retry finds a completed
			// row next time.
			purchase = models.Purchase{
				UserID:          p.UserID,
				PlanID:          p.PlanID,
				Type:            p.Type,
				Status:          models.PurchaseStatusCompleted,
				StripeSessionID: sessionID,
				StripePaymentID: p.StripePaymentID,
				AmountTotal:     p.AmountTotal,
				Currency:        p.Currency,
				Credits:         p.Credits,
				PeriodStart:     p.PeriodStart,
				PeriodEnd:       p.PeriodEnd,
			}
			if err := tx.Create(&purchase).Error; err != nil {
				return err
			}
		default:
			return err
		}

		updates := map[string]interface{}{
			"credits": gorm.Expr("credits + ?", p.Credits),
		}
		if p.Type != models.PurchaseTypeCredits {
			updates["subscription_status"] = models.CustomerStatusActive
			updates["subscription_plan"] = p.PlanID
			updates["subscription_ends_at"] = p.PeriodEnd
		}
		if err := tx.Model(&models.User{}).Where("id = ?", p.UserID).Updates(updates).Error; err != nil {
			return err
		}

		credited = true
		return nil
	})

	return credited, err
}
