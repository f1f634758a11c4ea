package service

import (
	"context"
	"fmt"

	"github.com/tailorcv/tailorcv-backend/internal/models"
	"go.uber.org/zap"
)

// GenerationCost is the credit price of one tailoring run.
const GenerationCost = 1

type LLMClient interface {
	TailorResume(ctx context.Context, resumeText, jobDescription string) (string, error)
}

type GenerationStore interface {
	CreateWithSpend(gen *models.Generation, cost int) error
	CompleteOutput(id uint, output string) error
	FailAndRefund(id uint, userID uint, refund int) error
	GetByID(userID uint, id uint) (*models.Generation, error)
	GetByUserID(userID uint) ([]models.Generation, error)
}

type ResumeStore interface {
	GetByPublicID(userID uint, publicID string) (*models.Resume, error)
}

type GenerationService struct {
	generations GenerationStore
	resumes     ResumeStore
	llm         LLMClient
	logger      *zap.Logger
}

func NewGenerationService(generations GenerationStore, resumes ResumeStore, llm LLMClient, logger *zap.Logger) *GenerationService {
	return &GenerationService{
		generations: generations,
		resumes:     resumes,
		llm:         llm,
		logger:      logger,
	}
}

// Generate spends one credit and runs the tailoring model against the
// resume. The spend is check-and-decrement in a single transaction, so
// concurrent requests cannot both pass the balance check; a failed run
// refunds the credit.
func (s *GenerationService) Generate(ctx context.Context, userID uint, req models.GenerateRequest) (*models.Generation, error) {
	resume, err := s.resumes.GetByPublicID(userID, req.ResumeID)
	if err != nil {
		return nil, err
	}

	gen := &models.Generation{
		UserID:         userID,
		ResumeID:       resume.ID,
		JobDescription: req.JobDescription,
		Status:         models.GenerationStatusPending,
	}
	if err := s.generations.CreateWithSpend(gen, GenerationCost); err != nil {
		return nil, err
	}

	output, err := s.llm.TailorResume(ctx, resume.Content, req.JobDescription)
	if err != nil {
		s.logger.Error("tailoring run failed",
			zap.Uint("generation_id", gen.ID),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		if refundErr := s.generations.FailAndRefund(gen.ID, userID, GenerationCost); refundErr != nil {
			s.logger.Error("credit refund failed",
				zap.Uint("generation_id", gen.ID),
				zap.Error(refundErr),
			)
		}
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	if err := s.generations.CompleteOutput(gen.ID, output); err != nil {
		return nil, err
	}

	gen.Output = output
	gen.Status = models.GenerationStatusCompleted
	return gen, nil
}

func (s *GenerationService) GetGeneration(userID uint, id uint) (*models.Generation, error) {
	return s.generations.GetByID(userID, id)
}

func (s *GenerationService) GetUserGenerations(userID uint) ([]models.Generation, error) {
	return s.generations.GetByUserID(userID)
}
