package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tailorcv/tailorcv-backend/internal/models"
	"github.com/tailorcv/tailorcv-backend/internal/repository"
	"github.com/tailorcv/tailorcv-backend/internal/service"
)

type MockGenerationStore struct {
	mock.Mock
}

func (m *MockGenerationStore) CreateWithSpend(gen *models.Generation, cost int) error {
	args := m.Called(gen, cost)
	return args.Error(0)
}

func (m *MockGenerationStore) CompleteOutput(id uint, output string) error {
	args := m.Called(id, output)
	return args.Error(0)
}

func (m *MockGenerationStore) FailAndRefund(id uint, userID uint, refund int) error {
	args := m.Called(id, userID, refund)
	return args.Error(0)
}

func (m *MockGenerationStore) GetByID(userID uint, id uint) (*models.Generation, error) {
	args := m.Called(userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Generation), args.Error(1)
}

func (m *MockGenerationStore) GetByUserID(userID uint) ([]models.Generation, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Generation), args.Error(1)
}

type MockResumeStore struct {
	mock.Mock
}

func (m *MockResumeStore) GetByPublicID(userID uint, publicID string) (*models.Resume, error) {
	args := m.Called(userID, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Resume), args.Error(1)
}

type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) TailorResume(ctx context.Context, resumeText, jobDescription string) (string, error) {
	args := m.Called(ctx, resumeText, jobDescription)
	return args.String(0), args.Error(1)
}

func TestGenerate(t *testing.T) {
	req := models.GenerateRequest{
		ResumeID:       "6f1c9f2e-9b1a-4f6e-8c2d-0a1b2c3d4e5f",
		JobDescription: "Senior Go engineer, payments team",
	}
	resume := &models.Resume{ID: 7, UserID: 1, Content: "experienced backend engineer"}

	t.Run("spends a credit and returns the tailored output", func(t *testing.T) {
		generations := new(MockGenerationStore)
		resumes := new(MockResumeStore)
		llm := new(MockLLMClient)
		svc := service.NewGenerationService(generations, resumes, llm, zap.NewNop())

		resumes.On("GetByPublicID", uint(1), req.ResumeID).Return(resume, nil)
		generations.On("CreateWithSpend", mock.AnythingOfType("*models.Generation"), service.GenerationCost).
			Run(func(args mock.Arguments) {
				args.Get(0).(*models.Generation).ID = 42
			}).
			Return(nil)
		llm.On("TailorResume", mock.Anything, resume.Content, req.JobDescription).
			Return("tailored resume", nil)
		generations.On("CompleteOutput", uint(42), "tailored resume").Return(nil)

		gen, err := svc.Generate(context.Background(), 1, req)

		require.NoError(t, err)
		assert.Equal(t, "tailored resume", gen.Output)
		assert.Equal(t, models.GenerationStatusCompleted, gen.Status)
		generations.AssertExpectations(t)
	})

	t.Run("insufficient credits stops before the model call", func(t *testing.T) {
		generations := new(MockGenerationStore)
		resumes := new(MockResumeStore)
		llm := new(MockLLMClient)
		svc := service.NewGenerationService(generations, resumes, llm, zap.NewNop())

		resumes.On("GetByPublicID", uint(1), req.ResumeID).Return(resume, nil)
		generations.On("CreateWithSpend", mock.Anything, service.GenerationCost).
			Return(repository.ErrInsufficientCredits)

		_, err := svc.Generate(context.Background(), 1, req)

		assert.ErrorIs(t, err, repository.ErrInsufficientCredits)
		llm.AssertNotCalled(t, "TailorResume", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("model failure refunds the credit", func(t *testing.T) {
		generations := new(MockGenerationStore)
		resumes := new(MockResumeStore)
		llm := new(MockLLMClient)
		svc := service.NewGenerationService(generations, resumes, llm, zap.NewNop())

		resumes.On("GetByPublicID", uint(1), req.ResumeID).Return(resume, nil)
		generations.On("CreateWithSpend", mock.AnythingOfType("*models.Generation"), service.GenerationCost).
			Run(func(args mock.Arguments) {
				args.Get(0).(*models.Generation).ID = 42
			}).
			Return(nil)
		llm.On("TailorResume", mock.Anything, resume.Content, req.JobDescription).
			Return("", assert.AnError)
		generations.On("FailAndRefund", uint(42), uint(1), service.GenerationCost).Return(nil)

		_, err := svc.Generate(context.Background(), 1, req)

		require.Error(t, err)
		generations.AssertCalled(t, "FailAndRefund", uint(42), uint(1), service.GenerationCost)
		generations.AssertNotCalled(t, "CompleteOutput", mock.Anything, mock.Anything)
	})

	t.Run("unknown resume", func(t *testing.T) {
		generations := new(MockGenerationStore)
		resumes := new(MockResumeStore)
		llm := new(MockLLMClient)
		svc := service.NewGenerationService(generations, resumes, llm, zap.NewNop())

		resumes.On("GetByPublicID", uint(1), req.ResumeID).Return(nil, gorm.ErrRecordNotFound)

		_, err := svc.Generate(context.Background(), 1, req)

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		generations.AssertNotCalled(t, "CreateWithSpend", mock.Anything, mock.Anything)
	})
}
