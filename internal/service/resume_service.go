package service

import (
	"fmt"
	"mime/multipart"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/tailorcv/tailorcv-backend/internal/models"
	"github.com/tailorcv/tailorcv-backend/internal/repository"
	"github.com/tailorcv/tailorcv-backend/pkg/storage"
)

type ResumeService struct {
	resumeRepo *repository.ResumeRepository
	files      storage.StorageService
}

func NewResumeService(resumeRepo *repository.ResumeRepository, files storage.StorageService) *ResumeService {
	return &ResumeService{
		resumeRepo: resumeRepo,
		files:      files,
	}
}

func (s *ResumeService) CreateResume(userID uint, req models.CreateResumeRequest) (*models.Resume, error) {
	resume := &models.Resume{
		PublicID: uuid.NewString(),
		UserID:   userID,
		Title:    req.Title,
		Content:  req.Content,
	}
	if err := s.resumeRepo.Create(resume); err != nil {
		return nil, err
	}
	return resume, nil
}

// AttachFile stores the original uploaded document in R2 next to the
// extracted text. Text extraction happens upstream; the backend treats the
// document as an opaque blob.
func (s *ResumeService) AttachFile(userID uint, publicID string, fileHeader *multipart.FileHeader, mimeType string) (*models.Resume, error) {
	resume, err := s.resumeRepo.GetByPublicID(userID, publicID)
	if err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	key := fmt.Sprintf("resumes/%s/original%s", resume.PublicID, filepath.Ext(fileHeader.Filename))
	if err := s.files.Upload(key, file); err != nil {
		return nil, err
	}

	resume.StorageKey = key
	resume.MimeType = mimeType
	if err := s.resumeRepo.Update(resume); err != nil {
		return nil, err
	}
	return resume, nil
}

func (s *ResumeService) GetResume(userID uint, publicID string) (*models.Resume, error) {
	return s.resumeRepo.GetByPublicID(userID, publicID)
}

func (s *ResumeService) GetUserResumes(userID uint) ([]models.Resume, error) {
	return s.resumeRepo.GetByUserID(userID)
}

func (s *ResumeService) UpdateResume(userID uint, publicID string, req models.UpdateResumeRequest) (*models.Resume, error) {
	resume, err := s.resumeRepo.GetByPublicID(userID, publicID)
	if err != nil {
		return nil, err
	}

	resume.Title = req.Title
	resume.Content = req.Content
	if err := s.resumeRepo.Update(resume); err != nil {
		return nil, err
	}
	return resume, nil
}

func (s *ResumeService) DeleteResume(userID uint, publicID string) error {
	resume, err := s.resumeRepo.GetByPublicID(userID, publicID)
	if err != nil {
		return err
	}

	if err := s.resumeRepo.Delete(userID, publicID); err != nil {
		return err
	}

	// Object cleanup is best effort.
	if resume.StorageKey != "" {
		_ = s.files.Delete(resume.StorageKey)
	}
	return nil
}
