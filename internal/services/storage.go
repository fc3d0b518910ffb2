package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StorageService keeps uploaded resumes on disk between submission and
// processing.
type StorageService interface {
	SaveBytes(data []byte, fileName string, batchID uuid.UUID) (string, error)
	Read(storedName string) ([]byte, error)
	GetFilePath(storedName string) string
	DeleteFile(storedName string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) SaveBytes(data []byte, fileName string, batchID uuid.UUID) (string, error) {
	storedName := storedFileName(batchID, fileName)
	if err := os.WriteFile(s.GetFilePath(storedName), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return storedName, nil
}

func (s *storageService) Read(storedName string) ([]byte, error) {
	data, err := os.ReadFile(s.GetFilePath(storedName))
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return data, nil
}

func (s *storageService) GetFilePath(storedName string) string {
	return filepath.Join(s.uploadPath, filepath.Base(storedName))
}

func (s *storageService) DeleteFile(storedName string) error {
	if err := os.Remove(s.GetFilePath(storedName)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// storedFileName never reuses the client's name on disk; the original name
// is only kept as an extension hint.
func storedFileName(batchID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("%s_%s%s", batchID, uuid.New(), ext)
}
