package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/modules/settings/dto"
	"anoa.com/yogaschool/internal/modules/settings/repository"
	"anoa.com/yogaschool/pkg/apperror"
	"anoa.com/yogaschool/pkg/storage"
)

const qrFolder = "settings"

type SettingsService interface {
	GetSettings(ctx context.Context) (*entity.Setting, error)
	UploadQRCode(ctx context.Context, file dto.QRCodeFile) (*dto.QRCodeResponse, error)
	DeleteQRCode(ctx context.Context) error
}

type settingsService struct {
	repo        repository.SettingsRepository
	fileStorage storage.FileStorage
	maxBytes    int64
}

func NewSettingsService(repo repository.SettingsRepository, fileStorage storage.FileStorage, maxBytes int64) SettingsService {
	return &settingsService{
		repo:        repo,
		fileStorage: fileStorage,
		maxBytes:    maxBytes,
	}
}

func (s *settingsService) GetSettings(ctx context.Context) (*entity.Setting, error) {
	return s.repo.GetOrCreate(ctx)
}

// UploadQRCode stores a new payment QR image and drops the one it replaces.
func (s *settingsService) UploadQRCode(ctx context.Context, file dto.QRCodeFile) (*dto.QRCodeResponse, error) {
	if !storage.IsImageUpload(file.FileName, file.ContentType) {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "Only image files are allowed")
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return nil, apperror.Wrap(apperror.ErrPayloadTooLarge, fmt.Sprintf("File too large. Maximum size is %dMB", s.maxBytes>>20))
	}

	setting, err := s.repo.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	url, err := s.fileStorage.UploadFile(ctx, file.Reader, qrFolder, "qr"+strings.ToLower(filepath.Ext(file.FileName)))
	if err != nil {
		return nil, fmt.Errorf("upload qr code: %w", err)
	}

	previous := setting.QRCodeURL
	setting.QRCodeURL = &url
	if err := s.repo.Save(ctx, setting); err != nil {
		_ = s.fileStorage.DeleteFile(ctx, url)
		return nil, err
	}

	if previous != nil && *previous != "" {
		if err := s.fileStorage.DeleteFile(ctx, *previous); err != nil {
			log.Printf("[Settings] failed to delete previous qr code %s: %v", *previous, err)
		}
	}

	return &dto.QRCodeResponse{Message: "QR code uploaded successfully", QRCodeURL: url}, nil
}

func (s *settingsService) DeleteQRCode(ctx context.Context) error {
	setting, err := s.repo.GetOrCreate(ctx)
	if err != nil {
		return err
	}
	if setting.QRCodeURL == nil || *setting.QRCodeURL == "" {
		return apperror.Wrap(apperror.ErrNotFound, "No QR code found")
	}

	url := *setting.QRCodeURL
	setting.QRCodeURL = nil
	if err := s.repo.Save(ctx, setting); err != nil {
		return err
	}

	if err := s.fileStorage.DeleteFile(ctx, url); err != nil {
		log.Printf("[Settings] failed to delete qr code file %s: %v", url, err)
	}
	return nil
}
