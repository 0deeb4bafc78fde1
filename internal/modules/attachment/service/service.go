package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/modules/attachment/dto"
	"anoa.com/yogaschool/internal/modules/attachment/repository"
	chatService "anoa.com/yogaschool/internal/modules/chat/service"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	"anoa.com/yogaschool/pkg/apperror"
	"anoa.com/yogaschool/pkg/ratelimiter"
	"anoa.com/yogaschool/pkg/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	uploadFolder = "chat"
	orphanMaxAge = 24 * time.Hour
)

// allowedTypes maps each accepted extension to the mime types a browser sends for it.
var allowedTypes = map[string][]string{
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".webp": {"image/webp"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".txt":  {"text/plain"},
	".zip":  {"application/zip", "application/x-zip-compressed"},
}

var errInvalidFileType = apperror.Wrap(apperror.ErrBadRequest, "Invalid file type. Allowed: images, PDF, DOC, TXT, ZIP")

// FileReferences tells whether a message still points at an uploaded file.
type FileReferences interface {
	HasMessageWithFile(ctx context.Context, fileURL string) (bool, error)
}

type Options struct {
	MaxBytes int64
	Cooldown time.Duration
	Redis    *redis.Client
}

type AttachmentService interface {
	UploadChatFile(ctx context.Context, userID string, file dto.UploadFile) (*dto.UploadResponse, error)
	CleanupOrphanAttachments(ctx context.Context) error
}

type attachmentService struct {
	attachmentRepo repository.AttachmentRepository
	users          userRepo.UserRepository
	references     FileReferences
	fileStorage    storage.FileStorage
	opts           Options
	now            func() time.Time
}

func NewAttachmentService(attachmentRepo repository.AttachmentRepository, users userRepo.UserRepository, references FileReferences, fileStorage storage.FileStorage, opts Options) AttachmentService {
	return &attachmentService{
		attachmentRepo: attachmentRepo,
		users:          users,
		references:     references,
		fileStorage:    fileStorage,
		opts:           opts,
		now:            time.Now,
	}
}

func (s *attachmentService) UploadChatFile(ctx context.Context, userID string, file dto.UploadFile) (*dto.UploadResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "User not found")
		}
		return nil, err
	}
	if !chatService.CanAccessChat(user) {
		return nil, apperror.Wrap(apperror.ErrForbidden, "Admins cannot access chat features")
	}

	mediaType, err := validateType(file.FileName, file.ContentType)
	if err != nil {
		return nil, err
	}
	if s.opts.MaxBytes > 0 && file.Size > s.opts.MaxBytes {
		return nil, apperror.Wrap(apperror.ErrPayloadTooLarge, fmt.Sprintf("File is larger than %dMB", s.opts.MaxBytes>>20))
	}

	if err := ratelimiter.Enforce(ctx, s.opts.Redis, user.ID, "upload", s.opts.Cooldown); err != nil {
		return nil, err
	}

	url, err := s.fileStorage.UploadFile(ctx, file.Reader, uploadFolder, file.FileName)
	if err != nil {
		return nil, fmt.Errorf("upload chat file: %w", err)
	}

	attachment := &entity.Attachment{
		UserID:   user.ID,
		FileURL:  url,
		FileName: file.FileName,
		FileType: mediaType,
		FileSize: file.Size,
	}
	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		_ = s.fileStorage.DeleteFile(ctx, url)
		return nil, err
	}

	messageType := entity.MessageTypeFile
	if strings.HasPrefix(mediaType, "image/") {
		messageType = entity.MessageTypeImage
	}

	return &dto.UploadResponse{
		Success:     true,
		FileURL:     url,
		FileName:    file.FileName,
		FileSize:    file.Size,
		MessageType: messageType,
	}, nil
}

// CleanupOrphanAttachments deletes uploads that no message references a day after upload.
// Files of soft-deleted messages end up here too, since deletion clears fileUrl.
func (s *attachmentService) CleanupOrphanAttachments(ctx context.Context) error {
	candidates, err := s.attachmentRepo.FindCreatedBefore(ctx, s.now().Add(-orphanMaxAge))
	if err != nil {
		return err
	}

	for _, a := range candidates {
		referenced, err := s.references.HasMessageWithFile(ctx, a.FileURL)
		if err != nil {
			return err
		}
		if referenced {
			continue
		}

		if err := s.fileStorage.DeleteFile(ctx, a.FileURL); err != nil {
			log.Printf("[Attachment] failed to delete file %s: %v", a.FileURL, err)
			continue
		}
		if err := s.attachmentRepo.Delete(ctx, a.ID); err != nil {
			log.Printf("[Attachment] failed to delete record %d: %v", a.ID, err)
		}
	}
	return nil
}

// validateType requires both the extension and the declared mime type to be allowed
// and to agree with each other.
func validateType(fileName, contentType string) (string, error) {
	accepted, ok := allowedTypes[strings.ToLower(filepath.Ext(fileName))]
	if !ok {
		return "", errInvalidFileType
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", errInvalidFileType
	}
	for _, t := range accepted {
		if mediaType == t {
			return mediaType, nil
		}
	}
	return "", errInvalidFileType
}
