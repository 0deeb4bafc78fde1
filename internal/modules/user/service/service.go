package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/modules/user/dto"
	"anoa.com/yogaschool/internal/modules/user/repository"
	"anoa.com/yogaschool/pkg/apperror"
	"anoa.com/yogaschool/pkg/storage"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = apperror.Wrap(apperror.ErrUnauthorized, "Invalid credentials")

type AuthService interface {
	Signup(ctx context.Context, input dto.SignupInput) (*entity.User, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	VerifyEmail(ctx context.Context, input dto.VerifyEmailInput) (*dto.SecurityQuestionResponse, error)
	ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error
	UpdateProfileImage(ctx context.Context, userID string, image dto.ImageFile) (*entity.User, error)
}

type authService struct {
	repo          repository.UserRepository
	fileStorage   storage.FileStorage
	secret        string
	tokenTTL      time.Duration
	maxImageBytes int64
}

func NewAuthService(repo repository.UserRepository, fileStorage storage.FileStorage, secret string, tokenTTL time.Duration, maxImageBytes int64) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		repo:          repo,
		fileStorage:   fileStorage,
		secret:        secret,
		tokenTTL:      tokenTTL,
		maxImageBytes: maxImageBytes,
	}
}

func (s *authService) Signup(ctx context.Context, input dto.SignupInput) (*entity.User, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "Name is required")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperror.Wrap(apperror.ErrConflict, "User already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	answerHash, err := bcrypt.GenerateFromPassword([]byte(normalizeAnswer(input.SecurityAnswer)), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash security answer: %w", err)
	}

	user := &entity.User{
		Name:               name,
		Email:              email,
		PasswordHash:       string(passwordHash),
		SecurityQuestion:   strings.TrimSpace(input.SecurityQuestion),
		SecurityAnswerHash: string(answerHash),
	}

	if err := s.repo.Register(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Wrap(apperror.ErrConflict, "User already exists")
		}
		return nil, err
	}

	log.Printf("[Auth] registered %s as %s", user.Email, user.Role)
	return user, nil
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.buildAuthResponse(user)
}

func (s *authService) VerifyEmail(ctx context.Context, input dto.VerifyEmailInput) (*dto.SecurityQuestionResponse, error) {
	user, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	return &dto.SecurityQuestionResponse{SecurityQuestion: user.SecurityQuestion}, nil
}

func (s *authService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	user, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.SecurityAnswerHash), []byte(normalizeAnswer(input.SecurityAnswer))); err != nil {
		return apperror.Wrap(apperror.ErrUnauthorized, "Incorrect security answer")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	return s.repo.Update(ctx, user)
}

func (s *authService) UpdateProfileImage(ctx context.Context, userID string, image dto.ImageFile) (*entity.User, error) {
	if !storage.IsImageUpload(image.FileName, image.ContentType) {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "Only image files are allowed")
	}
	if s.maxImageBytes > 0 && image.Size > s.maxImageBytes {
		return nil, apperror.Wrap(apperror.ErrPayloadTooLarge, "Image is too large")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "User not found")
		}
		return nil, err
	}

	url, err := s.fileStorage.UploadFile(ctx, image.Reader, "avatars", image.FileName)
	if err != nil {
		return nil, fmt.Errorf("upload profile image: %w", err)
	}

	previous := user.ProfileImage
	user.ProfileImage = &url
	if err := s.repo.Update(ctx, user); err != nil {
		_ = s.fileStorage.DeleteFile(ctx, url)
		return nil, err
	}

	if previous != nil && *previous != "" {
		if err := s.fileStorage.DeleteFile(ctx, *previous); err != nil {
			log.Printf("[Auth] failed to delete old profile image of %s: %v", user.ID, err)
		}
	}

	return user, nil
}

func (s *authService) findByEmail(ctx context.Context, email string) (*entity.User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Answers are compared case-insensitively so "Mysore" and "mysore " both pass.
func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

