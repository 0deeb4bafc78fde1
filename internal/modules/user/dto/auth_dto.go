package dto

import (
	"io"

	"anoa.com/yogaschool/internal/entity"
)

// ImageFile is an uploaded image handed from the handler to the service.
type ImageFile struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

type SignupInput struct {
	Name             string `json:"name" binding:"required,max=100"`
	Email            string `json:"email" binding:"required,email,max=100"`
	Password         string `json:"password" binding:"required,min=6,max=72"`
	SecurityQuestion string `json:"securityQuestion" binding:"required,max=255"`
	SecurityAnswer   string `json:"securityAnswer" binding:"required,max=255"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailInput struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordInput struct {
	Email          string `json:"email" binding:"required,email"`
	SecurityAnswer string `json:"securityAnswer" binding:"required"`
	NewPassword    string `json:"newPassword" binding:"required,min=6,max=72"`
}

type SecurityQuestionResponse struct {
	SecurityQuestion string `json:"securityQuestion"`
}

type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresIn   int64        `json:"expiresIn"`
	User        *entity.User `json:"user"`
}
