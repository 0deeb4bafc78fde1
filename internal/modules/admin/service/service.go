package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/modules/admin/dto"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	"anoa.com/yogaschool/pkg/apperror"
	"gorm.io/gorm"
)

// ChatCleaner removes what a deleted account leaves behind in the chat store.
type ChatCleaner interface {
	RemoveUserFromAllChats(ctx context.Context, userID string) ([]string, error)
	DeleteMessagesBySender(ctx context.Context, senderID string) (int64, error)
}

type AdminService interface {
	ListUsers(ctx context.Context) ([]*entity.User, error)
	DeleteUser(ctx context.Context, adminID, userID string) (*dto.DeleteUserResponse, error)
}

type adminService struct {
	users userRepo.UserRepository
	chats ChatCleaner
}

func NewAdminService(users userRepo.UserRepository, chats ChatCleaner) AdminService {
	return &adminService{users: users, chats: chats}
}

func (s *adminService) ListUsers(ctx context.Context) ([]*entity.User, error) {
	return s.users.FindAll(ctx)
}

// DeleteUser removes the account together with its memberships and authored messages.
// Chats left without members are deleted by the chat store.
func (s *adminService) DeleteUser(ctx context.Context, adminID, userID string) (*dto.DeleteUserResponse, error) {
	if userID == adminID {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "Cannot delete your own account")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "User not found")
		}
		return nil, err
	}

	removedChats, err := s.chats.RemoveUserFromAllChats(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("remove chat memberships: %w", err)
	}
	deletedMessages, err := s.chats.DeleteMessagesBySender(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("delete messages: %w", err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "User not found")
		}
		return nil, err
	}

	log.Printf("[Admin] user %s deleted by %s (%d messages, %d empty chats removed)", user.ID, adminID, deletedMessages, len(removedChats))

	return &dto.DeleteUserResponse{
		Message: "User deleted successfully",
		DeletedUser: dto.DeletedUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
	}, nil
}
