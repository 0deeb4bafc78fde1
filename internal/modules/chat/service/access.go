package service

import (
	"context"
	"errors"
	"sort"

	"anoa.com/yogaschool/internal/entity"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	"anoa.com/yogaschool/pkg/apperror"
	"gorm.io/gorm"
)

var (
	errAdminNoChat     = apperror.Wrap(apperror.ErrForbidden, "Admins cannot access chat features")
	errUserRequired    = apperror.Wrap(apperror.ErrBadRequest, "User ID is required")
	errUserNotFound    = apperror.Wrap(apperror.ErrNotFound, "User not found")
	errGroupNotFound   = apperror.Wrap(apperror.ErrNotFound, "Group not found")
	errChatNotFound    = apperror.Wrap(apperror.ErrNotFound, "Chat not found")
	errMessageNotFound = apperror.Wrap(apperror.ErrNotFound, "Message not found")
)

// CanAccessChat is the single capability check for chat features. Admins administer the
// school but never take part in conversations.
func CanAccessChat(user *entity.User) bool {
	return user != nil && user.Role != entity.RoleAdmin
}

// DMRoomID is the deterministic room id of the direct conversation between two users.
func DMRoomID(userID1, userID2 string) string {
	ids := []string{userID1, userID2}
	sort.Strings(ids)
	return "dm_" + ids[0] + "_" + ids[1]
}

// isTeacherStudentPair reports whether the two users are exactly one teacher and one student.
func isTeacherStudentPair(a, b *entity.User) bool {
	return (a.Role == entity.RoleTeacher && b.Role == entity.RoleStudent) ||
		(a.Role == entity.RoleStudent && b.Role == entity.RoleTeacher)
}

func findUser(ctx context.Context, users userRepo.UserRepository, userID string) (*entity.User, error) {
	if userID == "" {
		return nil, errUserRequired
	}
	user, err := users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// requireChatUser loads the user and applies CanAccessChat.
func requireChatUser(ctx context.Context, users userRepo.UserRepository, userID string) (*entity.User, error) {
	user, err := findUser(ctx, users, userID)
	if err != nil {
		return nil, err
	}
	if !CanAccessChat(user) {
		return nil, errAdminNoChat
	}
	return user, nil
}

func notFoundAs(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
