package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/modules/chat/dto"
	"anoa.com/yogaschool/internal/modules/chat/repository"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	"anoa.com/yogaschool/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// directMessageFallbackName is shown when the other side of a DM no longer exists.
const directMessageFallbackName = "Direct Message"

type RoomService interface {
	ListDirectory(ctx context.Context) ([]dto.UserSummary, error)
	CreateGroup(ctx context.Context, name string, memberIDs []string, creatorID string) (*entity.Chat, error)
	DeleteGroup(ctx context.Context, groupID, userID string) error
	LeaveGroup(ctx context.Context, groupID, userID string) (bool, error)
	AddMembers(ctx context.Context, groupID, actorID string, newMemberIDs []string) (*dto.AddMembersResponse, error)
	GetGroup(ctx context.Context, groupID string) (*dto.GroupDetail, error)
	CreateOrGetDM(ctx context.Context, userID1, userID2 string) (*entity.Chat, error)
	ListMyChats(ctx context.Context, userID string) ([]*entity.Chat, error)
}

type roomService struct {
	repo  repository.Repository
	users userRepo.UserRepository
}

func NewRoomService(repo repository.Repository, users userRepo.UserRepository) RoomService {
	return &roomService{repo: repo, users: users}
}

func (s *roomService) ListDirectory(ctx context.Context) ([]dto.UserSummary, error) {
	users, err := s.users.FindAllExceptRole(ctx, entity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, dto.NewUserSummary(u))
	}
	return summaries, nil
}

func (s *roomService) CreateGroup(ctx context.Context, name string, memberIDs []string, creatorID string) (*entity.Chat, error) {
	if _, err := requireChatUser(ctx, s.users, creatorID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "Group name is required")
	}

	members := []string{creatorID}
	for _, id := range memberIDs {
		if id = strings.TrimSpace(id); id != "" && !containsID(members, id) {
			members = append(members, id)
		}
	}

	creator := creatorID
	group := &entity.Chat{
		ID:        uuid.NewString(),
		Name:      name,
		IsGroup:   true,
		CreatedBy: &creator,
		Members:   members,
	}
	if err := s.repo.CreateChat(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

func (s *roomService) DeleteGroup(ctx context.Context, groupID, userID string) error {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return err
	}

	user, err := findUser(ctx, s.users, userID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	if user != nil && !CanAccessChat(user) {
		return apperror.Wrap(apperror.ErrForbidden, "Admins cannot delete groups")
	}
	if !group.CreatedByUser(userID) {
		return apperror.Wrap(apperror.ErrForbidden, "Only the group creator can delete this group")
	}

	if err := s.repo.DeleteChat(ctx, groupID); err != nil {
		return notFoundAs(err, errGroupNotFound)
	}
	return nil
}

func (s *roomService) LeaveGroup(ctx context.Context, groupID, userID string) (bool, error) {
	if _, err := requireChatUser(ctx, s.users, userID); err != nil {
		return false, err
	}
	if _, err := s.findGroup(ctx, groupID); err != nil {
		return false, err
	}

	collapsed, err := s.repo.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return false, notFoundAs(err, errGroupNotFound)
	}
	return collapsed, nil
}

func (s *roomService) AddMembers(ctx context.Context, groupID, actorID string, newMemberIDs []string) (*dto.AddMembersResponse, error) {
	var candidates []string
	for _, id := range newMemberIDs {
		if id = strings.TrimSpace(id); id != "" {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "No members selected")
	}

	if _, err := requireChatUser(ctx, s.users, actorID); err != nil {
		return nil, err
	}

	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.CreatedByUser(actorID) {
		return nil, apperror.Wrap(apperror.ErrForbidden, "Only the group creator can add members")
	}

	// The store filters out existing members atomically, so concurrent adds cannot duplicate.
	added, err := s.repo.AddMembers(ctx, groupID, candidates)
	if err != nil {
		return nil, notFoundAs(err, errGroupNotFound)
	}
	if len(added) == 0 {
		return nil, apperror.Wrap(apperror.ErrNoOp, "All selected members are already in the group")
	}

	group, err = s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return &dto.AddMembersResponse{
		Message:    fmt.Sprintf("%d member(s) added successfully", len(added)),
		Group:      group,
		AddedCount: len(added),
	}, nil
}

func (s *roomService) GetGroup(ctx context.Context, groupID string) (*dto.GroupDetail, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	members, err := s.users.FindByIDs(ctx, group.Members)
	if err != nil {
		return nil, err
	}

	details := make([]dto.UserSummary, 0, len(members))
	for _, m := range members {
		details = append(details, dto.NewUserSummary(m))
	}
	return &dto.GroupDetail{Chat: group, MemberDetails: details}, nil
}

func (s *roomService) CreateOrGetDM(ctx context.Context, userID1, userID2 string) (*entity.Chat, error) {
	user1, err := requireChatUser(ctx, s.users, userID1)
	if err != nil {
		return nil, err
	}
	user2, err := findUser(ctx, s.users, userID2)
	if err != nil {
		return nil, err
	}
	if !isTeacherStudentPair(user1, user2) {
		return nil, apperror.Wrap(apperror.ErrForbidden, "Direct messages are only allowed between a teacher and a student")
	}

	roomID := DMRoomID(user1.ID, user2.ID)
	existing, err := s.repo.FindChatByID(ctx, roomID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	creator := user1.ID
	dm := &entity.Chat{
		ID:        roomID,
		Name:      user2.Name,
		IsGroup:   false,
		CreatedBy: &creator,
		Members:   []string{user1.ID, user2.ID},
	}
	if err := s.repo.CreateChat(ctx, dm); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another request created the room first.
			return s.repo.FindChatByID(ctx, roomID)
		}
		return nil, fmt.Errorf("create direct message: %w", err)
	}
	return dm, nil
}

func (s *roomService) ListMyChats(ctx context.Context, userID string) ([]*entity.Chat, error) {
	if _, err := requireChatUser(ctx, s.users, userID); err != nil {
		return nil, err
	}

	chats, err := s.repo.FindChatsByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	groups := make([]*entity.Chat, 0, len(chats))
	dms := make([]*entity.Chat, 0)
	var counterpartIDs []string
	for _, c := range chats {
		if c.IsGroup {
			groups = append(groups, c)
			continue
		}
		for _, m := range c.Members {
			if m != userID {
				c.OtherUserID = m
				counterpartIDs = append(counterpartIDs, m)
				break
			}
		}
		dms = append(dms, c)
	}

	counterparts, err := s.users.FindByIDs(ctx, counterpartIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(counterparts))
	for _, u := range counterparts {
		names[u.ID] = u.Name
	}

	// DM names are always the live name of the other participant.
	for _, dm := range dms {
		if name, ok := names[dm.OtherUserID]; ok {
			dm.Name = name
		} else {
			dm.Name = directMessageFallbackName
		}
	}

	return append(groups, dms...), nil
}

func (s *roomService) findGroup(ctx context.Context, groupID string) (*entity.Chat, error) {
	group, err := s.repo.FindChatByID(ctx, groupID)
	if err != nil {
		return nil, notFoundAs(err, errGroupNotFound)
	}
	if !group.IsGroup {
		return nil, errGroupNotFound
	}
	return group, nil
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
