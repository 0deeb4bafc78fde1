package dto

import "anoa.com/yogaschool/internal/entity"

type CreateGroupRequest struct {
	Name      string   `json:"name" binding:"required,max=150"`
	Members   []string `json:"members"`
	CreatedBy string   `json:"createdBy"`
}

// ActorRequest carries the acting user for delete/leave/mark-read calls.
type ActorRequest struct {
	UserID string `json:"userId"`
}

type AddMembersRequest struct {
	UserID     string   `json:"userId"`
	NewMembers []string `json:"newMembers"`
}

type CreateDMRequest struct {
	UserID1 string `json:"userId1"`
	UserID2 string `json:"userId2" binding:"required"`
}

type ForwardMessageRequest struct {
	MessageID     string   `json:"messageId" binding:"required"`
	TargetChatIDs []string `json:"targetChatIds"`
	UserID        string   `json:"userId"`
}

// UserSummary is the public directory view of a user.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func NewUserSummary(u *entity.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type GroupDetail struct {
	*entity.Chat
	MemberDetails []UserSummary `json:"memberDetails"`
}

type AddMembersResponse struct {
	Message    string       `json:"message"`
	Group      *entity.Chat `json:"group"`
	AddedCount int          `json:"addedCount"`
}

type ForwardMessageResponse struct {
	Success           bool              `json:"success"`
	ForwardedMessages []*entity.Message `json:"forwardedMessages"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unreadCount"`
}
