package repository

import (
	"context"

	"anoa.com/yogaschool/internal/entity"
)

// Repository is the chat store. Multi-step changes (adding members, removing a member and
// collapsing an empty chat) happen atomically inside the implementation.
// Lookups of missing rows return gorm.ErrRecordNotFound, duplicate ids gorm.ErrDuplicatedKey.
type Repository interface {
	CreateChat(ctx context.Context, chat *entity.Chat) error
	FindChatByID(ctx context.Context, id string) (*entity.Chat, error)
	FindChatsByMember(ctx context.Context, userID string) ([]*entity.Chat, error)
	// AddMembers inserts the ids that are not members yet and returns them in input order.
	AddMembers(ctx context.Context, chatID string, userIDs []string) ([]string, error)
	// RemoveMember drops userID from the chat and deletes the chat when nobody is left.
	// It reports whether the chat was deleted.
	RemoveMember(ctx context.Context, chatID, userID string) (bool, error)
	// RemoveUserFromAllChats applies RemoveMember to every chat of the user and returns the deleted chat ids.
	RemoveUserFromAllChats(ctx context.Context, userID string) ([]string, error)
	// DeleteChat removes the chat and its memberships. Messages are kept.
	DeleteChat(ctx context.Context, id string) error

	CreateMessages(ctx context.Context, messages []*entity.Message) error
	FindMessageByID(ctx context.Context, id string) (*entity.Message, error)
	FindMessagesByIDs(ctx context.Context, ids []string) ([]*entity.Message, error)
	FindMessagesByRoom(ctx context.Context, roomID string) ([]*entity.Message, error)
	// UpdateMessageContent persists content, file fields and the deleted flag.
	UpdateMessageContent(ctx context.Context, message *entity.Message) error
	DeleteMessagesBySender(ctx context.Context, senderID string) (int64, error)
	// HasMessageWithFile reports whether any stored message still points at fileURL.
	HasMessageWithFile(ctx context.Context, fileURL string) (bool, error)

	// CountUnread counts messages in the user's current rooms that someone else sent and the
	// user has not read. An empty roomID counts across all rooms.
	CountUnread(ctx context.Context, userID, roomID string) (int64, error)
	// MarkRoomRead adds userID to readBy of every message in the room it did not send.
	MarkRoomRead(ctx context.Context, roomID, userID string) (int64, error)
}
