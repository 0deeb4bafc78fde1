package service

import (
	"context"

	"anoa.com/yogaschool/internal/modules/chat/repository"
)

// UnreadTracker derives unread state from readBy and current membership on every call.
type UnreadTracker interface {
	UnreadCount(ctx context.Context, userID string) (int64, error)
	RoomUnreadCount(ctx context.Context, roomID, userID string) (int64, error)
	MarkRoomRead(ctx context.Context, roomID, userID string) error
}

type unreadTracker struct {
	repo repository.Repository
}

func NewUnreadTracker(repo repository.Repository) UnreadTracker {
	return &unreadTracker{repo: repo}
}

func (t *unreadTracker) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errUserRequired
	}
	return t.repo.CountUnread(ctx, userID, "")
}

func (t *unreadTracker) RoomUnreadCount(ctx context.Context, roomID, userID string) (int64, error) {
	if userID == "" {
		return 0, errUserRequired
	}
	return t.repo.CountUnread(ctx, userID, roomID)
}

func (t *unreadTracker) MarkRoomRead(ctx context.Context, roomID, userID string) error {
	if userID == "" {
		return errUserRequired
	}
	_, err := t.repo.MarkRoomRead(ctx, roomID, userID)
	return err
}
