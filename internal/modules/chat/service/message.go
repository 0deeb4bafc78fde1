package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/modules/chat/repository"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	"anoa.com/yogaschool/pkg/apperror"
	"anoa.com/yogaschool/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	maxContentLength  = 4000
	searchResultLimit = 50
)

// ForwardPolicy decides whether forwarding checks membership of the target rooms.
type ForwardPolicy string

const (
	// ForwardAnywhere lets a user share a message into any existing room.
	ForwardAnywhere ForwardPolicy = "anywhere"
	// ForwardMembersOnly requires the forwarder to be a member of every target room.
	ForwardMembersOnly ForwardPolicy = "members"
)

// MessageIndex is an optional full-text index over message content.
type MessageIndex interface {
	IndexMessages(ctx context.Context, messages []*entity.Message) error
	RemoveMessage(ctx context.Context, messageID string) error
	SearchMessageIDs(ctx context.Context, query string, roomIDs []string, limit int) ([]string, error)
}

type SendMessageInput struct {
	RoomID      string
	SenderID    string
	Content     string
	MessageType string
	FileURL     *string
	FileName    *string
}

// SentMessage is a persisted message plus the members to notify about it.
type SentMessage struct {
	Message    *entity.Message
	Recipients []string
}

type MessageOptions struct {
	ForwardPolicy ForwardPolicy
	SendCooldown  time.Duration
	Redis         *redis.Client
	Index         MessageIndex
}

type MessageService interface {
	SendMessage(ctx context.Context, input SendMessageInput) (*SentMessage, error)
	FetchMessages(ctx context.Context, roomID, userID string) ([]*entity.Message, error)
	GetMessage(ctx context.Context, messageID string) (*entity.Message, error)
	DeleteMessage(ctx context.Context, messageID, userID string) (*entity.Message, error)
	ForwardMessage(ctx context.Context, messageID string, targetRoomIDs []string, userID string) ([]*entity.Message, error)
	SearchMessages(ctx context.Context, userID, query string) ([]*entity.Message, error)
}

type messageService struct {
	repo  repository.Repository
	users userRepo.UserRepository
	opts  MessageOptions
	now   func() time.Time
}

func NewMessageService(repo repository.Repository, users userRepo.UserRepository, opts MessageOptions) MessageService {
	if opts.ForwardPolicy == "" {
		opts.ForwardPolicy = ForwardAnywhere
	}
	return &messageService{repo: repo, users: users, opts: opts, now: time.Now}
}

func (s *messageService) SendMessage(ctx context.Context, input SendMessageInput) (*SentMessage, error) {
	sender, err := requireChatUser(ctx, s.users, input.SenderID)
	if err != nil {
		return nil, err
	}

	room, err := s.repo.FindChatByID(ctx, input.RoomID)
	if err != nil {
		return nil, notFoundAs(err, errChatNotFound)
	}
	if !room.HasMember(sender.ID) {
		return nil, apperror.Wrap(apperror.ErrForbidden, "You are not a member of this chat")
	}

	message, err := s.buildMessage(input, sender)
	if err != nil {
		return nil, err
	}

	if err := ratelimiter.Enforce(ctx, s.opts.Redis, sender.ID, "send_message", s.opts.SendCooldown); err != nil {
		return nil, err
	}

	if err := s.repo.CreateMessages(ctx, []*entity.Message{message}); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	s.index(ctx, message)

	recipients := make([]string, 0, len(room.Members))
	for _, m := range room.Members {
		if m != sender.ID {
			recipients = append(recipients, m)
		}
	}
	return &SentMessage{Message: message, Recipients: recipients}, nil
}

func (s *messageService) buildMessage(input SendMessageInput, sender *entity.User) (*entity.Message, error) {
	content := strings.TrimSpace(input.Content)
	hasFile := input.FileURL != nil && *input.FileURL != ""
	if content == "" && !hasFile {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "Message content or file is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, apperror.Wrap(apperror.ErrBadRequest, fmt.Sprintf("Message is longer than %d characters", maxContentLength))
	}

	messageType := entity.MessageTypeText
	var fileURL, fileName *string
	if hasFile {
		messageType = entity.MessageTypeFile
		if input.MessageType == entity.MessageTypeImage {
			messageType = entity.MessageTypeImage
		}
		fileURL = input.FileURL
		fileName = input.FileName
	}

	return &entity.Message{
		ID:          newMessageID(),
		RoomID:      input.RoomID,
		SenderID:    sender.ID,
		SenderName:  sender.Name,
		Content:     content,
		FileURL:     fileURL,
		FileName:    fileName,
		MessageType: messageType,
		Timestamp:   s.now(),
		ReadBy:      []string{sender.ID},
	}, nil
}

func (s *messageService) FetchMessages(ctx context.Context, roomID, userID string) ([]*entity.Message, error) {
	user, err := requireChatUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	room, err := s.repo.FindChatByID(ctx, roomID)
	if err != nil {
		return nil, notFoundAs(err, errChatNotFound)
	}
	if !room.HasMember(user.ID) {
		return nil, apperror.Wrap(apperror.ErrForbidden, "Access denied. You are not a member of this chat.")
	}

	return s.repo.FindMessagesByRoom(ctx, roomID)
}

func (s *messageService) GetMessage(ctx context.Context, messageID string) (*entity.Message, error) {
	message, err := s.repo.FindMessageByID(ctx, messageID)
	if err != nil {
		return nil, notFoundAs(err, errMessageNotFound)
	}
	return message, nil
}

func (s *messageService) DeleteMessage(ctx context.Context, messageID, userID string) (*entity.Message, error) {
	message, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if userID == "" || message.SenderID != userID {
		return nil, apperror.Wrap(apperror.ErrForbidden, "You can only delete your own messages")
	}

	// Re-applying the scrub on an already deleted message leaves it unchanged.
	message.Scrub()
	if err := s.repo.UpdateMessageContent(ctx, message); err != nil {
		return nil, notFoundAs(err, errMessageNotFound)
	}

	if s.opts.Index != nil {
		if err := s.opts.Index.RemoveMessage(ctx, message.ID); err != nil {
			log.Printf("[Search] failed to remove message %s: %v", message.ID, err)
		}
	}
	return message, nil
}

func (s *messageService) ForwardMessage(ctx context.Context, messageID string, targetRoomIDs []string, userID string) ([]*entity.Message, error) {
	user, err := requireChatUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	var targets []string
	for _, id := range targetRoomIDs {
		if id = strings.TrimSpace(id); id != "" && !containsID(targets, id) {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "No target chats selected")
	}

	original, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	for _, roomID := range targets {
		room, err := s.repo.FindChatByID(ctx, roomID)
		if err != nil {
			return nil, notFoundAs(err, apperror.Wrap(apperror.ErrNotFound, "Target chat not found"))
		}
		if s.opts.ForwardPolicy == ForwardMembersOnly && !room.HasMember(user.ID) {
			return nil, apperror.Wrap(apperror.ErrForbidden, "You can only forward to chats you are a member of")
		}
	}

	now := s.now()
	copies := make([]*entity.Message, 0, len(targets))
	for _, roomID := range targets {
		copies = append(copies, &entity.Message{
			ID:          newMessageID(),
			RoomID:      roomID,
			SenderID:    user.ID,
			SenderName:  user.Name,
			Content:     original.Content,
			FileURL:     original.FileURL,
			FileName:    original.FileName,
			MessageType: original.MessageType,
			Timestamp:   now,
			IsForwarded: true,
			ReadBy:      []string{user.ID},
		})
	}

	if err := s.repo.CreateMessages(ctx, copies); err != nil {
		return nil, fmt.Errorf("save forwarded messages: %w", err)
	}
	s.index(ctx, copies...)
	return copies, nil
}

func (s *messageService) SearchMessages(ctx context.Context, userID, query string) ([]*entity.Message, error) {
	if _, err := requireChatUser(ctx, s.users, userID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "Search query is required")
	}
	if s.opts.Index == nil {
		return []*entity.Message{}, nil
	}

	rooms, err := s.repo.FindChatsByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return []*entity.Message{}, nil
	}
	roomIDs := make([]string, len(rooms))
	for i, r := range rooms {
		roomIDs[i] = r.ID
	}

	ids, err := s.opts.Index.SearchMessageIDs(ctx, query, roomIDs, searchResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	found, err := s.repo.FindMessagesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// The index may lag behind; membership and deletion are re-checked against the store.
	results := make([]*entity.Message, 0, len(found))
	for _, m := range found {
		if !m.IsDeleted && containsID(roomIDs, m.RoomID) {
			results = append(results, m)
		}
	}
	return results, nil
}

func (s *messageService) index(ctx context.Context, messages ...*entity.Message) {
	if s.opts.Index == nil {
		return
	}
	if err := s.opts.Index.IndexMessages(ctx, messages); err != nil {
		log.Printf("[Search] failed to index %d message(s): %v", len(messages), err)
	}
}

// newMessageID returns a time ordered id so ids sort like timestamps.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
