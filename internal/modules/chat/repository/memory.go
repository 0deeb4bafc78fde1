package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"anoa.com/yogaschool/internal/entity"
	"gorm.io/gorm"
)

type memoryChat struct {
	chat    entity.Chat
	members []string
}

type memoryMessage struct {
	message entity.Message
	readBy  []string
}

// memoryRepository is an indexed in-process store: records keyed by id plus
// "rooms by member" and "messages by room" indices, all guarded by one lock.
type memoryRepository struct {
	mu sync.RWMutex

	chats         map[string]*memoryChat
	messages      map[string]*memoryMessage
	roomsByMember map[string]map[string]struct{}
	roomMessages  map[string][]string
	senderIndex   map[string][]string
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		chats:         make(map[string]*memoryChat),
		messages:      make(map[string]*memoryMessage),
		roomsByMember: make(map[string]map[string]struct{}),
		roomMessages:  make(map[string][]string),
		senderIndex:   make(map[string][]string),
	}
}

func (r *memoryRepository) CreateChat(ctx context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chats[chat.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now()
	}

	record := &memoryChat{chat: *chat}
	record.chat.Members = nil
	for _, userID := range chat.Members {
		if !contains(record.members, userID) {
			record.members = append(record.members, userID)
			r.indexMember(userID, chat.ID)
		}
	}
	r.chats[chat.ID] = record
	return nil
}

func (r *memoryRepository) FindChatByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.chats[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return record.snapshot(), nil
}

func (r *memoryRepository) FindChatsByMember(ctx context.Context, userID string) ([]*entity.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chats := make([]*entity.Chat, 0, len(r.roomsByMember[userID]))
	for chatID := range r.roomsByMember[userID] {
		chats = append(chats, r.chats[chatID].snapshot())
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].CreatedAt.Equal(chats[j].CreatedAt) {
			return chats[i].ID < chats[j].ID
		}
		return chats[i].CreatedAt.Before(chats[j].CreatedAt)
	})
	return chats, nil
}

func (r *memoryRepository) AddMembers(ctx context.Context, chatID string, userIDs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.chats[chatID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	var added []string
	for _, userID := range userIDs {
		if contains(record.members, userID) {
			continue
		}
		record.members = append(record.members, userID)
		r.indexMember(userID, chatID)
		added = append(added, userID)
	}
	return added, nil
}

func (r *memoryRepository) RemoveMember(ctx context.Context, chatID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeMember(chatID, userID)
}

func (r *memoryRepository) removeMember(chatID, userID string) (bool, error) {
	record, ok := r.chats[chatID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}

	record.members = without(record.members, userID)
	r.unindexMember(userID, chatID)

	if len(record.members) > 0 {
		return false, nil
	}
	delete(r.chats, chatID)
	return true, nil
}

func (r *memoryRepository) RemoveUserFromAllChats(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chatIDs := make([]string, 0, len(r.roomsByMember[userID]))
	for chatID := range r.roomsByMember[userID] {
		chatIDs = append(chatIDs, chatID)
	}
	sort.Strings(chatIDs)

	var deleted []string
	for _, chatID := range chatIDs {
		collapsed, err := r.removeMember(chatID, userID)
		if err != nil {
			return nil, err
		}
		if collapsed {
			deleted = append(deleted, chatID)
		}
	}
	return deleted, nil
}

func (r *memoryRepository) DeleteChat(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.chats[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, userID := range record.members {
		r.unindexMember(userID, id)
	}
	delete(r.chats, id)
	return nil
}

func (r *memoryRepository) CreateMessages(ctx context.Context, messages []*entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range messages {
		if _, exists := r.messages[m.ID]; exists {
			return gorm.ErrDuplicatedKey
		}
	}

	for _, m := range messages {
		record := &memoryMessage{message: *m}
		record.message.ReadBy = nil
		for _, userID := range m.ReadBy {
			if !contains(record.readBy, userID) {
				record.readBy = append(record.readBy, userID)
			}
		}
		r.messages[m.ID] = record
		r.roomMessages[m.RoomID] = append(r.roomMessages[m.RoomID], m.ID)
		r.senderIndex[m.SenderID] = append(r.senderIndex[m.SenderID], m.ID)
	}
	return nil
}

func (r *memoryRepository) FindMessageByID(ctx context.Context, id string) (*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return record.snapshot(), nil
}

func (r *memoryRepository) FindMessagesByIDs(ctx context.Context, ids []string) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := make([]*entity.Message, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if record, ok := r.messages[id]; ok && !seen[id] {
			seen[id] = true
			messages = append(messages, record.snapshot())
		}
	}
	sortMessages(messages)
	return messages, nil
}

func (r *memoryRepository) FindMessagesByRoom(ctx context.Context, roomID string) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.roomMessages[roomID]
	messages := make([]*entity.Message, 0, len(ids))
	for _, id := range ids {
		messages = append(messages, r.messages[id].snapshot())
	}
	sortMessages(messages)
	return messages, nil
}

func (r *memoryRepository) UpdateMessageContent(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.messages[message.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	record.message.Content = message.Content
	record.message.FileURL = cloneString(message.FileURL)
	record.message.FileName = cloneString(message.FileName)
	record.message.IsDeleted = message.IsDeleted
	return nil
}

func (r *memoryRepository) DeleteMessagesBySender(ctx context.Context, senderID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.senderIndex[senderID]
	var deleted int64
	for _, id := range ids {
		record, ok := r.messages[id]
		if !ok {
			continue
		}
		roomID := record.message.RoomID
		r.roomMessages[roomID] = without(r.roomMessages[roomID], id)
		if len(r.roomMessages[roomID]) == 0 {
			delete(r.roomMessages, roomID)
		}
		delete(r.messages, id)
		deleted++
	}
	delete(r.senderIndex, senderID)
	return deleted, nil
}

func (r *memoryRepository) HasMessageWithFile(ctx context.Context, fileURL string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, record := range r.messages {
		if record.message.FileURL != nil && *record.message.FileURL == fileURL {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) CountUnread(ctx context.Context, userID, roomID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for chatID := range r.roomsByMember[userID] {
		if roomID != "" && chatID != roomID {
			continue
		}
		for _, id := range r.roomMessages[chatID] {
			record := r.messages[id]
			if record.message.SenderID != userID && !contains(record.readBy, userID) {
				count++
			}
		}
	}
	return count, nil
}

func (r *memoryRepository) MarkRoomRead(ctx context.Context, roomID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var marked int64
	for _, id := range r.roomMessages[roomID] {
		record := r.messages[id]
		if record.message.SenderID == userID || contains(record.readBy, userID) {
			continue
		}
		record.readBy = append(record.readBy, userID)
		marked++
	}
	return marked, nil
}

func (r *memoryRepository) indexMember(userID, chatID string) {
	rooms, ok := r.roomsByMember[userID]
	if !ok {
		rooms = make(map[string]struct{})
		r.roomsByMember[userID] = rooms
	}
	rooms[chatID] = struct{}{}
}

func (r *memoryRepository) unindexMember(userID, chatID string) {
	rooms := r.roomsByMember[userID]
	delete(rooms, chatID)
	if len(rooms) == 0 {
		delete(r.roomsByMember, userID)
	}
}

func (c *memoryChat) snapshot() *entity.Chat {
	chat := c.chat
	chat.CreatedBy = cloneString(c.chat.CreatedBy)
	chat.Members = append([]string{}, c.members...)
	return &chat
}

func (m *memoryMessage) snapshot() *entity.Message {
	message := m.message
	message.FileURL = cloneString(m.message.FileURL)
	message.FileName = cloneString(m.message.FileName)
	message.ReadBy = append([]string{}, m.readBy...)
	return &message
}

func sortMessages(messages []*entity.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func without(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
