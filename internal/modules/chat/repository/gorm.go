package repository

import (
	"context"
	"time"

	"anoa.com/yogaschool/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) Repository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateChat(ctx context.Context, chat *entity.Chat) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}

		rows := make([]entity.ChatMember, 0, len(chat.Members))
		now := time.Now()
		for _, userID := range chat.Members {
			rows = append(rows, entity.ChatMember{ChatID: chat.ID, UserID: userID, JoinedAt: now})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

func (r *chatRepository) FindChatByID(ctx context.Context, id string) (*entity.Chat, error) {
	var chat entity.Chat
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&chat).Error; err != nil {
		return nil, err
	}
	if err := r.loadMembers(ctx, r.db, []*entity.Chat{&chat}); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) FindChatsByMember(ctx context.Context, userID string) ([]*entity.Chat, error) {
	var chats []*entity.Chat
	if err := r.db.WithContext(ctx).
		Joins("JOIN chat_members ON chat_members.chat_id = chats.id").
		Where("chat_members.user_id = ?", userID).
		Order("chats.created_at, chats.id").
		Find(&chats).Error; err != nil {
		return nil, err
	}
	if err := r.loadMembers(ctx, r.db, chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepository) loadMembers(ctx context.Context, db *gorm.DB, chats []*entity.Chat) error {
	if len(chats) == 0 {
		return nil
	}

	ids := make([]string, len(chats))
	byID := make(map[string]*entity.Chat, len(chats))
	for i, c := range chats {
		ids[i] = c.ID
		c.Members = []string{}
		byID[c.ID] = c
	}

	var rows []entity.ChatMember
	if err := db.WithContext(ctx).
		Where("chat_id IN ?", ids).
		Order("joined_at, user_id").
		Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		if c, ok := byID[row.ChatID]; ok {
			c.Members = append(c.Members, row.UserID)
		}
	}
	return nil
}

// lockChat takes a row lock on the chat so membership changes on one room are serialized.
func lockChat(tx *gorm.DB, chatID string) error {
	var chat entity.Chat
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", chatID).
		First(&chat).Error
}

func (r *chatRepository) AddMembers(ctx context.Context, chatID string, userIDs []string) ([]string, error) {
	var added []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockChat(tx, chatID); err != nil {
			return err
		}

		now := time.Now()
		for _, userID := range userIDs {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&entity.ChatMember{ChatID: chatID, UserID: userID, JoinedAt: now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				added = append(added, userID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (r *chatRepository) RemoveMember(ctx context.Context, chatID, userID string) (bool, error) {
	var collapsed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		collapsed, err = removeMember(tx, chatID, userID)
		return err
	})
	return collapsed, err
}

func removeMember(tx *gorm.DB, chatID, userID string) (bool, error) {
	if err := lockChat(tx, chatID); err != nil {
		return false, err
	}

	if err := tx.Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&entity.ChatMember{}).Error; err != nil {
		return false, err
	}

	var remaining int64
	if err := tx.Model(&entity.ChatMember{}).Where("chat_id = ?", chatID).Count(&remaining).Error; err != nil {
		return false, err
	}
	if remaining > 0 {
		return false, nil
	}

	if err := tx.Where("id = ?", chatID).Delete(&entity.Chat{}).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *chatRepository) RemoveUserFromAllChats(ctx context.Context, userID string) ([]string, error) {
	var deleted []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chatIDs []string
		if err := tx.Model(&entity.ChatMember{}).
			Where("user_id = ?", userID).
			Order("chat_id").
			Pluck("chat_id", &chatIDs).Error; err != nil {
			return err
		}

		for _, chatID := range chatIDs {
			collapsed, err := removeMember(tx, chatID, userID)
			if err != nil {
				return err
			}
			if collapsed {
				deleted = append(deleted, chatID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *chatRepository) DeleteChat(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&entity.ChatMember{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entity.Chat{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *chatRepository) CreateMessages(ctx context.Context, messages []*entity.Message) error {
	if len(messages) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&messages).Error; err != nil {
			return err
		}

		var reads []entity.MessageRead
		now := time.Now()
		for _, m := range messages {
			for _, userID := range m.ReadBy {
				reads = append(reads, entity.MessageRead{MessageID: m.ID, UserID: userID, ReadAt: now})
			}
		}
		if len(reads) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reads).Error
	})
}

func (r *chatRepository) FindMessageByID(ctx context.Context, id string) (*entity.Message, error) {
	var message entity.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		return nil, err
	}
	if err := r.loadReads(ctx, []*entity.Message{&message}); err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *chatRepository) FindMessagesByIDs(ctx context.Context, ids []string) ([]*entity.Message, error) {
	var messages []*entity.Message
	if len(ids) == 0 {
		return messages, nil
	}
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("timestamp, id").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	if err := r.loadReads(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatRepository) FindMessagesByRoom(ctx context.Context, roomID string) ([]*entity.Message, error) {
	var messages []*entity.Message
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp, id").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	if err := r.loadReads(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatRepository) loadReads(ctx context.Context, messages []*entity.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]string, len(messages))
	byID := make(map[string]*entity.Message, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
		m.ReadBy = []string{}
		byID[m.ID] = m
	}

	var reads []entity.MessageRead
	if err := r.db.WithContext(ctx).
		Where("message_id IN ?", ids).
		Order("read_at, user_id").
		Find(&reads).Error; err != nil {
		return err
	}
	for _, read := range reads {
		if m, ok := byID[read.MessageID]; ok {
			m.ReadBy = append(m.ReadBy, read.UserID)
		}
	}
	return nil
}

func (r *chatRepository) UpdateMessageContent(ctx context.Context, message *entity.Message) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("id = ?", message.ID).
		Updates(map[string]any{
			"content":    message.Content,
			"file_url":   message.FileURL,
			"file_name":  message.FileName,
			"is_deleted": message.IsDeleted,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *chatRepository) DeleteMessagesBySender(ctx context.Context, senderID string) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id IN (?)",
			tx.Model(&entity.Message{}).Select("id").Where("sender_id = ?", senderID),
		).Delete(&entity.MessageRead{}).Error; err != nil {
			return err
		}

		res := tx.Where("sender_id = ?", senderID).Delete(&entity.Message{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *chatRepository) HasMessageWithFile(ctx context.Context, fileURL string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("file_url = ?", fileURL).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *chatRepository) CountUnread(ctx context.Context, userID, roomID string) (int64, error) {
	query := r.db.WithContext(ctx).
		Table("messages AS m").
		Joins("JOIN chat_members cm ON cm.chat_id = m.room_id AND cm.user_id = ?", userID).
		Where("m.sender_id <> ?", userID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads mr WHERE mr.message_id = m.id AND mr.user_id = ?)", userID)

	if roomID != "" {
		query = query.Where("m.room_id = ?", roomID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *chatRepository) MarkRoomRead(ctx context.Context, roomID, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT m.id, ?, NOW()
		FROM messages m
		WHERE m.room_id = ? AND m.sender_id <> ?
		ON CONFLICT DO NOTHING
	`, userID, roomID, userID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
