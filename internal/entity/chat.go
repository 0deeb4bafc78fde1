package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"

	DeletedMessagePlaceholder = "This message was deleted"
)

// Chat is either a group room or a teacher/student direct message.
// Members and OtherUserID are filled by the repository and service layers.
type Chat struct {
	ID        string    `gorm:"size:160;primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	IsGroup   bool      `gorm:"not null;default:false" json:"isGroup"`
	CreatedBy *string   `gorm:"size:64;index" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Members     []string `gorm:"-" json:"members"`
	OtherUserID string   `gorm:"-" json:"otherUserId,omitempty"`
}

func (c *Chat) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// CreatedByUser reports whether userID created this chat.
func (c *Chat) CreatedByUser(userID string) bool {
	return c.CreatedBy != nil && *c.CreatedBy == userID
}

type ChatMember struct {
	ChatID   string    `gorm:"size:160;primaryKey" json:"chatId"`
	UserID   string    `gorm:"size:64;primaryKey;index" json:"userId"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

type Message struct {
	ID          string    `gorm:"size:64;primaryKey" json:"id"`
	RoomID      string    `gorm:"size:160;not null;index:idx_messages_room_time,priority:1" json:"roomId"`
	SenderID    string    `gorm:"size:64;not null;index" json:"senderId"`
	SenderName  string    `gorm:"size:100;not null" json:"senderName"`
	Content     string    `gorm:"type:text" json:"content"`
	FileURL     *string   `gorm:"type:text" json:"fileUrl"`
	FileName    *string   `gorm:"size:255" json:"fileName"`
	MessageType string    `gorm:"size:10;not null;default:text" json:"messageType"`
	Timestamp   time.Time `gorm:"not null;index:idx_messages_room_time,priority:2" json:"timestamp"`
	IsDeleted   bool      `gorm:"not null;default:false" json:"isDeleted"`
	IsForwarded bool      `gorm:"not null;default:false" json:"isForwarded"`

	ReadBy []string `gorm:"-" json:"readBy"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		var id uuid.UUID
		id, err = uuid.NewV7()
		m.ID = id.String()
	}
	return
}

func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Scrub turns the message into its deleted placeholder. Sender identity stays intact.
func (m *Message) Scrub() {
	m.IsDeleted = true
	m.Content = DeletedMessagePlaceholder
	m.FileURL = nil
	m.FileName = nil
}

type MessageRead struct {
	MessageID string    `gorm:"size:64;primaryKey" json:"messageId"`
	UserID    string    `gorm:"size:64;primaryKey;index" json:"userId"`
	ReadAt    time.Time `gorm:"autoCreateTime" json:"readAt"`
}
