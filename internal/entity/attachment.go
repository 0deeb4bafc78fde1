package entity

import "time"

// Attachment records a chat upload until a message references it.
type Attachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"userId"`
	FileURL   string    `gorm:"type:text;not null;uniqueIndex" json:"fileUrl"`
	FileName  string    `gorm:"size:255" json:"fileName"`
	FileType  string    `gorm:"size:100" json:"fileType"`
	FileSize  int64     `json:"fileSize"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}
