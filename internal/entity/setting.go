package entity

import "time"

// SettingsID is the primary key of the single settings row.
const SettingsID = 1

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	QRCodeURL *string   `gorm:"type:text" json:"qrCodeUrl"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
