package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type User struct {
	ID                 string    `gorm:"size:64;primaryKey" json:"id"`
	Name               string    `gorm:"size:100;not null" json:"name"`
	Email              string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash       string    `gorm:"size:255;not null" json:"-"`
	Role               string    `gorm:"size:20;not null;index" json:"role"`
	SecurityQuestion   string    `gorm:"type:text;not null" json:"securityQuestion,omitempty"`
	SecurityAnswerHash string    `gorm:"size:255;not null" json:"-"`
	ProfileImage       *string   `gorm:"type:text" json:"profileImage,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RoleForOrdinal assigns roles by signup order: the first account administers the school,
// the second is the teacher, everyone after that is a student.
func RoleForOrdinal(existingUsers int64) string {
	switch existingUsers {
	case 0:
		return RoleAdmin
	case 1:
		return RoleTeacher
	default:
		return RoleStudent
	}
}
