package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a per-user message about alarm/work-order activity
type Notification struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"-"`
	Title      string     `gorm:"type:varchar(255);not null" json:"title"`
	Content    string     `gorm:"type:text" json:"content"`
	Type       string     `gorm:"type:varchar(30);not null;index" json:"type"` // alarm, workorder, system
	TargetType string     `gorm:"type:varchar(30)" json:"target_type"`
	TargetID   *uuid.UUID `gorm:"type:uuid" json:"target_id"`
	ReadAt     *time.Time `gorm:"index" json:"read_at"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
