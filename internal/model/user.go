package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User status values
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User represents a river-patrol system account
type User struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username         string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Name             string         `gorm:"type:varchar(255);not null" json:"name"`
	Phone            string         `gorm:"type:varchar(20)" json:"phone"`
	Email            string         `gorm:"type:varchar(255)" json:"email"`
	Avatar           string         `gorm:"type:text" json:"avatar,omitempty"`
	Password         string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON
	RoleID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"role_id"`
	Role             *Role          `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	AreaID           *uuid.UUID     `gorm:"type:uuid;index" json:"area_id"`
	Area             *Area          `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	DepartmentID     *uuid.UUID     `gorm:"type:uuid;index" json:"department_id"`
	Status           string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"` // active, inactive
	LoginAttempts    int            `gorm:"default:0" json:"-"`
	LastLoginAttempt *time.Time     `json:"-"`
	LastLoginAt      *time.Time     `json:"last_login_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// UserSession tracks issued tokens so deactivation can revoke them
type UserSession struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Platform  string     `gorm:"type:varchar(10);not null" json:"platform"` // web, mobile
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Active reports whether the session is usable
func (s *UserSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
