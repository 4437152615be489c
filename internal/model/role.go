package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the persisted role row users reference by FK. The permission
// semantics (allowed actions, scope, transition rules) live in the
// authority package as fixed configuration; this table only carries
// identity and display fields.
type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"code"` // R001..R006
	Name        string    `gorm:"type:varchar(50);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
