package model

import (
	"time"

	"github.com/google/uuid"
)

// Area is a patrolled river section
type Area struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code         string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Name         string     `gorm:"type:varchar(100);not null" json:"name"`
	RiverName    string     `gorm:"type:varchar(100)" json:"river_name"`
	SupervisorID *uuid.UUID `gorm:"type:uuid;index" json:"supervisor_id"`
	Supervisor   *User      `gorm:"foreignKey:SupervisorID" json:"supervisor,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AreaMaintenanceWorker is a roster entry binding a maintenance worker to
// an area's team. Deactivating a worker removes their entries.
type AreaMaintenanceWorker struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AreaID    uuid.UUID `gorm:"type:uuid;not null;index" json:"area_id"`
	Area      *Area     `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
