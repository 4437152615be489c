package model

import (
	"time"

	"github.com/google/uuid"
)

// Alarm type values — ai alarms come from detection devices, manual alarms
// from patrol reports.
const (
	AlarmTypeAI     = "ai"
	AlarmTypeManual = "manual"
)

// Alarm represents a detected or reported river incident
type Alarm struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AlarmNo        string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"alarm_no"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Type           string     `gorm:"type:varchar(10);not null;index" json:"type"` // ai, manual
	Category       string     `gorm:"type:varchar(50);index" json:"category"`      // floating_debris, illegal_discharge...
	Level          string     `gorm:"type:varchar(10);not null;default:'medium'" json:"level"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ImageURL       string     `gorm:"type:text" json:"image_url,omitempty"`
	AreaID         *uuid.UUID `gorm:"type:uuid;index" json:"area_id"`
	Area           *Area      `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	DeviceID       *uuid.UUID `gorm:"type:uuid;index" json:"device_id"`
	Device         *Device    `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
	ReportedBy     *uuid.UUID `gorm:"type:uuid" json:"reported_by"`
	Reporter       *User      `gorm:"foreignKey:ReportedBy" json:"reporter,omitempty"`
	ConfirmedBy    *uuid.UUID `gorm:"type:uuid" json:"confirmed_by"`
	Confirmer      *User      `gorm:"foreignKey:ConfirmedBy" json:"confirmer,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at"`
	ResolvedBy     *uuid.UUID `gorm:"type:uuid" json:"resolved_by"`
	Resolver       *User      `gorm:"foreignKey:ResolvedBy" json:"resolver,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	ResolutionNote string     `gorm:"type:text" json:"resolution_note"`
	WorkOrderID    *uuid.UUID `gorm:"type:uuid;index" json:"workorder_id"` // set when converted
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
