package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Device status values
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
	DeviceStatusFault   = "fault"
)

// Device is a monitoring device installed along the river
type Device struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DeviceNo   string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"device_no"`
	Name       string          `gorm:"type:varchar(100);not null" json:"name"`
	Type       string          `gorm:"type:varchar(20);not null;index" json:"type"` // camera, water_gauge, flow_meter
	Status     string          `gorm:"type:varchar(20);not null;default:'offline';index" json:"status"`
	AreaID     *uuid.UUID      `gorm:"type:uuid;index" json:"area_id"`
	Area       *Area           `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	Longitude  decimal.Decimal `gorm:"type:decimal(10,7)" json:"longitude"`
	Latitude   decimal.Decimal `gorm:"type:decimal(10,7)" json:"latitude"`
	WaterLevel decimal.Decimal `gorm:"type:decimal(8,3)" json:"water_level"` // meters
	FlowRate   decimal.Decimal `gorm:"type:decimal(8,3)" json:"flow_rate"`  // m³/s
	LastSeenAt *time.Time      `json:"last_seen_at"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
