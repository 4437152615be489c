package model

import (
	"time"

	"github.com/google/uuid"
)

// Operation log modules
const (
	ModuleAuth      = "auth"
	ModuleUser      = "user_management"
	ModuleAlarm     = "alarm_management"
	ModuleWorkOrder = "workorder_management"
	ModuleDevice    = "device_management"
)

// Operation log outcome values
const (
	LogStatusSuccess = "success"
	LogStatusFailure = "failure"
)

// OperationLog tracks who did what to which entity and whether it
// succeeded. Rows are written in the same transaction as the mutation
// they describe; denied attempts are recorded with a failure status.
type OperationLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Username   string     `gorm:"type:varchar(255)" json:"username"`
	Module     string     `gorm:"type:varchar(50);not null;index" json:"module"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	TargetType string     `gorm:"type:varchar(30);index" json:"target_type"`
	TargetID   string     `gorm:"type:varchar(50);index" json:"target_id"`
	TargetName string     `gorm:"type:varchar(255)" json:"target_name,omitempty"`
	Status     string     `gorm:"type:varchar(10);not null" json:"status"` // success, failure
	Detail     string     `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
