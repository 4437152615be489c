package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkOrder represents a maintenance task flowing through the
// pending → assigned → processing → pending_review → completed lifecycle
type WorkOrder struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkOrderNo  string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"workorder_no"`
	Title        string     `gorm:"type:varchar(255);not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Type         string     `gorm:"type:varchar(10);not null;index" json:"type"` // manual, ai_alarm
	Priority     string     `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AlarmID      *uuid.UUID `gorm:"type:uuid;index" json:"alarm_id"` // source alarm for ai_alarm orders
	Alarm        *Alarm     `gorm:"foreignKey:AlarmID" json:"alarm,omitempty"`
	AreaID       *uuid.UUID `gorm:"type:uuid;index" json:"area_id"`
	Area         *Area      `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	DepartmentID *uuid.UUID `gorm:"type:uuid;index" json:"department_id"`
	CreatorID    *uuid.UUID `gorm:"type:uuid;index" json:"creator_id"`
	Creator      *User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	AssigneeID   *uuid.UUID `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee     *User      `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	ReviewerID   *uuid.UUID `gorm:"type:uuid" json:"reviewer_id"`
	Reviewer     *User      `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	AssignedAt   *time.Time `json:"assigned_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ReviewedAt   *time.Time `json:"reviewed_at"`
	ReviewNote   string     `gorm:"type:text" json:"review_note"`
	ResultNote   string     `gorm:"type:text" json:"result_note"`
	ResultImages string     `gorm:"type:jsonb" json:"result_images,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// WorkOrderStatusHistory records every lifecycle step of a work order
type WorkOrderStatusHistory struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkOrderID uuid.UUID  `gorm:"type:uuid;not null;index" json:"workorder_id"`
	WorkOrder   *WorkOrder `gorm:"foreignKey:WorkOrderID" json:"-"`
	FromStatus  string     `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus    string     `gorm:"type:varchar(20);not null" json:"to_status"`
	ChangedBy   *uuid.UUID `gorm:"type:uuid" json:"changed_by"`
	Changer     *User      `gorm:"foreignKey:ChangedBy" json:"changer,omitempty"`
	Reason      string     `gorm:"type:text" json:"reason"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}
