package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WorkflowStage is a named position in a job's ordered pipeline. OrderIndex
// values per job form a prefix of the positive integers without duplicates.
// AutoAdvanceRules is opaque to the engine; an external rules evaluator owns
// its shape.
type WorkflowStage struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_workflow_stages_job_order,priority:1" json:"job_id"`
	Name             string         `gorm:"size:100;not null" json:"name"`
	Description      string         `gorm:"type:text" json:"description,omitempty"`
	OrderIndex       int            `gorm:"not null;uniqueIndex:idx_workflow_stages_job_order,priority:2" json:"order_index"`
	SLAHours         int            `gorm:"column:sla_hours;default:72" json:"sla_hours"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	AutoAdvanceRules datatypes.JSON `gorm:"type:jsonb" json:"auto_advance_rules,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (WorkflowStage) TableName() string { return "workflow_stages" }
