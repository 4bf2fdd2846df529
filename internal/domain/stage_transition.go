package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageTransition is the interval an application spent (or is spending) in a
// stage. ExitedAt is null iff this is the application's open transition; at
// most one open transition exists per application. SLADeadline is computed
// once at entry and never mutated; only the escalation fields change after
// the row is written.
type StageTransition struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ApplicationID uuid.UUID      `gorm:"type:uuid;not null;index:idx_stage_transitions_app_open,priority:1" json:"application_id"`
	StageID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"stage_id"`
	Stage         *WorkflowStage `gorm:"constraint:OnDelete:RESTRICT;foreignKey:StageID;references:ID" json:"stage,omitempty"`
	EnteredAt     time.Time      `gorm:"not null;default:now();index" json:"entered_at"`
	ExitedAt      *time.Time     `gorm:"index:idx_stage_transitions_app_open,priority:2;index:idx_stage_transitions_sla,priority:2" json:"exited_at,omitempty"`
	SLADeadline   time.Time      `gorm:"column:sla_deadline;not null;index:idx_stage_transitions_sla,priority:1" json:"sla_deadline"`
	IsEscalated   bool           `gorm:"default:false;index:idx_stage_transitions_sla,priority:3" json:"is_escalated"`
	EscalatedAt   *time.Time     `json:"escalated_at,omitempty"`
	EscalatedTo   *uuid.UUID     `gorm:"type:uuid" json:"escalated_to,omitempty"`
	Notes         string         `gorm:"type:text" json:"notes,omitempty"`
}

func (StageTransition) TableName() string { return "stage_transitions" }

// Open reports whether this is the application's current transition.
func (t *StageTransition) Open() bool { return t != nil && t.ExitedAt == nil }

type SLAEscalation struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ApplicationID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"application_id"`
	StageTransitionID uuid.UUID        `gorm:"type:uuid;not null;index" json:"stage_transition_id"`
	StageTransition   *StageTransition `gorm:"constraint:OnDelete:CASCADE;foreignKey:StageTransitionID;references:ID" json:"stage_transition,omitempty"`
	EscalationType    string           `gorm:"size:50;not null" json:"escalation_type"`
	EscalatedTo       uuid.UUID        `gorm:"type:uuid;not null;index:idx_sla_escalations_user_open,priority:1" json:"escalated_to"`
	EscalationReason  string           `gorm:"type:text" json:"escalation_reason"`
	IsResolved        bool             `gorm:"default:false;index:idx_sla_escalations_user_open,priority:2" json:"is_resolved"`
	ResolvedAt        *time.Time       `json:"resolved_at,omitempty"`
	ResolvedBy        *uuid.UUID       `gorm:"type:uuid" json:"resolved_by,omitempty"`
	CreatedAt         time.Time        `gorm:"not null;default:now();index" json:"created_at"`
}

func (SLAEscalation) TableName() string { return "sla_escalations" }

// Escalation severities, ordered by overdue duration at creation time.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
	SeverityOverdue  = "overdue"
)
