package domain

import (
	"time"

	"github.com/google/uuid"
)

// Application is a candidate's submission to a specific job. The status column
// mirrors the open stage transition's stage name and is refreshed only inside
// the same write that moves the transition; the transition is authoritative.
type Application struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CandidateID uuid.UUID   `gorm:"type:uuid;not null;index" json:"candidate_id"`
	Candidate   *Candidate  `gorm:"constraint:OnDelete:CASCADE;foreignKey:CandidateID;references:ID" json:"candidate,omitempty"`
	JobID       uuid.UUID   `gorm:"type:uuid;not null;index" json:"job_id"`
	Job         *JobPosting `gorm:"constraint:OnDelete:CASCADE;foreignKey:JobID;references:ID" json:"job,omitempty"`
	Status      string      `gorm:"size:50;default:applied;index" json:"status"`
	MatchScore  *float64    `gorm:"type:decimal(5,2);index" json:"match_score,omitempty"`
	AppliedAt   time.Time   `gorm:"not null;default:now();index" json:"applied_at"`
	UpdatedAt   time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (Application) TableName() string { return "applications" }

type ApplicationStatusHistory struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ApplicationID  uuid.UUID `gorm:"type:uuid;not null;index" json:"application_id"`
	PreviousStatus string    `gorm:"size:50" json:"previous_status"`
	NewStatus      string    `gorm:"size:50;not null" json:"new_status"`
	ChangedBy      uuid.UUID `gorm:"type:uuid" json:"changed_by"`
	ChangeReason   string    `gorm:"type:text" json:"change_reason"`
	CreatedAt      time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (ApplicationStatusHistory) TableName() string { return "application_status_history" }
