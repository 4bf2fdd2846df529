package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobPosting struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title          string         `gorm:"size:200;not null" json:"title"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	Requirements   datatypes.JSON `gorm:"type:jsonb" json:"requirements,omitempty"`
	Department     string         `gorm:"size:100;not null;index" json:"department"`
	Location       string         `gorm:"type:text" json:"location,omitempty"`
	EmploymentType string         `gorm:"size:50;not null" json:"employment_type"`
	SalaryRange    datatypes.JSON `gorm:"type:jsonb" json:"salary_range,omitempty"`
	Status         string         `gorm:"size:50;default:active;index" json:"status"`
	CreatedBy      uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	Creator        *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:CreatedBy;references:ID" json:"creator,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobPosting) TableName() string { return "job_postings" }
