package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Candidate struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email        string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FirstName    string         `gorm:"size:100;not null" json:"first_name"`
	LastName     string         `gorm:"size:100;not null" json:"last_name"`
	Phone        string         `gorm:"size:20" json:"phone,omitempty"`
	Location     string         `gorm:"type:text" json:"location,omitempty"`
	ResumeURL    string         `gorm:"type:text" json:"resume_url,omitempty"`
	ParsedResume datatypes.JSON `gorm:"type:jsonb" json:"parsed_resume,omitempty"`
	Status       string         `gorm:"size:50;default:active;index" json:"status"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Candidate) TableName() string { return "candidates" }

func (c *Candidate) DisplayName() string {
	if c == nil {
		return ""
	}
	return c.FirstName + " " + c.LastName
}
