package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action       string         `gorm:"size:100;not null;index" json:"action"`
	ResourceType string         `gorm:"size:50;not null" json:"resource_type"`
	ResourceID   *uuid.UUID     `gorm:"type:uuid" json:"resource_id,omitempty"`
	Details      datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
