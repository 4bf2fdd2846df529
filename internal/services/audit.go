package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/hireloop/ats-backend/internal/data/repos"
	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

// AuditLogger records workflow actions after the fact. Writes are
// best-effort; a failed audit write never fails the operation it describes.
type AuditLogger struct {
	log  *logger.Logger
	logs repos.AuditLogRepo
}

func NewAuditLogger(baseLog *logger.Logger, logs repos.AuditLogRepo) *AuditLogger {
	return &AuditLogger{
		log:  baseLog.With("service", "AuditLogger"),
		logs: logs,
	}
}

func (a *AuditLogger) Record(ctx context.Context, actorID uuid.UUID, action, resourceType string, resourceID uuid.UUID, details map[string]any) {
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		CreatedAt:    time.Now().UTC(),
	}
	if actorID != uuid.Nil {
		entry.UserID = &actorID
	}
	if resourceID != uuid.Nil {
		entry.ResourceID = &resourceID
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			a.log.Warn("Audit details marshal failed", "action", action, "error", err.Error())
		} else {
			entry.Details = datatypes.JSON(raw)
		}
	}

	if _, err := a.logs.Create(dbctx.Context{Ctx: ctx}, []*domain.AuditLog{entry}); err != nil {
		a.log.Warn("Audit write failed", "action", action, "error", err.Error())
	}
}
