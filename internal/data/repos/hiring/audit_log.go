package hiring

import (
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

type AuditLogRepo interface {
	Create(dbc dbctx.Context, entries []*domain.AuditLog) ([]*domain.AuditLog, error)
}

type auditLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return &auditLogRepo{
		db:  db,
		log: baseLog.With("repo", "AuditLogRepo"),
	}
}

func (r *auditLogRepo) Create(dbc dbctx.Context, entries []*domain.AuditLog) ([]*domain.AuditLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*domain.AuditLog{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
