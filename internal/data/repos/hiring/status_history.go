package hiring

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

type StatusHistoryRepo interface {
	Create(dbc dbctx.Context, entries []*domain.ApplicationStatusHistory) ([]*domain.ApplicationStatusHistory, error)
	ListForApplication(dbc dbctx.Context, applicationID uuid.UUID) ([]*domain.ApplicationStatusHistory, error)
}

type statusHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatusHistoryRepo(db *gorm.DB, baseLog *logger.Logger) StatusHistoryRepo {
	return &statusHistoryRepo{
		db:  db,
		log: baseLog.With("repo", "StatusHistoryRepo"),
	}
}

func (r *statusHistoryRepo) Create(dbc dbctx.Context, entries []*domain.ApplicationStatusHistory) ([]*domain.ApplicationStatusHistory, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*domain.ApplicationStatusHistory{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *statusHistoryRepo) ListForApplication(dbc dbctx.Context, applicationID uuid.UUID) ([]*domain.ApplicationStatusHistory, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.ApplicationStatusHistory
	if applicationID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
