package hiring

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

type ApplicationRepo interface {
	Create(dbc dbctx.Context, apps []*domain.Application) ([]*domain.Application, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Application, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Application, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error
	ListByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Application, error)
}

type applicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApplicationRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationRepo {
	return &applicationRepo{
		db:  db,
		log: baseLog.With("repo", "ApplicationRepo"),
	}
}

func (r *applicationRepo) Create(dbc dbctx.Context, apps []*domain.Application) ([]*domain.Application, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(apps) == 0 {
		return []*domain.Application{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *applicationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Application, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var app domain.Application
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&app).Error
	if err != nil {
		return nil, err
	}
	if app.ID == uuid.Nil {
		return nil, nil
	}
	return &app, nil
}

func (r *applicationRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Application, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Application
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *applicationRepo) ListByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Application, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.Application
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Candidate").
		Where("id IN ?", ids).
		Order("applied_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *applicationRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.Application{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}
