package workflow

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

type StageRepo interface {
	Create(dbc dbctx.Context, stages []*domain.WorkflowStage) ([]*domain.WorkflowStage, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.WorkflowStage, error)
	ListForJob(dbc dbctx.Context, jobID uuid.UUID, includeInactive bool) ([]*domain.WorkflowStage, error)
	GetByJobAndName(dbc dbctx.Context, jobID uuid.UUID, name string) (*domain.WorkflowStage, error)
}

type stageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageRepo(db *gorm.DB, baseLog *logger.Logger) StageRepo {
	return &stageRepo{
		db:  db,
		log: baseLog.With("repo", "StageRepo"),
	}
}

func (r *stageRepo) Create(dbc dbctx.Context, stages []*domain.WorkflowStage) ([]*domain.WorkflowStage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(stages) == 0 {
		return []*domain.WorkflowStage{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}

func (r *stageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.WorkflowStage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var stage domain.WorkflowStage
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&stage).Error
	if err != nil {
		return nil, err
	}
	if stage.ID == uuid.Nil {
		return nil, nil
	}
	return &stage, nil
}

func (r *stageRepo) ListForJob(dbc dbctx.Context, jobID uuid.UUID, includeInactive bool) ([]*domain.WorkflowStage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.WorkflowStage
	if jobID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).Where("job_id = ?", jobID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("order_index ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stageRepo) GetByJobAndName(dbc dbctx.Context, jobID uuid.UUID, name string) (*domain.WorkflowStage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if jobID == uuid.Nil || name == "" {
		return nil, nil
	}
	var stage domain.WorkflowStage
	err := transaction.WithContext(dbc.Ctx).
		Where("job_id = ? AND name = ? AND is_active = ?", jobID, name, true).
		Limit(1).
		Find(&stage).Error
	if err != nil {
		return nil, err
	}
	if stage.ID == uuid.Nil {
		return nil, nil
	}
	return &stage, nil
}
