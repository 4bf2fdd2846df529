package hiring

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

type JobPostingRepo interface {
	Create(dbc dbctx.Context, jobs []*domain.JobPosting) ([]*domain.JobPosting, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.JobPosting, error)
}

type jobPostingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobPostingRepo(db *gorm.DB, baseLog *logger.Logger) JobPostingRepo {
	return &jobPostingRepo{
		db:  db,
		log: baseLog.With("repo", "JobPostingRepo"),
	}
}

func (r *jobPostingRepo) Create(dbc dbctx.Context, jobs []*domain.JobPosting) ([]*domain.JobPosting, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*domain.JobPosting{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobPostingRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.JobPosting, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job domain.JobPosting
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}
