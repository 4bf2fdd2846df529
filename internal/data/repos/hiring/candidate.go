package hiring

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

type CandidateRepo interface {
	Create(dbc dbctx.Context, candidates []*domain.Candidate) ([]*domain.Candidate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Candidate, error)
}

type candidateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCandidateRepo(db *gorm.DB, baseLog *logger.Logger) CandidateRepo {
	return &candidateRepo{
		db:  db,
		log: baseLog.With("repo", "CandidateRepo"),
	}
}

func (r *candidateRepo) Create(dbc dbctx.Context, candidates []*domain.Candidate) ([]*domain.Candidate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(candidates) == 0 {
		return []*domain.Candidate{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *candidateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Candidate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var c domain.Candidate
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}
