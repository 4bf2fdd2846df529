package workflow

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

type TransitionRepo interface {
	Create(dbc dbctx.Context, transitions []*domain.StageTransition) ([]*domain.StageTransition, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.StageTransition, error)
	// GetOpenForApplication returns the application's open transition, locking
	// the row FOR UPDATE when called inside a transaction with lock set, which
	// serializes concurrent advances per application.
	GetOpenForApplication(dbc dbctx.Context, applicationID uuid.UUID, lock bool) (*domain.StageTransition, error)
	// CloseOpen sets exited_at on an open transition. The write is guarded by
	// exited_at IS NULL; a false return means another advance closed it first.
	CloseOpen(dbc dbctx.Context, id uuid.UUID, exitedAt time.Time) (bool, error)
	// MarkEscalated flips the escalation fields on a still-open, not-yet
	// escalated transition. A false return means the guard did not match
	// (already escalated or no longer open) and no escalation row should
	// be inserted.
	MarkEscalated(dbc dbctx.Context, id uuid.UUID, at time.Time, to uuid.UUID) (bool, error)
	ListForApplication(dbc dbctx.Context, applicationID uuid.UUID) ([]*domain.StageTransition, error)
	ListOpenOverdue(dbc dbctx.Context, now time.Time) ([]*domain.StageTransition, error)
	ListOpenForStage(dbc dbctx.Context, stageID uuid.UUID) ([]*domain.StageTransition, error)
}

type transitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransitionRepo(db *gorm.DB, baseLog *logger.Logger) TransitionRepo {
	return &transitionRepo{
		db:  db,
		log: baseLog.With("repo", "TransitionRepo"),
	}
}

func (r *transitionRepo) Create(dbc dbctx.Context, transitions []*domain.StageTransition) ([]*domain.StageTransition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(transitions) == 0 {
		return []*domain.StageTransition{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&transitions).Error; err != nil {
		return nil, err
	}
	return transitions, nil
}

func (r *transitionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.StageTransition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var t domain.StageTransition
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, nil
	}
	return &t, nil
}

func (r *transitionRepo) GetOpenForApplication(dbc dbctx.Context, applicationID uuid.UUID, lock bool) (*domain.StageTransition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if applicationID == uuid.Nil {
		return nil, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("application_id = ? AND exited_at IS NULL", applicationID)
	if lock && dbc.Tx != nil {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var t domain.StageTransition
	if err := q.Limit(1).Find(&t).Error; err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, nil
	}
	return &t, nil
}

func (r *transitionRepo) CloseOpen(dbc dbctx.Context, id uuid.UUID, exitedAt time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.StageTransition{}).
		Where("id = ? AND exited_at IS NULL", id).
		Update("exited_at", exitedAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *transitionRepo) MarkEscalated(dbc dbctx.Context, id uuid.UUID, at time.Time, to uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.StageTransition{}).
		Where("id = ? AND is_escalated = ? AND exited_at IS NULL", id, false).
		Updates(map[string]interface{}{
			"is_escalated": true,
			"escalated_at": at,
			"escalated_to": to,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *transitionRepo) ListForApplication(dbc dbctx.Context, applicationID uuid.UUID) ([]*domain.StageTransition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.StageTransition
	if applicationID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Stage").
		Where("application_id = ?", applicationID).
		Order("entered_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *transitionRepo) ListOpenOverdue(dbc dbctx.Context, now time.Time) ([]*domain.StageTransition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.StageTransition
	if err := transaction.WithContext(dbc.Ctx).
		Where("exited_at IS NULL AND sla_deadline < ? AND is_escalated = ?", now, false).
		Order("sla_deadline ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *transitionRepo) ListOpenForStage(dbc dbctx.Context, stageID uuid.UUID) ([]*domain.StageTransition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.StageTransition
	if stageID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("stage_id = ? AND exited_at IS NULL", stageID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
