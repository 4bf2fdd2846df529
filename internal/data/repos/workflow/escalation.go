package workflow

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

type EscalationRepo interface {
	Create(dbc dbctx.Context, escalations []*domain.SLAEscalation) ([]*domain.SLAEscalation, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SLAEscalation, error)
	GetUnresolvedForTransition(dbc dbctx.Context, transitionID uuid.UUID) (*domain.SLAEscalation, error)
	// Resolve closes an escalation. Guarded by is_resolved = false; a false
	// return means it was already resolved.
	Resolve(dbc dbctx.Context, id uuid.UUID, at time.Time, by uuid.UUID) (bool, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID, unresolvedOnly bool) ([]*domain.SLAEscalation, error)
}

type escalationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEscalationRepo(db *gorm.DB, baseLog *logger.Logger) EscalationRepo {
	return &escalationRepo{
		db:  db,
		log: baseLog.With("repo", "EscalationRepo"),
	}
}

func (r *escalationRepo) Create(dbc dbctx.Context, escalations []*domain.SLAEscalation) ([]*domain.SLAEscalation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(escalations) == 0 {
		return []*domain.SLAEscalation{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&escalations).Error; err != nil {
		return nil, err
	}
	return escalations, nil
}

func (r *escalationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SLAEscalation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var e domain.SLAEscalation
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, nil
	}
	return &e, nil
}

func (r *escalationRepo) GetUnresolvedForTransition(dbc dbctx.Context, transitionID uuid.UUID) (*domain.SLAEscalation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if transitionID == uuid.Nil {
		return nil, nil
	}
	var e domain.SLAEscalation
	err := transaction.WithContext(dbc.Ctx).
		Where("stage_transition_id = ? AND is_resolved = ?", transitionID, false).
		Order("created_at ASC").
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, nil
	}
	return &e, nil
}

func (r *escalationRepo) Resolve(dbc dbctx.Context, id uuid.UUID, at time.Time, by uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.SLAEscalation{}).
		Where("id = ? AND is_resolved = ?", id, false).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"resolved_at": at,
			"resolved_by": by,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *escalationRepo) ListForUser(dbc dbctx.Context, userID uuid.UUID, unresolvedOnly bool) ([]*domain.SLAEscalation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.SLAEscalation
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Preload("StageTransition").
		Preload("StageTransition.Stage").
		Where("escalated_to = ?", userID)
	if unresolvedOnly {
		q = q.Where("is_resolved = ?", false)
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
