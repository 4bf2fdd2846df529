package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/data/repos"
	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
	"github.com/hireloop/ats-backend/internal/platform/clock"
)

// CanonicalStatus maps a stage name to the application status it implies:
// lowercased, spaces replaced with underscores.
func CanonicalStatus(stageName string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(stageName)), " ", "_")
}

// AdvanceResult reports what an advance did. Idempotent is set when the
// application was already in the requested stage, in which case Transition is
// the existing open transition and History is nil.
type AdvanceResult struct {
	Transition     *domain.StageTransition          `json:"transition"`
	History        *domain.ApplicationStatusHistory `json:"history,omitempty"`
	PreviousStatus string                           `json:"previous_status"`
	NewStatus      string                           `json:"new_status"`
	Idempotent     bool                             `json:"idempotent"`
}

// TimelineEntry is one stage visit. DurationHours is nil for the open entry.
type TimelineEntry struct {
	TransitionID  uuid.UUID  `json:"transition_id"`
	StageID       uuid.UUID  `json:"stage_id"`
	StageName     string     `json:"stage_name"`
	OrderIndex    int        `json:"order_index"`
	EnteredAt     time.Time  `json:"entered_at"`
	ExitedAt      *time.Time `json:"exited_at,omitempty"`
	SLADeadline   time.Time  `json:"sla_deadline"`
	DurationHours *float64   `json:"duration_hours,omitempty"`
	IsEscalated   bool       `json:"is_escalated"`
	Notes         string     `json:"notes,omitempty"`
}

// SLAStatus describes where an application's open transition stands against
// its deadline at the time of the call.
type SLAStatus struct {
	TransitionID   uuid.UUID `json:"transition_id"`
	StageID        uuid.UUID `json:"stage_id"`
	SLADeadline    time.Time `json:"sla_deadline"`
	WithinSLA      bool      `json:"within_sla"`
	HoursOverdue   float64   `json:"hours_overdue"`
	HoursRemaining float64   `json:"hours_remaining"`
	IsEscalated    bool      `json:"is_escalated"`
}

// WorkflowEngine owns all stage movement. Every advance runs in one
// transaction holding a row lock on the application's open transition, so
// concurrent advances for the same application serialize and at most one open
// transition exists at any time.
type WorkflowEngine struct {
	log         *logger.Logger
	db          *gorm.DB
	clk         clock.Clock
	apps        repos.ApplicationRepo
	stages      repos.StageRepo
	transitions repos.TransitionRepo
	history     repos.StatusHistoryRepo
	notifier    Notifier
	audit       *AuditLogger
	tracer      trace.Tracer
}

func NewWorkflowEngine(
	baseLog *logger.Logger,
	db *gorm.DB,
	clk clock.Clock,
	r repos.All,
	notifier Notifier,
	audit *AuditLogger,
) *WorkflowEngine {
	return &WorkflowEngine{
		log:         baseLog.With("service", "WorkflowEngine"),
		db:          db,
		clk:         clk,
		apps:        r.Applications,
		stages:      r.Stages,
		transitions: r.Transitions,
		history:     r.StatusHistory,
		notifier:    notifier,
		audit:       audit,
		tracer:      otel.Tracer("services.workflow"),
	}
}

// Advance moves an application into the given stage: closes the open
// transition if any, opens a new one with its SLA deadline, refreshes the
// denormalized status, and appends a history entry, all in one transaction.
// Advancing into the stage the application is already in is a no-op returning
// the existing transition.
func (s *WorkflowEngine) Advance(ctx context.Context, applicationID, stageID, actorID uuid.UUID, notes string) (*AdvanceResult, error) {
	ctx, span := s.tracer.Start(ctx, "WorkflowEngine.Advance",
		trace.WithAttributes(
			attribute.String("application_id", applicationID.String()),
			attribute.String("stage_id", stageID.String()),
		))
	defer span.End()

	dbc := dbctx.Context{Ctx: ctx}
	app, err := s.apps.GetByID(dbc, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, domain.ErrApplicationNotFound
	}
	stage, err := s.stages.GetByID(dbc, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil || !stage.IsActive {
		return nil, domain.ErrStageNotFound
	}
	if stage.JobID != app.JobID {
		return nil, domain.ErrStageNotForApplicationJob
	}

	var result *AdvanceResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.advanceTx(dbctx.Context{Ctx: ctx, Tx: tx}, app, stage, actorID, notes)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if !result.Idempotent {
		s.log.Info("Application advanced",
			"application_id", app.ID.String(),
			"stage", stage.Name,
			"previous_status", result.PreviousStatus,
			"new_status", result.NewStatus,
		)
		if s.notifier != nil && result.History != nil {
			s.notifier.NotifyStatusChange(ctx, result.History)
		}
		if s.audit != nil {
			s.audit.Record(ctx, actorID, "application.advance", "application", app.ID, map[string]any{
				"stage_id":        stage.ID.String(),
				"stage_name":      stage.Name,
				"previous_status": result.PreviousStatus,
				"new_status":      result.NewStatus,
			})
		}
	}
	return result, nil
}

// advanceTx is the transactional body of Advance. The caller has already
// validated the application and stage; everything here runs under tx.
func (s *WorkflowEngine) advanceTx(dbc dbctx.Context, app *domain.Application, stage *domain.WorkflowStage, actorID uuid.UUID, notes string) (*AdvanceResult, error) {
	now := s.clk.Now()
	newStatus := CanonicalStatus(stage.Name)

	// Row lock on the open transition serializes concurrent advances for the
	// same application.
	open, err := s.transitions.GetOpenForApplication(dbc, app.ID, true)
	if err != nil {
		return nil, err
	}

	if open != nil && open.StageID == stage.ID {
		return &AdvanceResult{
			Transition:     open,
			PreviousStatus: app.Status,
			NewStatus:      app.Status,
			Idempotent:     true,
		}, nil
	}

	if open != nil {
		closed, err := s.transitions.CloseOpen(dbc, open.ID, now)
		if err != nil {
			return nil, err
		}
		if !closed {
			return nil, domain.ErrConcurrentAdvance
		}
	}

	transition := &domain.StageTransition{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		StageID:       stage.ID,
		EnteredAt:     now,
		SLADeadline:   now.Add(time.Duration(stage.SLAHours) * time.Hour),
		Notes:         notes,
	}
	if _, err := s.transitions.Create(dbc, []*domain.StageTransition{transition}); err != nil {
		return nil, err
	}

	if err := s.apps.UpdateStatus(dbc, app.ID, newStatus); err != nil {
		return nil, err
	}

	reason := notes
	if reason == "" {
		reason = "Advanced to stage: " + stage.Name
	}
	entry := &domain.ApplicationStatusHistory{
		ID:             uuid.New(),
		ApplicationID:  app.ID,
		PreviousStatus: app.Status,
		NewStatus:      newStatus,
		ChangedBy:      actorID,
		ChangeReason:   reason,
		CreatedAt:      now,
	}
	if _, err := s.history.Create(dbc, []*domain.ApplicationStatusHistory{entry}); err != nil {
		return nil, err
	}

	return &AdvanceResult{
		Transition:     transition,
		History:        entry,
		PreviousStatus: app.Status,
		NewStatus:      newStatus,
	}, nil
}

// CurrentTransition returns the application's open transition, or
// ErrTransitionNotFound when it has none.
func (s *WorkflowEngine) CurrentTransition(ctx context.Context, applicationID uuid.UUID) (*domain.StageTransition, error) {
	dbc := dbctx.Context{Ctx: ctx}
	app, err := s.apps.GetByID(dbc, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, domain.ErrApplicationNotFound
	}
	open, err := s.transitions.GetOpenForApplication(dbc, applicationID, false)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, domain.ErrTransitionNotFound
	}
	return open, nil
}

// Timeline returns the application's stage visits in entry order.
func (s *WorkflowEngine) Timeline(ctx context.Context, applicationID uuid.UUID) ([]TimelineEntry, error) {
	dbc := dbctx.Context{Ctx: ctx}
	app, err := s.apps.GetByID(dbc, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, domain.ErrApplicationNotFound
	}

	transitions, err := s.transitions.ListForApplication(dbc, applicationID)
	if err != nil {
		return nil, err
	}

	out := make([]TimelineEntry, 0, len(transitions))
	for _, t := range transitions {
		entry := TimelineEntry{
			TransitionID: t.ID,
			StageID:      t.StageID,
			EnteredAt:    t.EnteredAt,
			ExitedAt:     t.ExitedAt,
			SLADeadline:  t.SLADeadline,
			IsEscalated:  t.IsEscalated,
			Notes:        t.Notes,
		}
		if t.Stage != nil {
			entry.StageName = t.Stage.Name
			entry.OrderIndex = t.Stage.OrderIndex
		}
		if t.ExitedAt != nil {
			hours := t.ExitedAt.Sub(t.EnteredAt).Hours()
			entry.DurationHours = &hours
		}
		out = append(out, entry)
	}
	return out, nil
}

// ApplicationsInStage lists applications currently sitting in the stage,
// ordered by application date.
func (s *WorkflowEngine) ApplicationsInStage(ctx context.Context, stageID uuid.UUID) ([]*domain.Application, error) {
	dbc := dbctx.Context{Ctx: ctx}
	stage, err := s.stages.GetByID(dbc, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, domain.ErrStageNotFound
	}
	open, err := s.transitions.ListOpenForStage(dbc, stageID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(open))
	for _, t := range open {
		ids = append(ids, t.ApplicationID)
	}
	return s.apps.ListByIDs(dbc, ids)
}

// ApplicationsInStageByName resolves the stage by job and name, then lists
// the applications currently sitting in it.
func (s *WorkflowEngine) ApplicationsInStageByName(ctx context.Context, jobID uuid.UUID, stageName string) ([]*domain.Application, error) {
	stage, err := s.stages.GetByJobAndName(dbctx.Context{Ctx: ctx}, jobID, stageName)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, domain.ErrStageNotFound
	}
	return s.ApplicationsInStage(ctx, stage.ID)
}

// ListOverdue returns every open transition past its deadline that has not
// been escalated yet.
func (s *WorkflowEngine) ListOverdue(ctx context.Context) ([]*domain.StageTransition, error) {
	return s.transitions.ListOpenOverdue(dbctx.Context{Ctx: ctx}, s.clk.Now())
}

// CheckSLAViolations reports the open transition's standing against its
// deadline. Applications with no open transition return ErrTransitionNotFound.
func (s *WorkflowEngine) CheckSLAViolations(ctx context.Context, applicationID uuid.UUID) (*SLAStatus, error) {
	open, err := s.CurrentTransition(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	status := &SLAStatus{
		TransitionID: open.ID,
		StageID:      open.StageID,
		SLADeadline:  open.SLADeadline,
		WithinSLA:    !now.After(open.SLADeadline),
		IsEscalated:  open.IsEscalated,
	}
	if status.WithinSLA {
		status.HoursRemaining = open.SLADeadline.Sub(now).Hours()
	} else {
		status.HoursOverdue = now.Sub(open.SLADeadline).Hours()
	}
	return status, nil
}
