package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/data/repos"
	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
	"github.com/hireloop/ats-backend/internal/platform/clock"
	"github.com/hireloop/ats-backend/internal/platform/envutil"
)

// SeverityFor maps how long a transition has been overdue to a severity,
// using the configured warning/critical caps.
func SeverityFor(overdue, warningCap, criticalCap time.Duration) string {
	switch {
	case overdue < warningCap:
		return domain.SeverityWarning
	case overdue < criticalCap:
		return domain.SeverityCritical
	default:
		return domain.SeverityOverdue
	}
}

// SeverityCaps reads the severity ladder boundaries from the environment.
func SeverityCaps() (warningCap, criticalCap time.Duration) {
	warningCap = time.Duration(envutil.Int("SLA_WARNING_CAP_HOURS", 24)) * time.Hour
	criticalCap = time.Duration(envutil.Int("SLA_CRITICAL_CAP_HOURS", 72)) * time.Hour
	return warningCap, criticalCap
}

// EscalationView is an escalation enriched for the assignee's queue.
type EscalationView struct {
	ID               uuid.UUID  `json:"id"`
	ApplicationID    uuid.UUID  `json:"application_id"`
	TransitionID     uuid.UUID  `json:"transition_id"`
	CandidateName    string     `json:"candidate_name"`
	JobTitle         string     `json:"job_title"`
	StageName        string     `json:"stage_name"`
	EscalationType   string     `json:"escalation_type"`
	EscalationReason string     `json:"escalation_reason"`
	SLADeadline      time.Time  `json:"sla_deadline"`
	OverdueHours     float64    `json:"overdue_hours"`
	IsResolved       bool       `json:"is_resolved"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// EscalationService creates and resolves SLA escalations. The escalated
// transition's is_escalated flag and the escalation row are written in one
// transaction behind a guarded update, so each transition escalates at most
// once no matter how many monitors race.
type EscalationService struct {
	log         *logger.Logger
	db          *gorm.DB
	clk         clock.Clock
	apps        repos.ApplicationRepo
	jobs        repos.JobPostingRepo
	stages      repos.StageRepo
	transitions repos.TransitionRepo
	escalations repos.EscalationRepo
	audit       *AuditLogger
}

func NewEscalationService(baseLog *logger.Logger, db *gorm.DB, clk clock.Clock, r repos.All, audit *AuditLogger) *EscalationService {
	return &EscalationService{
		log:         baseLog.With("service", "EscalationService"),
		db:          db,
		clk:         clk,
		apps:        r.Applications,
		jobs:        r.JobPostings,
		stages:      r.Stages,
		transitions: r.Transitions,
		escalations: r.Escalations,
		audit:       audit,
	}
}

// Escalate flags a transition as escalated and records an escalation assigned
// to the job posting's creator. Severity defaults to overdue. If the
// transition was already escalated the existing unresolved escalation is
// returned with ErrAlreadyEscalated.
func (s *EscalationService) Escalate(ctx context.Context, transitionID uuid.UUID, severity string) (*domain.SLAEscalation, error) {
	if severity == "" {
		severity = domain.SeverityOverdue
	}

	dbc := dbctx.Context{Ctx: ctx}
	transition, err := s.transitions.GetByID(dbc, transitionID)
	if err != nil {
		return nil, err
	}
	if transition == nil {
		return nil, domain.ErrTransitionNotFound
	}
	if transition.IsEscalated {
		existing, err := s.escalations.GetUnresolvedForTransition(dbc, transitionID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, domain.ErrAlreadyEscalated
		}
		return nil, domain.ErrAlreadyEscalated
	}
	if !transition.Open() {
		return nil, domain.ErrTransitionNotFound
	}

	app, err := s.apps.GetByID(dbc, transition.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, domain.ErrApplicationNotFound
	}
	job, err := s.jobs.GetByID(dbc, app.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}

	now := s.clk.Now()
	overdue := now.Sub(transition.SLADeadline)
	stageName := ""
	if stage, err := s.stages.GetByID(dbc, transition.StageID); err == nil && stage != nil {
		stageName = stage.Name
	}

	escalation := &domain.SLAEscalation{
		ID:                uuid.New(),
		ApplicationID:     transition.ApplicationID,
		StageTransitionID: transition.ID,
		EscalationType:    severity,
		EscalatedTo:       job.CreatedBy,
		EscalationReason:  fmt.Sprintf("SLA deadline exceeded by %.1f hours in stage %s", overdue.Hours(), stageName),
		CreatedAt:         now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		marked, err := s.transitions.MarkEscalated(txc, transition.ID, now, job.CreatedBy)
		if err != nil {
			return err
		}
		if !marked {
			return domain.ErrAlreadyEscalated
		}
		_, err = s.escalations.Create(txc, []*domain.SLAEscalation{escalation})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyEscalated) {
			if existing, lookupErr := s.escalations.GetUnresolvedForTransition(dbc, transitionID); lookupErr == nil && existing != nil {
				return existing, domain.ErrAlreadyEscalated
			}
		}
		return nil, err
	}

	s.log.Warn("Transition escalated",
		"transition_id", transition.ID.String(),
		"application_id", transition.ApplicationID.String(),
		"severity", severity,
		"escalated_to", job.CreatedBy.String(),
		"overdue_hours", overdue.Hours(),
	)
	if s.audit != nil {
		s.audit.Record(ctx, uuid.Nil, "transition.escalate", "stage_transition", transition.ID, map[string]any{
			"application_id": transition.ApplicationID.String(),
			"severity":       severity,
			"escalated_to":   job.CreatedBy.String(),
		})
	}
	return escalation, nil
}

// Resolve closes an escalation. Resolving twice returns ErrAlreadyResolved.
func (s *EscalationService) Resolve(ctx context.Context, escalationID, resolvedBy uuid.UUID) (*domain.SLAEscalation, error) {
	dbc := dbctx.Context{Ctx: ctx}
	escalation, err := s.escalations.GetByID(dbc, escalationID)
	if err != nil {
		return nil, err
	}
	if escalation == nil {
		return nil, domain.ErrEscalationNotFound
	}

	now := s.clk.Now()
	resolved, err := s.escalations.Resolve(dbc, escalationID, now, resolvedBy)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, domain.ErrAlreadyResolved
	}

	escalation.IsResolved = true
	escalation.ResolvedAt = &now
	escalation.ResolvedBy = &resolvedBy
	s.log.Info("Escalation resolved",
		"escalation_id", escalationID.String(),
		"resolved_by", resolvedBy.String(),
	)
	return escalation, nil
}

// ListForUser returns a user's escalation queue, enriched with candidate, job
// and stage context, oldest first.
func (s *EscalationService) ListForUser(ctx context.Context, userID uuid.UUID, unresolvedOnly bool) ([]EscalationView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	escalations, err := s.escalations.ListForUser(dbc, userID, unresolvedOnly)
	if err != nil {
		return nil, err
	}

	appIDs := make([]uuid.UUID, 0, len(escalations))
	for _, e := range escalations {
		appIDs = append(appIDs, e.ApplicationID)
	}
	apps, err := s.apps.ListByIDs(dbc, appIDs)
	if err != nil {
		return nil, err
	}
	appsByID := make(map[uuid.UUID]*domain.Application, len(apps))
	jobTitles := make(map[uuid.UUID]string)
	for _, app := range apps {
		appsByID[app.ID] = app
		if _, ok := jobTitles[app.JobID]; !ok {
			if job, err := s.jobs.GetByID(dbc, app.JobID); err == nil && job != nil {
				jobTitles[app.JobID] = job.Title
			}
		}
	}

	now := s.clk.Now()
	out := make([]EscalationView, 0, len(escalations))
	for _, e := range escalations {
		view := EscalationView{
			ID:               e.ID,
			ApplicationID:    e.ApplicationID,
			TransitionID:     e.StageTransitionID,
			EscalationType:   e.EscalationType,
			EscalationReason: e.EscalationReason,
			IsResolved:       e.IsResolved,
			ResolvedAt:       e.ResolvedAt,
			CreatedAt:        e.CreatedAt,
		}
		if app, ok := appsByID[e.ApplicationID]; ok {
			if app.Candidate != nil {
				view.CandidateName = app.Candidate.DisplayName()
			}
			view.JobTitle = jobTitles[app.JobID]
		}
		if t := e.StageTransition; t != nil {
			view.SLADeadline = t.SLADeadline
			if t.Stage != nil {
				view.StageName = t.Stage.Name
			}
			if t.Open() && now.After(t.SLADeadline) {
				view.OverdueHours = now.Sub(t.SLADeadline).Hours()
			}
		}
		out = append(out, view)
	}
	return out, nil
}
