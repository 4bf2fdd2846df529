package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/data/repos"
	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
	"github.com/hireloop/ats-backend/internal/platform/clock"
	"github.com/hireloop/ats-backend/internal/platform/envutil"
)

// StageTemplate is one row of the pipeline a new job gets by default.
type StageTemplate struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	SLAHours    int    `yaml:"sla_hours"`
}

// DefaultStageTemplates is the canonical six-stage pipeline used when no
// template file overrides it.
var DefaultStageTemplates = []StageTemplate{
	{Name: "Applied", Description: "Application received", SLAHours: 24},
	{Name: "Initial Screening", Description: "Resume and phone screening", SLAHours: 48},
	{Name: "Technical Assessment", Description: "Technical skills evaluation", SLAHours: 72},
	{Name: "Interview", Description: "Interview rounds", SLAHours: 96},
	{Name: "Final Review", Description: "Final decision review", SLAHours: 48},
	{Name: "Decision", Description: "Offer or rejection", SLAHours: 24},
}

type stageTemplateFile struct {
	Stages []StageTemplate `yaml:"stages"`
}

// LoadStageTemplates returns the default pipeline, replaced by the file at
// STAGE_TEMPLATE_PATH when set. Template rows without an sla_hours fall back
// to the DEFAULT_STAGE_SLA_HOURS env (72 when unset).
func LoadStageTemplates(log *logger.Logger) []StageTemplate {
	defaultSLA := envutil.Int("DEFAULT_STAGE_SLA_HOURS", 72)

	path := strings.TrimSpace(os.Getenv("STAGE_TEMPLATE_PATH"))
	if path == "" {
		return DefaultStageTemplates
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Stage template file unreadable, using defaults", "path", path, "error", err.Error())
		return DefaultStageTemplates
	}
	var file stageTemplateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		log.Warn("Stage template file invalid, using defaults", "path", path, "error", err.Error())
		return DefaultStageTemplates
	}
	if len(file.Stages) == 0 {
		log.Warn("Stage template file empty, using defaults", "path", path)
		return DefaultStageTemplates
	}
	for i := range file.Stages {
		if file.Stages[i].SLAHours <= 0 {
			file.Stages[i].SLAHours = defaultSLA
		}
	}
	return file.Stages
}

// CreateStageInput is the caller-provided shape of a single new stage.
type CreateStageInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" binding:"required"`
	SLAHours    int    `json:"sla_hours"`
}

// StageRegistry owns stage definitions: the default pipeline for new jobs and
// validated one-off stage creation.
type StageRegistry struct {
	log       *logger.Logger
	db        *gorm.DB
	clk       clock.Clock
	jobs      repos.JobPostingRepo
	stages    repos.StageRepo
	templates []StageTemplate
}

func NewStageRegistry(baseLog *logger.Logger, db *gorm.DB, clk clock.Clock, r repos.All) *StageRegistry {
	log := baseLog.With("service", "StageRegistry")
	return &StageRegistry{
		log:       log,
		db:        db,
		clk:       clk,
		jobs:      r.JobPostings,
		stages:    r.Stages,
		templates: LoadStageTemplates(log),
	}
}

// CreateDefaultStages provisions the template pipeline for a job. It is
// idempotent: a job that already has stages keeps them.
func (s *StageRegistry) CreateDefaultStages(ctx context.Context, jobID uuid.UUID) ([]*domain.WorkflowStage, error) {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := s.jobs.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}

	var created []*domain.WorkflowStage
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := s.stages.ListForJob(txc, jobID, true)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			created = existing
			return nil
		}

		now := s.clk.Now()
		stages := make([]*domain.WorkflowStage, 0, len(s.templates))
		for i, t := range s.templates {
			stages = append(stages, &domain.WorkflowStage{
				ID:          uuid.New(),
				JobID:       jobID,
				Name:        t.Name,
				Description: t.Description,
				OrderIndex:  i + 1,
				SLAHours:    t.SLAHours,
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		created, err = s.stages.Create(txc, stages)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateStage adds one stage to a job's pipeline. The new order index must
// extend or fill the pipeline: per job the active indexes stay a duplicate-free
// prefix of the positive integers.
func (s *StageRegistry) CreateStage(ctx context.Context, jobID uuid.UUID, in CreateStageInput) (*domain.WorkflowStage, error) {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := s.jobs.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("stage name required")
	}
	if in.SLAHours <= 0 {
		in.SLAHours = envutil.Int("DEFAULT_STAGE_SLA_HOURS", 72)
	}

	var created *domain.WorkflowStage
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := s.stages.ListForJob(txc, jobID, false)
		if err != nil {
			return err
		}
		if in.OrderIndex < 1 || in.OrderIndex > len(existing)+1 {
			return fmt.Errorf("order_index %d out of range for pipeline of %d stages", in.OrderIndex, len(existing))
		}
		for _, st := range existing {
			if st.OrderIndex == in.OrderIndex {
				return fmt.Errorf("order_index %d already taken by stage %q", in.OrderIndex, st.Name)
			}
		}

		now := s.clk.Now()
		stage := &domain.WorkflowStage{
			ID:          uuid.New(),
			JobID:       jobID,
			Name:        in.Name,
			Description: in.Description,
			OrderIndex:  in.OrderIndex,
			SLAHours:    in.SLAHours,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		out, err := s.stages.Create(txc, []*domain.WorkflowStage{stage})
		if err != nil {
			return err
		}
		created = out[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Stage created", "job_id", jobID.String(), "name", created.Name, "order_index", created.OrderIndex)
	return created, nil
}

// ListStages returns a job's pipeline in order, active stages only unless
// includeInactive is set.
func (s *StageRegistry) ListStages(ctx context.Context, jobID uuid.UUID, includeInactive bool) ([]*domain.WorkflowStage, error) {
	return s.stages.ListForJob(dbctx.Context{Ctx: ctx}, jobID, includeInactive)
}
