package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/domain"
)

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&domain.User{},
		&domain.Candidate{},
		&domain.JobPosting{},
		&domain.Application{},
		&domain.ApplicationStatusHistory{},
		&domain.WorkflowStage{},
		&domain.StageTransition{},
		&domain.SLAEscalation{},
		&domain.AuditLog{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	return s.ensureIndexes()
}

// ensureIndexes creates the composite indexes the workflow queries depend on:
// open-transition lookup per application, the overdue sweep, per-job stage
// ordering, the per-user unresolved escalation list, and the history timeline.
func (s *PostgresService) ensureIndexes() error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_stage_transitions_app_open
		   ON stage_transitions (application_id, exited_at)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_transitions_sla
		   ON stage_transitions (sla_deadline, exited_at, is_escalated)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_workflow_stages_job_order
		   ON workflow_stages (job_id, order_index)`,
		`CREATE INDEX IF NOT EXISTS idx_sla_escalations_user_open
		   ON sla_escalations (escalated_to, is_resolved)`,
		`CREATE INDEX IF NOT EXISTS idx_application_status_history_app_created
		   ON application_status_history (application_id, created_at)`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// MigrateAll is the test-harness variant that runs against an arbitrary handle.
func MigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&domain.User{},
		&domain.Candidate{},
		&domain.JobPosting{},
		&domain.Application{},
		&domain.ApplicationStatusHistory{},
		&domain.WorkflowStage{},
		&domain.StageTransition{},
		&domain.SLAEscalation{},
		&domain.AuditLog{},
	)
}
