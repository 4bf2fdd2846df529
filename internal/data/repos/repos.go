package repos

import (
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/data/repos/hiring"
	"github.com/hireloop/ats-backend/internal/data/repos/users"
	"github.com/hireloop/ats-backend/internal/data/repos/workflow"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
)

type ApplicationRepo = hiring.ApplicationRepo
type CandidateRepo = hiring.CandidateRepo
type JobPostingRepo = hiring.JobPostingRepo
type StatusHistoryRepo = hiring.StatusHistoryRepo
type AuditLogRepo = hiring.AuditLogRepo

type StageRepo = workflow.StageRepo
type TransitionRepo = workflow.TransitionRepo
type EscalationRepo = workflow.EscalationRepo

type UserRepo = users.UserRepo

// All bundles every repo the services need; built once in main.
type All struct {
	Applications  ApplicationRepo
	Candidates    CandidateRepo
	JobPostings   JobPostingRepo
	StatusHistory StatusHistoryRepo
	AuditLogs     AuditLogRepo
	Stages        StageRepo
	Transitions   TransitionRepo
	Escalations   EscalationRepo
	Users         UserRepo
}

func New(db *gorm.DB, baseLog *logger.Logger) All {
	return All{
		Applications:  hiring.NewApplicationRepo(db, baseLog),
		Candidates:    hiring.NewCandidateRepo(db, baseLog),
		JobPostings:   hiring.NewJobPostingRepo(db, baseLog),
		StatusHistory: hiring.NewStatusHistoryRepo(db, baseLog),
		AuditLogs:     hiring.NewAuditLogRepo(db, baseLog),
		Stages:        workflow.NewStageRepo(db, baseLog),
		Transitions:   workflow.NewTransitionRepo(db, baseLog),
		Escalations:   workflow.NewEscalationRepo(db, baseLog),
		Users:         users.NewUserRepo(db, baseLog),
	}
}
