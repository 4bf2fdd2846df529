package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/domain"
)

// SeedPipeline creates a hiring manager, a candidate, a job posting owned by
// the manager, and one application, all inside the given tx.
func SeedPipeline(tb testing.TB, tx *gorm.DB) (*domain.User, *domain.Candidate, *domain.JobPosting, *domain.Application) {
	tb.Helper()

	now := time.Now().UTC()
	manager := &domain.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("manager-%s@example.com", uuid.NewString()[:8]),
		FirstName: "Morgan",
		LastName:  "Reyes",
		Role:      "hiring_manager",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(manager).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}

	candidate := &domain.Candidate{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("candidate-%s@example.com", uuid.NewString()[:8]),
		FirstName: "Jamie",
		LastName:  "Okafor",
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(candidate).Error; err != nil {
		tb.Fatalf("seed candidate: %v", err)
	}

	job := &domain.JobPosting{
		ID:             uuid.New(),
		Title:          "Backend Engineer",
		Description:    "Builds backends.",
		Department:     "Engineering",
		EmploymentType: "full_time",
		Status:         "active",
		CreatedBy:      manager.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.Create(job).Error; err != nil {
		tb.Fatalf("seed job posting: %v", err)
	}

	app := &domain.Application{
		ID:          uuid.New(),
		CandidateID: candidate.ID,
		JobID:       job.ID,
		Status:      "applied",
		AppliedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Create(app).Error; err != nil {
		tb.Fatalf("seed application: %v", err)
	}

	return manager, candidate, job, app
}

// SeedStage creates one workflow stage for the job.
func SeedStage(tb testing.TB, tx *gorm.DB, jobID uuid.UUID, name string, orderIndex, slaHours int) *domain.WorkflowStage {
	tb.Helper()
	stage := &domain.WorkflowStage{
		ID:         uuid.New(),
		JobID:      jobID,
		Name:       name,
		OrderIndex: orderIndex,
		SLAHours:   slaHours,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := tx.Create(stage).Error; err != nil {
		tb.Fatalf("seed stage: %v", err)
	}
	return stage
}
