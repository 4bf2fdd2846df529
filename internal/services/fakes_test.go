package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
)

type fakeApplicationRepo struct {
	apps          map[uuid.UUID]*domain.Application
	statusUpdates []string
}

func newFakeApplicationRepo(apps ...*domain.Application) *fakeApplicationRepo {
	r := &fakeApplicationRepo{apps: make(map[uuid.UUID]*domain.Application)}
	for _, a := range apps {
		r.apps[a.ID] = a
	}
	return r
}

func (r *fakeApplicationRepo) Create(_ dbctx.Context, apps []*domain.Application) ([]*domain.Application, error) {
	for _, a := range apps {
		r.apps[a.ID] = a
	}
	return apps, nil
}

func (r *fakeApplicationRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Application, error) {
	return r.apps[id], nil
}

func (r *fakeApplicationRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*domain.Application, error) {
	var out []*domain.Application
	for _, id := range ids {
		if a, ok := r.apps[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeApplicationRepo) ListByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Application, error) {
	return r.GetByIDs(dbc, ids)
}

func (r *fakeApplicationRepo) UpdateStatus(_ dbctx.Context, id uuid.UUID, status string) error {
	if a, ok := r.apps[id]; ok {
		a.Status = status
	}
	r.statusUpdates = append(r.statusUpdates, status)
	return nil
}

type fakeStageRepo struct {
	stages map[uuid.UUID]*domain.WorkflowStage
}

func newFakeStageRepo(stages ...*domain.WorkflowStage) *fakeStageRepo {
	r := &fakeStageRepo{stages: make(map[uuid.UUID]*domain.WorkflowStage)}
	for _, s := range stages {
		r.stages[s.ID] = s
	}
	return r
}

func (r *fakeStageRepo) Create(_ dbctx.Context, stages []*domain.WorkflowStage) ([]*domain.WorkflowStage, error) {
	for _, s := range stages {
		r.stages[s.ID] = s
	}
	return stages, nil
}

func (r *fakeStageRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.WorkflowStage, error) {
	return r.stages[id], nil
}

func (r *fakeStageRepo) ListForJob(_ dbctx.Context, jobID uuid.UUID, includeInactive bool) ([]*domain.WorkflowStage, error) {
	var out []*domain.WorkflowStage
	for _, s := range r.stages {
		if s.JobID == jobID && (includeInactive || s.IsActive) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeStageRepo) GetByJobAndName(_ dbctx.Context, jobID uuid.UUID, name string) (*domain.WorkflowStage, error) {
	for _, s := range r.stages {
		if s.JobID == jobID && s.Name == name && s.IsActive {
			return s, nil
		}
	}
	return nil, nil
}

type fakeTransitionRepo struct {
	transitions []*domain.StageTransition
	// closeOpenDenied forces CloseOpen to report a lost race.
	closeOpenDenied bool
}

func (r *fakeTransitionRepo) Create(_ dbctx.Context, transitions []*domain.StageTransition) ([]*domain.StageTransition, error) {
	r.transitions = append(r.transitions, transitions...)
	return transitions, nil
}

func (r *fakeTransitionRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.StageTransition, error) {
	for _, t := range r.transitions {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTransitionRepo) GetOpenForApplication(_ dbctx.Context, applicationID uuid.UUID, _ bool) (*domain.StageTransition, error) {
	for _, t := range r.transitions {
		if t.ApplicationID == applicationID && t.ExitedAt == nil {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTransitionRepo) CloseOpen(_ dbctx.Context, id uuid.UUID, exitedAt time.Time) (bool, error) {
	if r.closeOpenDenied {
		return false, nil
	}
	for _, t := range r.transitions {
		if t.ID == id && t.ExitedAt == nil {
			at := exitedAt
			t.ExitedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTransitionRepo) MarkEscalated(_ dbctx.Context, id uuid.UUID, at time.Time, to uuid.UUID) (bool, error) {
	for _, t := range r.transitions {
		if t.ID == id && !t.IsEscalated && t.ExitedAt == nil {
			t.IsEscalated = true
			escalatedAt := at
			escalatedTo := to
			t.EscalatedAt = &escalatedAt
			t.EscalatedTo = &escalatedTo
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTransitionRepo) ListForApplication(_ dbctx.Context, applicationID uuid.UUID) ([]*domain.StageTransition, error) {
	var out []*domain.StageTransition
	for _, t := range r.transitions {
		if t.ApplicationID == applicationID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTransitionRepo) ListOpenOverdue(_ dbctx.Context, now time.Time) ([]*domain.StageTransition, error) {
	var out []*domain.StageTransition
	for _, t := range r.transitions {
		if t.ExitedAt == nil && !t.IsEscalated && t.SLADeadline.Before(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTransitionRepo) ListOpenForStage(_ dbctx.Context, stageID uuid.UUID) ([]*domain.StageTransition, error) {
	var out []*domain.StageTransition
	for _, t := range r.transitions {
		if t.StageID == stageID && t.ExitedAt == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	entries []*domain.ApplicationStatusHistory
}

func (r *fakeHistoryRepo) Create(_ dbctx.Context, entries []*domain.ApplicationStatusHistory) ([]*domain.ApplicationStatusHistory, error) {
	r.entries = append(r.entries, entries...)
	return entries, nil
}

func (r *fakeHistoryRepo) ListForApplication(_ dbctx.Context, applicationID uuid.UUID) ([]*domain.ApplicationStatusHistory, error) {
	var out []*domain.ApplicationStatusHistory
	for _, e := range r.entries {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeJobRepo struct {
	jobs map[uuid.UUID]*domain.JobPosting
}

func newFakeJobRepo(jobs ...*domain.JobPosting) *fakeJobRepo {
	r := &fakeJobRepo{jobs: make(map[uuid.UUID]*domain.JobPosting)}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *fakeJobRepo) Create(_ dbctx.Context, jobs []*domain.JobPosting) ([]*domain.JobPosting, error) {
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return jobs, nil
}

func (r *fakeJobRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.JobPosting, error) {
	return r.jobs[id], nil
}

type fakeCandidateRepo struct {
	candidates map[uuid.UUID]*domain.Candidate
}

func newFakeCandidateRepo(candidates ...*domain.Candidate) *fakeCandidateRepo {
	r := &fakeCandidateRepo{candidates: make(map[uuid.UUID]*domain.Candidate)}
	for _, c := range candidates {
		r.candidates[c.ID] = c
	}
	return r
}

func (r *fakeCandidateRepo) Create(_ dbctx.Context, candidates []*domain.Candidate) ([]*domain.Candidate, error) {
	for _, c := range candidates {
		r.candidates[c.ID] = c
	}
	return candidates, nil
}

func (r *fakeCandidateRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Candidate, error) {
	return r.candidates[id], nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ dbctx.Context, users []*domain.User) ([]*domain.User, error) {
	for _, u := range users {
		r.users[u.ID] = u
	}
	return users, nil
}

func (r *fakeUserRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.User, error) {
	return r.users[id], nil
}
