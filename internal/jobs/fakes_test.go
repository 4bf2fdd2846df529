package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
	"github.com/hireloop/ats-backend/internal/services"
)

func testLogger(tb interface{ Fatalf(string, ...any) }) *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return log
}

type fakeTransitionRepo struct {
	overdue []*domain.StageTransition
	listErr error
}

func (r *fakeTransitionRepo) Create(_ dbctx.Context, transitions []*domain.StageTransition) ([]*domain.StageTransition, error) {
	return transitions, nil
}

func (r *fakeTransitionRepo) GetByID(_ dbctx.Context, _ uuid.UUID) (*domain.StageTransition, error) {
	return nil, nil
}

func (r *fakeTransitionRepo) GetOpenForApplication(_ dbctx.Context, _ uuid.UUID, _ bool) (*domain.StageTransition, error) {
	return nil, nil
}

func (r *fakeTransitionRepo) CloseOpen(_ dbctx.Context, _ uuid.UUID, _ time.Time) (bool, error) {
	return false, nil
}

func (r *fakeTransitionRepo) MarkEscalated(_ dbctx.Context, _ uuid.UUID, _ time.Time, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (r *fakeTransitionRepo) ListForApplication(_ dbctx.Context, _ uuid.UUID) ([]*domain.StageTransition, error) {
	return nil, nil
}

func (r *fakeTransitionRepo) ListOpenOverdue(_ dbctx.Context, _ time.Time) ([]*domain.StageTransition, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.overdue, nil
}

func (r *fakeTransitionRepo) ListOpenForStage(_ dbctx.Context, _ uuid.UUID) ([]*domain.StageTransition, error) {
	return nil, nil
}

type escalationCall struct {
	transitionID uuid.UUID
	severity     string
}

type fakeEscalator struct {
	mu    sync.Mutex
	calls []escalationCall
	// errFor returns a per-transition error.
	errFor map[uuid.UUID]error
}

func (e *fakeEscalator) Escalate(_ context.Context, transitionID uuid.UUID, severity string) (*domain.SLAEscalation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, escalationCall{transitionID: transitionID, severity: severity})
	if err, ok := e.errFor[transitionID]; ok {
		return nil, err
	}
	return &domain.SLAEscalation{ID: uuid.New(), StageTransitionID: transitionID, EscalationType: severity}, nil
}

type fakeApplicationRepo struct {
	apps map[uuid.UUID]*domain.Application
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
	return nil
}

type fakeAdvancer struct {
	mu     sync.Mutex
	calls  []uuid.UUID
	errFor map[uuid.UUID]error
	// gate, when set, blocks each Advance until released.
	gate chan struct{}
	// started signals each Advance entry when set.
	started chan struct{}
}

func (a *fakeAdvancer) Advance(_ context.Context, applicationID, _, _ uuid.UUID, _ string) (*services.AdvanceResult, error) {
	if a.started != nil {
		a.started <- struct{}{}
	}
	if a.gate != nil {
		<-a.gate
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, applicationID)
	if err, ok := a.errFor[applicationID]; ok {
		return nil, err
	}
	return &services.AdvanceResult{NewStatus: "interview"}, nil
}
