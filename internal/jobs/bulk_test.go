package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hireloop/ats-backend/internal/data/repos"
	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/platform/clock"
)

func testCoordinator(t *testing.T, apps *fakeApplicationRepo, advancer Advancer) *BulkCoordinator {
	t.Helper()
	t.Setenv("REDIS_ADDR", "")
	return NewBulkCoordinator(
		testLogger(t),
		BulkConfig{RecordTTL: 24 * time.Hour, RecordCap: 1000},
		nil,
		clock.NewFake(time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)),
		repos.All{Applications: apps},
		advancer,
		nil,
	)
}

func waitTerminal(t *testing.T, c *BulkCoordinator, id uuid.UUID) *BulkProgress {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p, err := c.GetProgress(id)
		if err != nil {
			t.Fatalf("GetProgress: %v", err)
		}
		if p.terminal() {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("operation did not finish in time")
	return nil
}

func seedApps(n int) (*fakeApplicationRepo, []uuid.UUID) {
	repo := newFakeApplicationRepo()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		app := &domain.Application{ID: uuid.New(), JobID: uuid.New(), Status: "applied"}
		repo.apps[app.ID] = app
		ids = append(ids, app.ID)
	}
	return repo, ids
}

func TestBulkSubmitUnknownApplications(t *testing.T) {
	apps, ids := seedApps(2)
	c := testCoordinator(t, apps, &fakeAdvancer{})

	missing := uuid.New()
	_, err := c.Submit(t.Context(), BulkRequest{
		Kind:           BulkMoveToStage,
		StageID:        uuid.New(),
		ApplicationIDs: append(ids, missing),
	})
	var unknown *domain.UnknownApplicationsError
	if !errors.As(err, &unknown) {
		t.Fatalf("want UnknownApplicationsError, got %v", err)
	}
	if len(unknown.IDs) != 1 || unknown.IDs[0] != missing {
		t.Errorf("unknown ids: want=[%s] got=%v", missing, unknown.IDs)
	}
}

func TestBulkSubmitValidation(t *testing.T) {
	apps, ids := seedApps(1)
	c := testCoordinator(t, apps, &fakeAdvancer{})

	if _, err := c.Submit(t.Context(), BulkRequest{Kind: BulkMoveToStage, ApplicationIDs: nil}); err == nil {
		t.Error("empty id list should fail")
	}
	if _, err := c.Submit(t.Context(), BulkRequest{Kind: BulkMoveToStage, ApplicationIDs: ids}); err == nil {
		t.Error("move_to_stage without stage_id should fail")
	}
	if _, err := c.Submit(t.Context(), BulkRequest{Kind: BulkSetStatus, ApplicationIDs: ids}); err == nil {
		t.Error("set_status without status should fail")
	}
	if _, err := c.Submit(t.Context(), BulkRequest{Kind: "bogus", ApplicationIDs: ids}); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestBulkMoveToStageCompletes(t *testing.T) {
	apps, ids := seedApps(4)
	advancer := &fakeAdvancer{}
	c := testCoordinator(t, apps, advancer)

	progress, err := c.Submit(t.Context(), BulkRequest{
		Kind:           BulkMoveToStage,
		StageID:        uuid.New(),
		ApplicationIDs: ids,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if progress.Total != 4 {
		t.Errorf("total: want=4 got=%d", progress.Total)
	}

	final := waitTerminal(t, c, progress.OperationID)
	if final.Status != OpCompleted {
		t.Errorf("status: want=%s got=%s", OpCompleted, final.Status)
	}
	if final.Processed != 4 || final.Successful != 4 || final.Failed != 0 {
		t.Errorf("counts: processed=%d successful=%d failed=%d", final.Processed, final.Successful, final.Failed)
	}
	if final.ProgressPercentage != 100 {
		t.Errorf("progress: want=100 got=%v", final.ProgressPercentage)
	}
	if final.CompletedAt == nil {
		t.Error("completed_at should be set")
	}
	if len(advancer.calls) != 4 {
		t.Errorf("advance calls: want=4 got=%d", len(advancer.calls))
	}
}

func TestBulkPartialFailure(t *testing.T) {
	apps, ids := seedApps(3)
	advancer := &fakeAdvancer{errFor: map[uuid.UUID]error{ids[1]: domain.ErrConcurrentAdvance}}
	c := testCoordinator(t, apps, advancer)

	progress, err := c.Submit(t.Context(), BulkRequest{
		Kind:           BulkMoveToStage,
		StageID:        uuid.New(),
		ApplicationIDs: ids,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitTerminal(t, c, progress.OperationID)
	if final.Status != OpCompleted {
		t.Errorf("status: want=%s got=%s", OpCompleted, final.Status)
	}
	if final.Successful != 2 || final.Failed != 1 {
		t.Errorf("counts: successful=%d failed=%d", final.Successful, final.Failed)
	}
	if final.Processed != final.Successful+final.Failed {
		t.Errorf("processed=%d should equal successful+failed=%d", final.Processed, final.Successful+final.Failed)
	}
	if len(final.Errors) != 1 {
		t.Fatalf("error records: want=1 got=%d", len(final.Errors))
	}
	rec := final.Errors[0]
	if rec.ApplicationID != ids[1] {
		t.Errorf("error application: want=%s got=%s", ids[1], rec.ApplicationID)
	}
	if rec.Kind != "concurrent_advance" {
		t.Errorf("error kind: want=concurrent_advance got=%s", rec.Kind)
	}
}

func TestBulkAllItemsFailedMarksFailed(t *testing.T) {
	apps, ids := seedApps(2)
	advancer := &fakeAdvancer{errFor: map[uuid.UUID]error{
		ids[0]: domain.ErrConcurrentAdvance,
		ids[1]: domain.ErrStageNotFound,
	}}
	c := testCoordinator(t, apps, advancer)

	progress, err := c.Submit(t.Context(), BulkRequest{
		Kind:           BulkMoveToStage,
		StageID:        uuid.New(),
		ApplicationIDs: ids,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitTerminal(t, c, progress.OperationID)
	if final.Status != OpFailed {
		t.Errorf("status: want=%s got=%s", OpFailed, final.Status)
	}
	if final.Processed != 2 || final.Failed != 2 || final.Successful != 0 {
		t.Errorf("counts: processed=%d successful=%d failed=%d", final.Processed, final.Successful, final.Failed)
	}
}

func TestBulkCleanup(t *testing.T) {
	apps, ids := seedApps(1)
	advancer := &fakeAdvancer{
		gate:    make(chan struct{}),
		started: make(chan struct{}, len(ids)),
	}
	c := testCoordinator(t, apps, advancer)

	progress, err := c.Submit(t.Context(), BulkRequest{
		Kind:           BulkMoveToStage,
		StageID:        uuid.New(),
		ApplicationIDs: ids,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-advancer.started
	if err := c.Cleanup(t.Context(), progress.OperationID); !errors.Is(err, domain.ErrOperationInProgress) {
		t.Errorf("cleanup of a running op: want ErrOperationInProgress got %v", err)
	}
	close(advancer.gate)

	waitTerminal(t, c, progress.OperationID)
	if err := c.Cleanup(t.Context(), progress.OperationID); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := c.GetProgress(progress.OperationID); !errors.Is(err, domain.ErrOperationNotFound) {
		t.Errorf("progress after cleanup: want ErrOperationNotFound got %v", err)
	}
	if err := c.Cleanup(t.Context(), progress.OperationID); !errors.Is(err, domain.ErrOperationNotFound) {
		t.Errorf("second cleanup: want ErrOperationNotFound got %v", err)
	}
}

func TestBulkCancelStopsBetweenItems(t *testing.T) {
	apps, ids := seedApps(3)
	advancer := &fakeAdvancer{
		gate:    make(chan struct{}),
		started: make(chan struct{}, len(ids)),
	}
	c := testCoordinator(t, apps, advancer)

	progress, err := c.Submit(t.Context(), BulkRequest{
		Kind:           BulkMoveToStage,
		StageID:        uuid.New(),
		ApplicationIDs: ids,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// First item is in flight; cancel before releasing it.
	<-advancer.started
	if _, err := c.Cancel(progress.OperationID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	close(advancer.gate)

	final := waitTerminal(t, c, progress.OperationID)
	if final.Status != OpCancelled {
		t.Errorf("status: want=%s got=%s", OpCancelled, final.Status)
	}
	if final.Processed != 1 {
		t.Errorf("processed: want=1 got=%d", final.Processed)
	}

	if _, err := c.Cancel(progress.OperationID); !errors.Is(err, domain.ErrOperationTerminal) {
		t.Errorf("cancelling a terminal op: want ErrOperationTerminal got %v", err)
	}
}

func TestBulkGetProgressUnknown(t *testing.T) {
	apps, _ := seedApps(0)
	c := testCoordinator(t, apps, &fakeAdvancer{})
	if _, err := c.GetProgress(uuid.New()); !errors.Is(err, domain.ErrOperationNotFound) {
		t.Errorf("want ErrOperationNotFound got %v", err)
	}
}

func TestBulkPruneRetention(t *testing.T) {
	apps, _ := seedApps(0)
	c := testCoordinator(t, apps, &fakeAdvancer{})
	clk := c.clk.(*clock.Fake)

	finished := func(at time.Time) *bulkOperation {
		done := at
		return &bulkOperation{
			progress: BulkProgress{
				OperationID: uuid.New(),
				Status:      OpCompleted,
				CompletedAt: &done,
			},
			cancel: make(chan struct{}),
		}
	}

	expired := finished(clk.Now().Add(-48 * time.Hour))
	fresh := finished(clk.Now().Add(-1 * time.Hour))
	c.ops[expired.progress.OperationID] = expired
	c.ops[fresh.progress.OperationID] = fresh

	c.mu.Lock()
	c.pruneLocked()
	c.mu.Unlock()

	if _, ok := c.ops[expired.progress.OperationID]; ok {
		t.Error("record past TTL should be pruned")
	}
	if _, ok := c.ops[fresh.progress.OperationID]; !ok {
		t.Error("record within TTL should survive")
	}

	// Cap eviction drops the oldest terminal records first.
	c.cfg.RecordCap = 2
	oldest := finished(clk.Now().Add(-3 * time.Hour))
	newer := finished(clk.Now().Add(-2 * time.Hour))
	c.ops[oldest.progress.OperationID] = oldest
	c.ops[newer.progress.OperationID] = newer

	c.mu.Lock()
	c.pruneLocked()
	c.mu.Unlock()

	if len(c.ops) > 2 {
		t.Errorf("ops after cap prune: want<=2 got=%d", len(c.ops))
	}
	if _, ok := c.ops[oldest.progress.OperationID]; ok {
		t.Error("oldest terminal record should be evicted first")
	}
}
