package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/hireloop/ats-backend/internal/data/repos"
	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
	"github.com/hireloop/ats-backend/internal/platform/clock"
	"github.com/hireloop/ats-backend/internal/platform/envutil"
	"github.com/hireloop/ats-backend/internal/services"
)

type BulkKind string

const (
	BulkSetStatus   BulkKind = "set_status"
	BulkReject      BulkKind = "reject"
	BulkApprove     BulkKind = "approve"
	BulkMoveToStage BulkKind = "move_to_stage"
)

const (
	OpPending   = "pending"
	OpRunning   = "running"
	OpCompleted = "completed"
	OpFailed    = "failed"
	OpCancelled = "cancelled"
)

// BulkRequest describes one bulk operation over a set of applications.
type BulkRequest struct {
	Kind           BulkKind    `json:"kind"`
	ApplicationIDs []uuid.UUID `json:"application_ids"`
	Status         string      `json:"status,omitempty"`   // set_status only
	StageID        uuid.UUID   `json:"stage_id,omitempty"` // move_to_stage only
	Reason         string      `json:"reason,omitempty"`
	ActorID        uuid.UUID   `json:"actor_id,omitempty"`
}

// BulkItemError is one failed item's record.
type BulkItemError struct {
	ApplicationID uuid.UUID `json:"application_id"`
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
}

// BulkProgress is a point-in-time snapshot of an operation. Processed always
// equals Successful + Failed.
type BulkProgress struct {
	OperationID        uuid.UUID       `json:"operation_id"`
	Kind               BulkKind        `json:"kind"`
	Status             string          `json:"status"`
	Total              int             `json:"total"`
	Processed          int             `json:"processed"`
	Successful         int             `json:"successful"`
	Failed             int             `json:"failed"`
	ProgressPercentage float64         `json:"progress_percentage"`
	Errors             []BulkItemError `json:"errors,omitempty"`
	StartedAt          time.Time       `json:"started_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

func (p *BulkProgress) terminal() bool {
	return p.Status == OpCompleted || p.Status == OpFailed || p.Status == OpCancelled
}

// Advancer is the slice of the workflow engine move_to_stage needs.
type Advancer interface {
	Advance(ctx context.Context, applicationID, stageID, actorID uuid.UUID, notes string) (*services.AdvanceResult, error)
}

type bulkOperation struct {
	progress BulkProgress
	cancel   chan struct{}
}

type BulkConfig struct {
	RecordTTL time.Duration
	RecordCap int
}

func BulkConfigFromEnv() BulkConfig {
	return BulkConfig{
		RecordTTL: envutil.Duration("BULK_RECORD_TTL", 24*time.Hour),
		RecordCap: envutil.Int("BULK_RECORD_CAP", 1000),
	}
}

// BulkCoordinator runs bulk operations asynchronously, one worker goroutine
// per operation, and keeps observable progress records in memory. Records of
// finished operations are retained for RecordTTL and capped at RecordCap,
// oldest-terminal-first eviction. When REDIS_ADDR is set every progress
// update is mirrored to Redis so other instances can serve progress reads.
type BulkCoordinator struct {
	log      *logger.Logger
	cfg      BulkConfig
	db       *gorm.DB
	clk      clock.Clock
	apps     repos.ApplicationRepo
	history  repos.StatusHistoryRepo
	engine   Advancer
	notifier services.Notifier
	rdb      *redis.Client

	mu  sync.Mutex
	ops map[uuid.UUID]*bulkOperation
	wg  sync.WaitGroup
}

func NewBulkCoordinator(
	baseLog *logger.Logger,
	cfg BulkConfig,
	db *gorm.DB,
	clk clock.Clock,
	r repos.All,
	engine Advancer,
	notifier services.Notifier,
) *BulkCoordinator {
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = 24 * time.Hour
	}
	if cfg.RecordCap <= 0 {
		cfg.RecordCap = 1000
	}
	c := &BulkCoordinator{
		log:      baseLog.With("job", "BulkCoordinator"),
		cfg:      cfg,
		db:       db,
		clk:      clk,
		apps:     r.Applications,
		history:  r.StatusHistory,
		engine:   engine,
		notifier: notifier,
		ops:      make(map[uuid.UUID]*bulkOperation),
	}
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		c.rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envutil.Int("REDIS_DB", 0),
		})
	}
	return c
}

// Submit validates the request, registers the operation, and starts its
// worker. Validation is atomic: any unknown application id fails the whole
// submission with UnknownApplicationsError and nothing is recorded.
func (c *BulkCoordinator) Submit(ctx context.Context, req BulkRequest) (*BulkProgress, error) {
	if len(req.ApplicationIDs) == 0 {
		return nil, fmt.Errorf("application_ids required")
	}
	switch req.Kind {
	case BulkSetStatus:
		if strings.TrimSpace(req.Status) == "" {
			return nil, fmt.Errorf("status required for %s", req.Kind)
		}
	case BulkMoveToStage:
		if req.StageID == uuid.Nil {
			return nil, fmt.Errorf("stage_id required for %s", req.Kind)
		}
	case BulkReject, BulkApprove:
	default:
		return nil, fmt.Errorf("unknown bulk kind %q", req.Kind)
	}

	seen := make(map[uuid.UUID]bool, len(req.ApplicationIDs))
	ids := make([]uuid.UUID, 0, len(req.ApplicationIDs))
	for _, id := range req.ApplicationIDs {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	found, err := c.apps.GetByIDs(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		return nil, err
	}
	foundSet := make(map[uuid.UUID]bool, len(found))
	for _, app := range found {
		foundSet[app.ID] = true
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if !foundSet[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.UnknownApplicationsError{IDs: missing}
	}

	op := &bulkOperation{
		progress: BulkProgress{
			OperationID: uuid.New(),
			Kind:        req.Kind,
			Status:      OpPending,
			Total:       len(ids),
			StartedAt:   c.clk.Now(),
		},
		cancel: make(chan struct{}),
	}

	c.mu.Lock()
	c.pruneLocked()
	c.ops[op.progress.OperationID] = op
	snapshot := op.progress
	c.mu.Unlock()
	c.mirror(ctx, snapshot)

	req.ApplicationIDs = ids
	c.wg.Add(1)
	go c.run(op.progress.OperationID, req)

	c.log.Info("Bulk operation submitted",
		"operation_id", snapshot.OperationID.String(),
		"kind", string(req.Kind),
		"total", snapshot.Total,
	)
	return &snapshot, nil
}

// GetProgress returns a snapshot of the operation's progress.
func (c *BulkCoordinator) GetProgress(operationID uuid.UUID) (*BulkProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.ops[operationID]
	if !ok {
		return nil, domain.ErrOperationNotFound
	}
	snapshot := op.progress
	snapshot.Errors = append([]BulkItemError(nil), op.progress.Errors...)
	return &snapshot, nil
}

// Cancel requests cooperative cancellation. Items already processed stay
// processed; the worker stops before the next item. Cancelling a terminal
// operation returns ErrOperationTerminal.
func (c *BulkCoordinator) Cancel(operationID uuid.UUID) (*BulkProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.ops[operationID]
	if !ok {
		return nil, domain.ErrOperationNotFound
	}
	if op.progress.terminal() {
		return nil, domain.ErrOperationTerminal
	}
	select {
	case <-op.cancel:
	default:
		close(op.cancel)
	}
	snapshot := op.progress
	return &snapshot, nil
}

// Cleanup drops a terminal operation's record and its Redis mirror. Cleaning
// up an operation that is still pending or running returns
// ErrOperationInProgress.
func (c *BulkCoordinator) Cleanup(ctx context.Context, operationID uuid.UUID) error {
	c.mu.Lock()
	op, ok := c.ops[operationID]
	if !ok {
		c.mu.Unlock()
		return domain.ErrOperationNotFound
	}
	if !op.progress.terminal() {
		c.mu.Unlock()
		return domain.ErrOperationInProgress
	}
	delete(c.ops, operationID)
	c.mu.Unlock()
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, "bulk:progress:"+operationID.String()).Err()
	}
	return nil
}

// Shutdown waits for in-flight workers to drain.
func (c *BulkCoordinator) Shutdown() {
	c.wg.Wait()
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
}

func (c *BulkCoordinator) run(operationID uuid.UUID, req BulkRequest) {
	defer c.wg.Done()
	// Worker outlives the submitting request, so it gets its own context.
	ctx := context.Background()

	// A worker crash must not leave the record stuck in running.
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Bulk worker panicked", "operation_id", operationID.String(), "panic", fmt.Sprint(r))
			now := c.clk.Now()
			c.update(ctx, operationID, func(p *BulkProgress) {
				p.Status = OpFailed
				p.CompletedAt = &now
			})
		}
	}()

	c.update(ctx, operationID, func(p *BulkProgress) {
		p.Status = OpRunning
	})

	cancelled := false
	for _, appID := range req.ApplicationIDs {
		c.mu.Lock()
		op := c.ops[operationID]
		c.mu.Unlock()
		if op == nil {
			return
		}
		select {
		case <-op.cancel:
			cancelled = true
		default:
		}
		if cancelled {
			break
		}

		err := c.applyItem(ctx, req, appID)
		c.update(ctx, operationID, func(p *BulkProgress) {
			p.Processed++
			if err != nil {
				p.Failed++
				p.Errors = append(p.Errors, BulkItemError{
					ApplicationID: appID,
					Kind:          domain.ErrorKind(err),
					Message:       err.Error(),
				})
			} else {
				p.Successful++
			}
		})
	}

	now := c.clk.Now()
	c.update(ctx, operationID, func(p *BulkProgress) {
		switch {
		case cancelled:
			p.Status = OpCancelled
		case p.Successful > 0 || p.Total == 0:
			p.Status = OpCompleted
		default:
			p.Status = OpFailed
		}
		p.CompletedAt = &now
	})

	c.mu.Lock()
	op := c.ops[operationID]
	var final BulkProgress
	if op != nil {
		final = op.progress
	}
	c.mu.Unlock()
	c.log.Info("Bulk operation finished",
		"operation_id", operationID.String(),
		"status", final.Status,
		"successful", final.Successful,
		"failed", final.Failed,
	)
}

func (c *BulkCoordinator) applyItem(ctx context.Context, req BulkRequest, appID uuid.UUID) error {
	switch req.Kind {
	case BulkMoveToStage:
		_, err := c.engine.Advance(ctx, appID, req.StageID, req.ActorID, req.Reason)
		return err
	case BulkSetStatus:
		return c.setStatus(ctx, appID, services.CanonicalStatus(req.Status), req.ActorID, req.Reason)
	case BulkReject:
		return c.setStatus(ctx, appID, "rejected", req.ActorID, req.Reason)
	case BulkApprove:
		return c.setStatus(ctx, appID, "approved", req.ActorID, req.Reason)
	default:
		return fmt.Errorf("unknown bulk kind %q", req.Kind)
	}
}

// setStatus updates the denormalized status and appends history in one
// transaction, then notifies best-effort.
func (c *BulkCoordinator) setStatus(ctx context.Context, appID uuid.UUID, status string, actorID uuid.UUID, reason string) error {
	if reason == "" {
		reason = "Bulk status update"
	}

	var entry *domain.ApplicationStatusHistory
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		app, err := c.apps.GetByID(txc, appID)
		if err != nil {
			return err
		}
		if app == nil {
			return domain.ErrApplicationNotFound
		}
		if app.Status == status {
			return nil
		}
		if err := c.apps.UpdateStatus(txc, appID, status); err != nil {
			return err
		}
		entry = &domain.ApplicationStatusHistory{
			ID:             uuid.New(),
			ApplicationID:  appID,
			PreviousStatus: app.Status,
			NewStatus:      status,
			ChangedBy:      actorID,
			ChangeReason:   reason,
			CreatedAt:      c.clk.Now(),
		}
		_, err = c.history.Create(txc, []*domain.ApplicationStatusHistory{entry})
		return err
	})
	if err != nil {
		return err
	}
	if entry != nil && c.notifier != nil {
		c.notifier.NotifyStatusChange(ctx, entry)
	}
	return nil
}

func (c *BulkCoordinator) update(ctx context.Context, operationID uuid.UUID, fn func(*BulkProgress)) {
	c.mu.Lock()
	op, ok := c.ops[operationID]
	if !ok {
		c.mu.Unlock()
		return
	}
	fn(&op.progress)
	if op.progress.Total > 0 {
		pct := float64(op.progress.Processed) / float64(op.progress.Total) * 100
		op.progress.ProgressPercentage = math.Round(pct*100) / 100
	}
	snapshot := op.progress
	c.mu.Unlock()
	c.mirror(ctx, snapshot)
}

// mirror pushes the snapshot to Redis, best-effort.
func (c *BulkCoordinator) mirror(ctx context.Context, p BulkProgress) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	key := "bulk:progress:" + p.OperationID.String()
	if err := c.rdb.Set(ctx, key, raw, c.cfg.RecordTTL).Err(); err != nil {
		c.log.Warn("Bulk progress mirror failed", "operation_id", p.OperationID.String(), "error", err.Error())
	}
}

// pruneLocked drops expired terminal records, then evicts oldest terminal
// records past the cap. Callers hold c.mu.
func (c *BulkCoordinator) pruneLocked() {
	now := c.clk.Now()
	for id, op := range c.ops {
		if op.progress.terminal() && op.progress.CompletedAt != nil &&
			now.Sub(*op.progress.CompletedAt) > c.cfg.RecordTTL {
			delete(c.ops, id)
		}
	}
	if len(c.ops) < c.cfg.RecordCap {
		return
	}

	type aged struct {
		id uuid.UUID
		at time.Time
	}
	var terminal []aged
	for id, op := range c.ops {
		if op.progress.terminal() && op.progress.CompletedAt != nil {
			terminal = append(terminal, aged{id: id, at: *op.progress.CompletedAt})
		}
	}
	sort.Slice(terminal, func(i, j int) bool { return terminal[i].at.Before(terminal[j].at) })
	for _, t := range terminal {
		if len(c.ops) < c.cfg.RecordCap {
			break
		}
		delete(c.ops, t.id)
	}
}
