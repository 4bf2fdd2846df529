package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hireloop/ats-backend/internal/data/repos"
	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
	"github.com/hireloop/ats-backend/internal/platform/clock"
	"github.com/hireloop/ats-backend/internal/platform/envutil"
	"github.com/hireloop/ats-backend/internal/services"
)

// Escalator is the slice of the escalation service the monitor needs.
type Escalator interface {
	Escalate(ctx context.Context, transitionID uuid.UUID, severity string) (*domain.SLAEscalation, error)
}

type SLAMonitorConfig struct {
	ScanInterval time.Duration
	ScanBackoff  time.Duration
	WarningCap   time.Duration
	CriticalCap  time.Duration
}

func SLAMonitorConfigFromEnv() SLAMonitorConfig {
	warningCap, criticalCap := services.SeverityCaps()
	return SLAMonitorConfig{
		ScanInterval: envutil.Duration("SLA_SCAN_INTERVAL", 5*time.Minute),
		ScanBackoff:  envutil.Duration("SLA_SCAN_BACKOFF", 1*time.Minute),
		WarningCap:   warningCap,
		CriticalCap:  criticalCap,
	}
}

// SLAMonitor periodically sweeps open transitions past their SLA deadline and
// escalates each one once. A failed sweep shortens the next wait to the
// backoff interval instead of the scan interval.
type SLAMonitor struct {
	log         *logger.Logger
	cfg         SLAMonitorConfig
	clk         clock.Clock
	transitions repos.TransitionRepo
	escalator   Escalator
	tracer      trace.Tracer

	stop chan struct{}
	done chan struct{}
}

func NewSLAMonitor(baseLog *logger.Logger, cfg SLAMonitorConfig, clk clock.Clock, transitions repos.TransitionRepo, escalator Escalator) *SLAMonitor {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Minute
	}
	if cfg.ScanBackoff <= 0 {
		cfg.ScanBackoff = 1 * time.Minute
	}
	return &SLAMonitor{
		log:         baseLog.With("job", "SLAMonitor"),
		cfg:         cfg,
		clk:         clk,
		transitions: transitions,
		escalator:   escalator,
		tracer:      otel.Tracer("jobs.slamonitor"),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (m *SLAMonitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop signals the loop and waits for the in-flight sweep to finish.
func (m *SLAMonitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *SLAMonitor) run(ctx context.Context) {
	defer close(m.done)
	m.log.Info("SLA monitor started",
		"scan_interval", m.cfg.ScanInterval.String(),
		"scan_backoff", m.cfg.ScanBackoff.String(),
	)

	wait := m.cfg.ScanInterval
	// Zero initial delay so the first sweep runs at startup.
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("SLA monitor stopping", "reason", "context cancelled")
			return
		case <-m.stop:
			m.log.Info("SLA monitor stopping", "reason", "stop requested")
			return
		case <-timer.C:
			escalated, err := m.scanOnce(ctx)
			if err != nil {
				m.log.Error("SLA sweep failed", "error", err.Error())
				wait = m.cfg.ScanBackoff
			} else {
				if escalated > 0 {
					m.log.Info("SLA sweep escalated transitions", "count", escalated)
				}
				wait = m.cfg.ScanInterval
			}
			timer.Reset(wait)
		}
	}
}

// scanOnce escalates every overdue open transition not yet escalated. Losing
// the escalation race to another writer is not an error.
func (m *SLAMonitor) scanOnce(ctx context.Context) (int, error) {
	ctx, span := m.tracer.Start(ctx, "SLAMonitor.scanOnce")
	defer span.End()

	now := m.clk.Now()
	overdue, err := m.transitions.ListOpenOverdue(dbctx.Context{Ctx: ctx}, now)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("overdue_count", len(overdue)))

	escalated := 0
	var lastErr error
	for _, t := range overdue {
		severity := services.SeverityFor(now.Sub(t.SLADeadline), m.cfg.WarningCap, m.cfg.CriticalCap)
		if _, err := m.escalator.Escalate(ctx, t.ID, severity); err != nil {
			if errors.Is(err, domain.ErrAlreadyEscalated) || errors.Is(err, domain.ErrTransitionNotFound) {
				continue
			}
			m.log.Error("Escalation failed",
				"transition_id", t.ID.String(),
				"application_id", t.ApplicationID.String(),
				"error", err.Error(),
			)
			lastErr = err
			continue
		}
		escalated++
	}
	return escalated, lastErr
}
