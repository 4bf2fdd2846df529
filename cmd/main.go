package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hireloop/ats-backend/internal/data/db"
	"github.com/hireloop/ats-backend/internal/data/repos"
	"github.com/hireloop/ats-backend/internal/handlers"
	"github.com/hireloop/ats-backend/internal/jobs"
	"github.com/hireloop/ats-backend/internal/observability"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
	"github.com/hireloop/ats-backend/internal/platform/clock"
	"github.com/hireloop/ats-backend/internal/platform/envutil"
	"github.com/hireloop/ats-backend/internal/platform/sendgrid"
	"github.com/hireloop/ats-backend/internal/server"
	"github.com/hireloop/ats-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownTracing, err := observability.Setup(ctx, log, "ats-backend")
	if err != nil {
		log.Warn("Tracing init failed", "error", err.Error())
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err.Error())
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err.Error())
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	allRepos := repos.New(thePG, log)

	// Services
	log.Info("Setting up services from main...")
	clk := clock.System()
	planner := services.NewNotificationPlanner(clk)
	var dispatcher services.NotificationDispatcher
	if mail, err := sendgrid.NewFromEnv(log); err != nil {
		log.Warn("SendGrid unavailable, notifications will be logged only", "error", err.Error())
		dispatcher = services.NewLogDispatcher(log)
	} else {
		dispatcher = services.NewEmailDispatcher(log, mail)
	}
	notifier := services.NewNotifier(log, allRepos.Applications, allRepos.Candidates, allRepos.JobPostings, allRepos.Users, planner, dispatcher)
	audit := services.NewAuditLogger(log, allRepos.AuditLogs)
	engine := services.NewWorkflowEngine(log, thePG, clk, allRepos, notifier, audit)
	registry := services.NewStageRegistry(log, thePG, clk, allRepos)
	escalations := services.NewEscalationService(log, thePG, clk, allRepos, audit)

	// Background jobs
	log.Info("Setting up background jobs from main...")
	monitor := jobs.NewSLAMonitor(log, jobs.SLAMonitorConfigFromEnv(), clk, allRepos.Transitions, escalations)
	coordinator := jobs.NewBulkCoordinator(log, jobs.BulkConfigFromEnv(), thePG, clk, allRepos, engine, notifier)

	// Handlers
	log.Info("Setting up handlers from main...")
	workflowHandler := handlers.NewWorkflowHandler(engine, registry)
	escalationHandler := handlers.NewEscalationHandler(escalations)
	bulkHandler := handlers.NewBulkHandler(coordinator)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		WorkflowHandler:   workflowHandler,
		EscalationHandler: escalationHandler,
		BulkHandler:       bulkHandler,
	})

	port := envutil.String("PORT", "8080")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		monitor.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("Server shutdown failed", "error", err.Error())
		}
		monitor.Stop()
		coordinator.Shutdown()
		if shutdownTracing != nil {
			if err := shutdownTracing(shutdownCtx); err != nil {
				log.Warn("Tracing shutdown failed", "error", err.Error())
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}
