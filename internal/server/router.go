package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/hireloop/ats-backend/internal/handlers"
	"github.com/hireloop/ats-backend/internal/platform/envutil"
)

type RouterConfig struct {
	WorkflowHandler   *handlers.WorkflowHandler
	EscalationHandler *handlers.EscalationHandler
	BulkHandler       *handlers.BulkHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	origins := strings.Split(envutil.String("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Actor-ID"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware("ats-backend"))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Stages
		api.POST("/jobs/:job_id/stages", cfg.WorkflowHandler.CreateStage)
		api.POST("/jobs/:job_id/stages/defaults", cfg.WorkflowHandler.CreateDefaultStages)
		api.GET("/jobs/:job_id/stages", cfg.WorkflowHandler.ListStages)
		api.GET("/jobs/:job_id/stages/:stage_name/applications", cfg.WorkflowHandler.ApplicationsInStageByName)
		api.GET("/stages/:stage_id/applications", cfg.WorkflowHandler.ApplicationsInStage)
		api.GET("/transitions/overdue", cfg.WorkflowHandler.Overdue)
		// Workflow
		api.POST("/applications/:application_id/advance", cfg.WorkflowHandler.Advance)
		api.GET("/applications/:application_id/transition", cfg.WorkflowHandler.CurrentTransition)
		api.GET("/applications/:application_id/timeline", cfg.WorkflowHandler.Timeline)
		api.GET("/applications/:application_id/sla", cfg.WorkflowHandler.SLAStatus)
		// Escalations
		api.POST("/transitions/:transition_id/escalate", cfg.EscalationHandler.Escalate)
		api.POST("/escalations/:escalation_id/resolve", cfg.EscalationHandler.Resolve)
		api.GET("/users/:user_id/escalations", cfg.EscalationHandler.ListForUser)
		// Bulk
		api.POST("/bulk", cfg.BulkHandler.Submit)
		api.GET("/bulk/:operation_id", cfg.BulkHandler.GetProgress)
		api.POST("/bulk/:operation_id/cancel", cfg.BulkHandler.Cancel)
		api.DELETE("/bulk/:operation_id", cfg.BulkHandler.Cleanup)
	}

	return router
}
