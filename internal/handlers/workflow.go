package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hireloop/ats-backend/internal/services"
)

type WorkflowHandler struct {
	engine   *services.WorkflowEngine
	registry *services.StageRegistry
}

func NewWorkflowHandler(engine *services.WorkflowEngine, registry *services.StageRegistry) *WorkflowHandler {
	return &WorkflowHandler{engine: engine, registry: registry}
}

// actorID pulls the acting user from the X-Actor-ID header; uuid.Nil means a
// system-initiated action.
func actorID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetHeader("X-Actor-ID"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

type advanceRequest struct {
	StageID uuid.UUID `json:"stage_id" binding:"required"`
	Notes   string    `json:"notes"`
}

func (h *WorkflowHandler) Advance(c *gin.Context) {
	appID, ok := pathUUID(c, "application_id")
	if !ok {
		return
	}
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.engine.Advance(c.Request.Context(), appID, req.StageID, actorID(c), req.Notes)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, result)
}

func (h *WorkflowHandler) CurrentTransition(c *gin.Context) {
	appID, ok := pathUUID(c, "application_id")
	if !ok {
		return
	}
	transition, err := h.engine.CurrentTransition(c.Request.Context(), appID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"transition": transition})
}

func (h *WorkflowHandler) Timeline(c *gin.Context) {
	appID, ok := pathUUID(c, "application_id")
	if !ok {
		return
	}
	timeline, err := h.engine.Timeline(c.Request.Context(), appID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"timeline": timeline})
}

func (h *WorkflowHandler) SLAStatus(c *gin.Context) {
	appID, ok := pathUUID(c, "application_id")
	if !ok {
		return
	}
	status, err := h.engine.CheckSLAViolations(c.Request.Context(), appID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, status)
}

func (h *WorkflowHandler) ApplicationsInStage(c *gin.Context) {
	stageID, ok := pathUUID(c, "stage_id")
	if !ok {
		return
	}
	apps, err := h.engine.ApplicationsInStage(c.Request.Context(), stageID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"applications": apps, "count": len(apps)})
}

func (h *WorkflowHandler) ApplicationsInStageByName(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}
	apps, err := h.engine.ApplicationsInStageByName(c.Request.Context(), jobID, c.Param("stage_name"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"applications": apps, "count": len(apps)})
}

func (h *WorkflowHandler) Overdue(c *gin.Context) {
	transitions, err := h.engine.ListOverdue(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"transitions": transitions, "count": len(transitions)})
}

func (h *WorkflowHandler) CreateStage(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}
	var in services.CreateStageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	stage, err := h.registry.CreateStage(c.Request.Context(), jobID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"stage": stage})
}

func (h *WorkflowHandler) CreateDefaultStages(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}
	stages, err := h.registry.CreateDefaultStages(c.Request.Context(), jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"stages": stages})
}

func (h *WorkflowHandler) ListStages(c *gin.Context) {
	jobID, ok := pathUUID(c, "job_id")
	if !ok {
		return
	}
	includeInactive := c.Query("include_inactive") == "true"
	stages, err := h.registry.ListStages(c.Request.Context(), jobID, includeInactive)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"stages": stages})
}
