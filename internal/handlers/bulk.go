package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/jobs"
)

type BulkHandler struct {
	coordinator *jobs.BulkCoordinator
}

func NewBulkHandler(coordinator *jobs.BulkCoordinator) *BulkHandler {
	return &BulkHandler{coordinator: coordinator}
}

type bulkSubmitRequest struct {
	Kind           string      `json:"kind" binding:"required"`
	ApplicationIDs []uuid.UUID `json:"application_ids" binding:"required"`
	Status         string      `json:"status"`
	StageID        uuid.UUID   `json:"stage_id"`
	Reason         string      `json:"reason"`
}

func (h *BulkHandler) Submit(c *gin.Context) {
	var req bulkSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	progress, err := h.coordinator.Submit(c.Request.Context(), jobs.BulkRequest{
		Kind:           jobs.BulkKind(req.Kind),
		ApplicationIDs: req.ApplicationIDs,
		Status:         req.Status,
		StageID:        req.StageID,
		Reason:         req.Reason,
		ActorID:        actorID(c),
	})
	if err != nil {
		var unknown *domain.UnknownApplicationsError
		if errors.As(err, &unknown) {
			RespondDomainError(c, err)
			return
		}
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	c.JSON(http.StatusAccepted, progress)
}

func (h *BulkHandler) GetProgress(c *gin.Context) {
	operationID, ok := pathUUID(c, "operation_id")
	if !ok {
		return
	}
	progress, err := h.coordinator.GetProgress(operationID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, progress)
}

func (h *BulkHandler) Cancel(c *gin.Context) {
	operationID, ok := pathUUID(c, "operation_id")
	if !ok {
		return
	}
	progress, err := h.coordinator.Cancel(operationID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, progress)
}

func (h *BulkHandler) Cleanup(c *gin.Context) {
	operationID, ok := pathUUID(c, "operation_id")
	if !ok {
		return
	}
	if err := h.coordinator.Cleanup(c.Request.Context(), operationID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"operation_id": operationID})
}
