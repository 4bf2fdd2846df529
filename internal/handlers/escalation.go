package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/services"
)

type EscalationHandler struct {
	escalations *services.EscalationService
}

func NewEscalationHandler(escalations *services.EscalationService) *EscalationHandler {
	return &EscalationHandler{escalations: escalations}
}

type escalateRequest struct {
	Severity string `json:"severity"`
}

func (h *EscalationHandler) Escalate(c *gin.Context) {
	transitionID, ok := pathUUID(c, "transition_id")
	if !ok {
		return
	}
	var req escalateRequest
	// Body is optional; severity defaults to overdue.
	_ = c.ShouldBindJSON(&req)

	escalation, err := h.escalations.Escalate(c.Request.Context(), transitionID, req.Severity)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyEscalated) && escalation != nil {
			c.JSON(http.StatusConflict, gin.H{"escalation": escalation, "code": domain.ErrorKind(err)})
			return
		}
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"escalation": escalation})
}

func (h *EscalationHandler) Resolve(c *gin.Context) {
	escalationID, ok := pathUUID(c, "escalation_id")
	if !ok {
		return
	}
	escalation, err := h.escalations.Resolve(c.Request.Context(), escalationID, actorID(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"escalation": escalation})
}

func (h *EscalationHandler) ListForUser(c *gin.Context) {
	userID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	unresolvedOnly := c.DefaultQuery("unresolved_only", "true") != "false"
	views, err := h.escalations.ListForUser(c.Request.Context(), userID, unresolvedOnly)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"escalations": views, "count": len(views)})
}
