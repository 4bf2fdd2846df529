package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/ats-backend/internal/domain"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps workflow error kinds to HTTP statuses.
func RespondDomainError(c *gin.Context, err error) {
	var unknown *domain.UnknownApplicationsError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrApplicationNotFound),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrStageNotFound),
		errors.Is(err, domain.ErrTransitionNotFound),
		errors.Is(err, domain.ErrEscalationNotFound),
		errors.Is(err, domain.ErrOperationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStageNotForApplicationJob),
		errors.As(err, &unknown):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAlreadyEscalated),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrConcurrentAdvance),
		errors.Is(err, domain.ErrOperationInProgress),
		errors.Is(err, domain.ErrOperationTerminal):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	RespondError(c, status, domain.ErrorKind(err), err)
}
