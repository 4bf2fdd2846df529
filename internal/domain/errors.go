package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Workflow error kinds. Callers branch with errors.Is; the HTTP layer maps
// kinds to status codes and the bulk coordinator records the kind string in
// per-item error records.
var (
	ErrApplicationNotFound       = errors.New("application not found")
	ErrJobNotFound               = errors.New("job posting not found")
	ErrStageNotFound             = errors.New("workflow stage not found")
	ErrStageNotForApplicationJob = errors.New("stage does not belong to the application's job")
	ErrTransitionNotFound        = errors.New("stage transition not found")
	ErrEscalationNotFound        = errors.New("escalation not found")
	ErrOperationNotFound         = errors.New("bulk operation not found")

	ErrAlreadyEscalated    = errors.New("transition already escalated")
	ErrAlreadyResolved     = errors.New("escalation already resolved")
	ErrConcurrentAdvance   = errors.New("concurrent advance lost the race")
	ErrOperationInProgress = errors.New("bulk operation still in progress")
	ErrOperationTerminal   = errors.New("bulk operation already terminal")

	ErrStoreUnavailable = errors.New("store unavailable")
)

// UnknownApplicationsError reports the ids that failed bulk pre-validation.
type UnknownApplicationsError struct {
	IDs []uuid.UUID
}

func (e *UnknownApplicationsError) Error() string {
	return fmt.Sprintf("unknown applications: %v", e.IDs)
}

// ErrorKind returns the stable kind label for an error, used in bulk
// operation error records and response envelopes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrApplicationNotFound):
		return "application_not_found"
	case errors.Is(err, ErrJobNotFound):
		return "job_not_found"
	case errors.Is(err, ErrStageNotFound):
		return "stage_not_found"
	case errors.Is(err, ErrStageNotForApplicationJob):
		return "stage_not_for_application_job"
	case errors.Is(err, ErrTransitionNotFound):
		return "transition_not_found"
	case errors.Is(err, ErrEscalationNotFound):
		return "escalation_not_found"
	case errors.Is(err, ErrOperationNotFound):
		return "operation_not_found"
	case errors.Is(err, ErrAlreadyEscalated):
		return "already_escalated"
	case errors.Is(err, ErrAlreadyResolved):
		return "already_resolved"
	case errors.Is(err, ErrConcurrentAdvance):
		return "concurrent_advance"
	case errors.Is(err, ErrOperationInProgress):
		return "operation_in_progress"
	case errors.Is(err, ErrOperationTerminal):
		return "operation_terminal"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		var unknown *UnknownApplicationsError
		if errors.As(err, &unknown) {
			return "unknown_applications"
		}
		return "internal"
	}
}
