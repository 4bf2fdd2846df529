package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hireloop/ats-backend/internal/data/repos"
	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/pkg/dbctx"
	"github.com/hireloop/ats-backend/internal/pkg/logger"
	"github.com/hireloop/ats-backend/internal/platform/clock"
	"github.com/hireloop/ats-backend/internal/platform/sendgrid"
)

// Statuses whose transitions produce notification intents.
var notificationStatuses = map[string]bool{
	"screening":       true,
	"interview":       true,
	"technical_test":  true,
	"final_interview": true,
	"offer":           true,
	"hired":           true,
	"rejected":        true,
	"withdrawn":       true,
}

// Statuses that additionally notify the hiring manager.
var hiringManagerStatuses = map[string]bool{
	"interview": true,
	"offer":     true,
	"hired":     true,
	"rejected":  true,
}

const (
	RecipientCandidate     = "candidate"
	RecipientHiringManager = "hiring_manager"
)

type Recipient struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NotificationIntent describes one notification for one recipient. Intents
// for the same status change share a NotificationID so downstream dispatch
// can dedupe; the full recipient set rides along for audit.
type NotificationIntent struct {
	NotificationID   string      `json:"notification_id"`
	ApplicationID    uuid.UUID   `json:"application_id"`
	CandidateEmail   string      `json:"candidate_email"`
	CandidateName    string      `json:"candidate_name"`
	JobTitle         string      `json:"job_title"`
	PreviousStatus   string      `json:"previous_status"`
	NewStatus        string      `json:"new_status"`
	ChangedBy        string      `json:"changed_by"`
	ChangeReason     string      `json:"change_reason"`
	HistoryTimestamp time.Time   `json:"history_timestamp"`
	PlannedAt        time.Time   `json:"planned_at"`
	Recipient        Recipient   `json:"recipient"`
	Recipients       []Recipient `json:"recipients"`
}

// StatusChangeEvent is everything the planner needs; the notifier assembles
// it from the store so Plan itself stays pure.
type StatusChangeEvent struct {
	ApplicationID      uuid.UUID
	HistoryID          uuid.UUID
	CandidateEmail     string
	CandidateName      string
	JobTitle           string
	PreviousStatus     string
	NewStatus          string
	ChangedByDisplay   string
	ChangeReason       string
	HistoryTimestamp   time.Time
	HiringManagerEmail string
	HiringManagerName  string
}

// NotificationID is deterministic in (application, history) so replanning the
// same status change yields the same id.
func NotificationID(applicationID, historyID uuid.UUID) string {
	return fmt.Sprintf("notif_%s_%s", applicationID, historyID)
}

func ShouldNotify(newStatus string) bool { return notificationStatuses[newStatus] }

type NotificationPlanner struct {
	clk clock.Clock
}

func NewNotificationPlanner(clk clock.Clock) *NotificationPlanner {
	return &NotificationPlanner{clk: clk}
}

// Plan maps a status change to its notification intents: none for
// non-triggering statuses, the candidate always, the hiring manager for
// interview/offer/hired/rejected.
func (p *NotificationPlanner) Plan(event StatusChangeEvent) []NotificationIntent {
	if !ShouldNotify(event.NewStatus) {
		return nil
	}

	recipients := []Recipient{{
		Type:  RecipientCandidate,
		Email: event.CandidateEmail,
		Name:  event.CandidateName,
	}}
	if hiringManagerStatuses[event.NewStatus] && event.HiringManagerEmail != "" {
		recipients = append(recipients, Recipient{
			Type:  RecipientHiringManager,
			Email: event.HiringManagerEmail,
			Name:  event.HiringManagerName,
		})
	}

	id := NotificationID(event.ApplicationID, event.HistoryID)
	plannedAt := p.clk.Now()

	intents := make([]NotificationIntent, 0, len(recipients))
	for _, r := range recipients {
		intents = append(intents, NotificationIntent{
			NotificationID:   id,
			ApplicationID:    event.ApplicationID,
			CandidateEmail:   event.CandidateEmail,
			CandidateName:    event.CandidateName,
			JobTitle:         event.JobTitle,
			PreviousStatus:   event.PreviousStatus,
			NewStatus:        event.NewStatus,
			ChangedBy:        event.ChangedByDisplay,
			ChangeReason:     event.ChangeReason,
			HistoryTimestamp: event.HistoryTimestamp,
			PlannedAt:        plannedAt,
			Recipient:        r,
			Recipients:       recipients,
		})
	}
	return intents
}

// NotificationDispatcher delivers one intent. Failures are logged by the
// caller and never block the producing operation.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, intent NotificationIntent) error
}

// LogDispatcher is the no-credentials fallback: it records the intent and
// drops it.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(baseLog *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: baseLog.With("dispatcher", "LogDispatcher")}
}

func (d *LogDispatcher) Dispatch(_ context.Context, intent NotificationIntent) error {
	d.log.Info("Notification intent",
		"notification_id", intent.NotificationID,
		"application_id", intent.ApplicationID.String(),
		"new_status", intent.NewStatus,
		"recipient_type", intent.Recipient.Type,
		"recipient_email", intent.Recipient.Email,
	)
	return nil
}

// EmailDispatcher delivers intents through SendGrid using the per-status
// templates.
type EmailDispatcher struct {
	log  *logger.Logger
	mail sendgrid.Client
}

func NewEmailDispatcher(baseLog *logger.Logger, mail sendgrid.Client) *EmailDispatcher {
	return &EmailDispatcher{
		log:  baseLog.With("dispatcher", "EmailDispatcher"),
		mail: mail,
	}
}

func (d *EmailDispatcher) Dispatch(ctx context.Context, intent NotificationIntent) error {
	subject, body := notificationTemplate(intent)
	_, err := d.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: intent.Recipient.Email, Name: intent.Recipient.Name}},
		Subject:    subject,
		Text:       body,
		Categories: []string{"status_change", intent.NewStatus},
		CustomArgs: map[string]string{"notification_id": intent.NotificationID},
	})
	return err
}

func notificationTemplate(intent NotificationIntent) (subject, body string) {
	type tmpl struct{ subject, body string }
	candidateTemplates := map[string]tmpl{
		"screening": {
			"Application Update: %[2]s",
			"Dear %[1]s, your application for %[2]s has moved to the screening stage.",
		},
		"interview": {
			"Interview Invitation: %[2]s",
			"Dear %[1]s, you have been invited for an interview for %[2]s.",
		},
		"offer": {
			"Job Offer: %[2]s",
			"Dear %[1]s, congratulations! We would like to offer you the position of %[2]s.",
		},
		"rejected": {
			"Application Update: %[2]s",
			"Dear %[1]s, thank you for your interest in %[2]s. We have decided to move forward with other candidates.",
		},
	}
	managerTemplates := map[string]tmpl{
		"interview": {
			"Candidate Ready for Interview: %[1]s",
			"Candidate %[1]s is ready for interview for position %[2]s.",
		},
		"offer": {
			"Offer Extended: %[1]s",
			"An offer has been extended to %[1]s for position %[2]s.",
		},
	}

	t := tmpl{"Application Status Update", "Application status has been updated to %[3]s."}
	switch intent.Recipient.Type {
	case RecipientCandidate:
		if ct, ok := candidateTemplates[intent.NewStatus]; ok {
			t = ct
		}
	case RecipientHiringManager:
		if mt, ok := managerTemplates[intent.NewStatus]; ok {
			t = mt
		}
	}
	subject = fmt.Sprintf(t.subject, intent.CandidateName, intent.JobTitle, intent.NewStatus)
	body = fmt.Sprintf(t.body, intent.CandidateName, intent.JobTitle, intent.NewStatus)
	return subject, body
}

// Notifier plans and dispatches intents for a committed status change.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, history *domain.ApplicationStatusHistory)
}

type notifier struct {
	log        *logger.Logger
	apps       repos.ApplicationRepo
	candidates repos.CandidateRepo
	jobs       repos.JobPostingRepo
	users      repos.UserRepo
	planner    *NotificationPlanner
	dispatcher NotificationDispatcher
}

func NewNotifier(
	baseLog *logger.Logger,
	apps repos.ApplicationRepo,
	candidates repos.CandidateRepo,
	jobs repos.JobPostingRepo,
	users repos.UserRepo,
	planner *NotificationPlanner,
	dispatcher NotificationDispatcher,
) Notifier {
	return &notifier{
		log:        baseLog.With("service", "Notifier"),
		apps:       apps,
		candidates: candidates,
		jobs:       jobs,
		users:      users,
		planner:    planner,
		dispatcher: dispatcher,
	}
}

// NotifyStatusChange is best-effort: lookup or dispatch failures are logged
// and swallowed so they never fail the transition that produced the event.
func (n *notifier) NotifyStatusChange(ctx context.Context, history *domain.ApplicationStatusHistory) {
	if history == nil || !ShouldNotify(history.NewStatus) {
		return
	}
	dbc := dbctx.Context{Ctx: ctx}

	app, err := n.apps.GetByID(dbc, history.ApplicationID)
	if err != nil || app == nil {
		n.log.Warn("Notification lookup failed", "application_id", history.ApplicationID.String(), "error", err)
		return
	}
	candidate, err := n.candidates.GetByID(dbc, app.CandidateID)
	if err != nil || candidate == nil {
		n.log.Warn("Notification candidate lookup failed", "candidate_id", app.CandidateID.String(), "error", err)
		return
	}
	job, err := n.jobs.GetByID(dbc, app.JobID)
	if err != nil || job == nil {
		n.log.Warn("Notification job lookup failed", "job_id", app.JobID.String(), "error", err)
		return
	}

	changedByDisplay := "System"
	if history.ChangedBy != uuid.Nil {
		if changedBy, err := n.users.GetByID(dbc, history.ChangedBy); err == nil && changedBy != nil {
			changedByDisplay = changedBy.DisplayName()
		}
	}

	event := StatusChangeEvent{
		ApplicationID:    app.ID,
		HistoryID:        history.ID,
		CandidateEmail:   candidate.Email,
		CandidateName:    candidate.DisplayName(),
		JobTitle:         job.Title,
		PreviousStatus:   history.PreviousStatus,
		NewStatus:        history.NewStatus,
		ChangedByDisplay: changedByDisplay,
		ChangeReason:     history.ChangeReason,
		HistoryTimestamp: history.CreatedAt,
	}
	if hiringManagerStatuses[history.NewStatus] {
		if manager, err := n.users.GetByID(dbc, job.CreatedBy); err == nil && manager != nil {
			event.HiringManagerEmail = manager.Email
			event.HiringManagerName = manager.DisplayName()
		}
	}

	for _, intent := range n.planner.Plan(event) {
		if err := n.dispatcher.Dispatch(ctx, intent); err != nil {
			n.log.Warn("Notification dispatch failed",
				"notification_id", intent.NotificationID,
				"recipient_type", intent.Recipient.Type,
				"error", err,
			)
		}
	}
}
