package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hireloop/ats-backend/internal/domain"
	"github.com/hireloop/ats-backend/internal/platform/clock"
)

func testEvent() StatusChangeEvent {
	return StatusChangeEvent{
		ApplicationID:      uuid.New(),
		HistoryID:          uuid.New(),
		CandidateEmail:     "jamie@example.com",
		CandidateName:      "Jamie Okafor",
		JobTitle:           "Backend Engineer",
		PreviousStatus:     "applied",
		NewStatus:          "screening",
		ChangedByDisplay:   "Morgan Reyes",
		HiringManagerEmail: "morgan@example.com",
		HiringManagerName:  "Morgan Reyes",
	}
}

func TestPlanNonTriggeringStatus(t *testing.T) {
	planner := NewNotificationPlanner(clock.NewFake(time.Now()))
	for _, status := range []string{"applied", "on_hold", "archived", ""} {
		event := testEvent()
		event.NewStatus = status
		if got := planner.Plan(event); got != nil {
			t.Errorf("status %q: want no intents, got %d", status, len(got))
		}
	}
}

func TestPlanCandidateOnly(t *testing.T) {
	planner := NewNotificationPlanner(clock.NewFake(time.Now()))
	for _, status := range []string{"screening", "technical_test", "final_interview", "withdrawn"} {
		event := testEvent()
		event.NewStatus = status
		intents := planner.Plan(event)
		if len(intents) != 1 {
			t.Fatalf("status %q: want=1 intent got=%d", status, len(intents))
		}
		if intents[0].Recipient.Type != RecipientCandidate {
			t.Errorf("status %q: recipient want=candidate got=%s", status, intents[0].Recipient.Type)
		}
		if intents[0].Recipient.Email != "jamie@example.com" {
			t.Errorf("status %q: recipient email got=%s", status, intents[0].Recipient.Email)
		}
	}
}

func TestPlanHiringManagerStatuses(t *testing.T) {
	planner := NewNotificationPlanner(clock.NewFake(time.Now()))
	for _, status := range []string{"interview", "offer", "hired", "rejected"} {
		event := testEvent()
		event.NewStatus = status
		intents := planner.Plan(event)
		if len(intents) != 2 {
			t.Fatalf("status %q: want=2 intents got=%d", status, len(intents))
		}
		if intents[0].Recipient.Type != RecipientCandidate {
			t.Errorf("status %q: first recipient want=candidate got=%s", status, intents[0].Recipient.Type)
		}
		if intents[1].Recipient.Type != RecipientHiringManager {
			t.Errorf("status %q: second recipient want=hiring_manager got=%s", status, intents[1].Recipient.Type)
		}
		if intents[0].NotificationID != intents[1].NotificationID {
			t.Errorf("status %q: intents should share the notification id", status)
		}
	}
}

func TestPlanMissingHiringManagerFallsBackToCandidateOnly(t *testing.T) {
	planner := NewNotificationPlanner(clock.NewFake(time.Now()))
	event := testEvent()
	event.NewStatus = "offer"
	event.HiringManagerEmail = ""
	intents := planner.Plan(event)
	if len(intents) != 1 {
		t.Fatalf("want=1 intent got=%d", len(intents))
	}
	if intents[0].Recipient.Type != RecipientCandidate {
		t.Errorf("recipient want=candidate got=%s", intents[0].Recipient.Type)
	}
}

func TestNotificationIDDeterministic(t *testing.T) {
	appID := uuid.New()
	historyID := uuid.New()
	want := fmt.Sprintf("notif_%s_%s", appID, historyID)
	if got := NotificationID(appID, historyID); got != want {
		t.Errorf("want=%s got=%s", want, got)
	}
	if NotificationID(appID, historyID) != NotificationID(appID, historyID) {
		t.Error("id should be stable across calls")
	}
}

func TestNotificationTemplates(t *testing.T) {
	intent := NotificationIntent{
		CandidateName: "Jamie Okafor",
		JobTitle:      "Backend Engineer",
		NewStatus:     "offer",
		Recipient:     Recipient{Type: RecipientCandidate},
	}
	subject, body := notificationTemplate(intent)
	if !strings.Contains(subject, "Backend Engineer") {
		t.Errorf("offer subject should name the job, got %q", subject)
	}
	if !strings.Contains(body, "Jamie Okafor") {
		t.Errorf("offer body should address the candidate, got %q", body)
	}

	intent.Recipient.Type = RecipientHiringManager
	intent.NewStatus = "interview"
	subject, _ = notificationTemplate(intent)
	if !strings.Contains(subject, "Jamie Okafor") {
		t.Errorf("manager interview subject should name the candidate, got %q", subject)
	}

	intent.NewStatus = "withdrawn"
	_, body = notificationTemplate(intent)
	if !strings.Contains(body, "withdrawn") {
		t.Errorf("generic body should carry the status, got %q", body)
	}
}

type recordingDispatcher struct {
	intents []NotificationIntent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, intent NotificationIntent) error {
	d.intents = append(d.intents, intent)
	return nil
}

func TestNotifierAssemblesEvent(t *testing.T) {
	manager := &domain.User{ID: uuid.New(), Email: "morgan@example.com", FirstName: "Morgan", LastName: "Reyes"}
	candidate := &domain.Candidate{ID: uuid.New(), Email: "jamie@example.com", FirstName: "Jamie", LastName: "Okafor"}
	job := &domain.JobPosting{ID: uuid.New(), Title: "Backend Engineer", CreatedBy: manager.ID}
	app := &domain.Application{ID: uuid.New(), CandidateID: candidate.ID, JobID: job.ID, Status: "offer"}

	dispatcher := &recordingDispatcher{}
	n := NewNotifier(
		testLogger(t),
		newFakeApplicationRepo(app),
		newFakeCandidateRepo(candidate),
		newFakeJobRepo(job),
		newFakeUserRepo(manager),
		NewNotificationPlanner(clock.NewFake(time.Now())),
		dispatcher,
	)

	history := &domain.ApplicationStatusHistory{
		ID:             uuid.New(),
		ApplicationID:  app.ID,
		PreviousStatus: "interview",
		NewStatus:      "offer",
		ChangedBy:      manager.ID,
		CreatedAt:      time.Now().UTC(),
	}
	n.NotifyStatusChange(t.Context(), history)

	if len(dispatcher.intents) != 2 {
		t.Fatalf("dispatched intents: want=2 got=%d", len(dispatcher.intents))
	}
	first := dispatcher.intents[0]
	if first.CandidateEmail != "jamie@example.com" {
		t.Errorf("candidate email got=%s", first.CandidateEmail)
	}
	if first.JobTitle != "Backend Engineer" {
		t.Errorf("job title got=%s", first.JobTitle)
	}
	if first.ChangedBy != "Morgan Reyes" {
		t.Errorf("changed by got=%s", first.ChangedBy)
	}
	wantID := NotificationID(app.ID, history.ID)
	if first.NotificationID != wantID {
		t.Errorf("notification id: want=%s got=%s", wantID, first.NotificationID)
	}
	if dispatcher.intents[1].Recipient.Email != "morgan@example.com" {
		t.Errorf("manager recipient email got=%s", dispatcher.intents[1].Recipient.Email)
	}
}

func TestNotifierSkipsNonTriggering(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	n := NewNotifier(
		testLogger(t),
		newFakeApplicationRepo(),
		newFakeCandidateRepo(),
		newFakeJobRepo(),
		newFakeUserRepo(),
		NewNotificationPlanner(clock.NewFake(time.Now())),
		dispatcher,
	)
	n.NotifyStatusChange(t.Context(), &domain.ApplicationStatusHistory{NewStatus: "applied"})
	if len(dispatcher.intents) != 0 {
		t.Errorf("want no dispatches, got %d", len(dispatcher.intents))
	}
}
