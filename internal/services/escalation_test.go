package services

import (
	"testing"
	"time"

	"github.com/hireloop/ats-backend/internal/domain"
)

func TestSeverityFor(t *testing.T) {
	warningCap := 24 * time.Hour
	criticalCap := 72 * time.Hour

	cases := []struct {
		overdue time.Duration
		want    string
	}{
		{1 * time.Hour, domain.SeverityWarning},
		{23 * time.Hour, domain.SeverityWarning},
		{24 * time.Hour, domain.SeverityCritical},
		{71 * time.Hour, domain.SeverityCritical},
		{72 * time.Hour, domain.SeverityOverdue},
		{200 * time.Hour, domain.SeverityOverdue},
	}
	for _, tc := range cases {
		if got := SeverityFor(tc.overdue, warningCap, criticalCap); got != tc.want {
			t.Errorf("SeverityFor(%v): want=%s got=%s", tc.overdue, tc.want, got)
		}
	}
}

func TestSeverityCapsFromEnv(t *testing.T) {
	t.Setenv("SLA_WARNING_CAP_HOURS", "12")
	t.Setenv("SLA_CRITICAL_CAP_HOURS", "48")
	warningCap, criticalCap := SeverityCaps()
	if warningCap != 12*time.Hour {
		t.Errorf("warning cap: want=12h got=%v", warningCap)
	}
	if criticalCap != 48*time.Hour {
		t.Errorf("critical cap: want=48h got=%v", criticalCap)
	}
	if got := SeverityFor(13*time.Hour, warningCap, criticalCap); got != domain.SeverityCritical {
		t.Errorf("13h overdue with 12h cap: want=critical got=%s", got)
	}
}
