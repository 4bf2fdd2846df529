package services

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultStageTemplates(t *testing.T) {
	wantNames := []string{"Applied", "Initial Screening", "Technical Assessment", "Interview", "Final Review", "Decision"}
	wantSLAs := []int{24, 48, 72, 96, 48, 24}

	if len(DefaultStageTemplates) != len(wantNames) {
		t.Fatalf("templates: want=%d got=%d", len(wantNames), len(DefaultStageTemplates))
	}
	for i, tmpl := range DefaultStageTemplates {
		if tmpl.Name != wantNames[i] {
			t.Errorf("template %d name: want=%s got=%s", i, wantNames[i], tmpl.Name)
		}
		if tmpl.SLAHours != wantSLAs[i] {
			t.Errorf("template %d sla: want=%d got=%d", i, wantSLAs[i], tmpl.SLAHours)
		}
	}
}

func TestLoadStageTemplatesWithoutPath(t *testing.T) {
	t.Setenv("STAGE_TEMPLATE_PATH", "")
	got := LoadStageTemplates(testLogger(t))
	if len(got) != len(DefaultStageTemplates) {
		t.Fatalf("want default templates, got %d entries", len(got))
	}
}

func TestLoadStageTemplatesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	raw := []byte(`stages:
  - name: Phone Screen
    description: Quick call
    sla_hours: 12
  - name: Onsite
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write template file: %v", err)
	}
	t.Setenv("STAGE_TEMPLATE_PATH", path)
	t.Setenv("DEFAULT_STAGE_SLA_HOURS", "36")

	got := LoadStageTemplates(testLogger(t))
	if len(got) != 2 {
		t.Fatalf("templates: want=2 got=%d", len(got))
	}
	if got[0].Name != "Phone Screen" || got[0].SLAHours != 12 {
		t.Errorf("first template: got=%+v", got[0])
	}
	if got[1].SLAHours != 36 {
		t.Errorf("missing sla_hours should fall back to DEFAULT_STAGE_SLA_HOURS: got=%d", got[1].SLAHours)
	}
}

func TestLoadStageTemplatesBadFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	if err := os.WriteFile(path, []byte("not: [valid"), 0o644); err != nil {
		t.Fatalf("write template file: %v", err)
	}
	t.Setenv("STAGE_TEMPLATE_PATH", path)

	got := LoadStageTemplates(testLogger(t))
	if len(got) != len(DefaultStageTemplates) {
		t.Fatalf("bad file should fall back to defaults, got %d entries", len(got))
	}
}
