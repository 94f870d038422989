package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crewpilot/internal/crew"
	"crewpilot/internal/models"
	"crewpilot/pkg/logger"
)

func testSpec() *crew.CrewSpec {
	return &crew.CrewSpec{
		Name:      "stuttgart_regulation",
		Process:   crew.ProcessSequential,
		TaskOrder: []string{"analyze_zoning", "check_building_code"},
		Tasks: map[string]crew.TaskSpec{
			"analyze_zoning": {Agent: "zoning_agent"},
			"check_building_code": {
				Agent:      "building_code_agent",
				OutputFile: "decision.md",
			},
		},
	}
}

func testRecord() *models.RunRecord {
	submitted := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	return &models.RunRecord{
		ID:          "run-123",
		CrewName:    "stuttgart_regulation",
		Status:      models.RunStatusSuccess,
		Inputs:      map[string]interface{}{"location": "Stuttgart-Mitte"},
		SubmittedAt: submitted,
		CompletedAt: submitted.Add(42 * time.Second),
		Results: []models.TaskResult{
			{
				TaskName: "analyze_zoning",
				Agent:    "Zoning Specialist",
				Output: map[string]interface{}{
					"allowed_building_type": "residential",
					"notes":                 "Mischgebiet nach Bebauungsplan",
				},
				Attempts: 1,
				Duration: 3 * time.Second,
			},
			{
				TaskName:  "check_building_code",
				Agent:     "Building Code Expert",
				RawOutput: `{"compliant": true, "violations": []}`,
				Output: map[string]interface{}{
					"compliant":  true,
					"violations": []interface{}{},
				},
				Attempts: 1,
				Duration: 5 * time.Second,
			},
		},
	}
}

func TestWriteRun_TaskFileAndSummary(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, logger.New("test", "", ""))

	paths, err := w.WriteRun(testSpec(), testRecord())
	if err != nil {
		t.Fatalf("WriteRun() error = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("WriteRun() wrote %d files, want 2: %v", len(paths), paths)
	}

	decision, err := os.ReadFile(filepath.Join(dir, "run-123", "decision.md"))
	if err != nil {
		t.Fatalf("decision.md missing: %v", err)
	}
	for _, want := range []string{
		"# Check Building Code",
		"*Agent: Building Code Expert*",
		"### Compliant",
		"### Violations",
		"*(empty)*",
		"Raw model output",
	} {
		if !strings.Contains(string(decision), want) {
			t.Errorf("decision.md missing %q:\n%s", want, decision)
		}
	}

	summary, err := os.ReadFile(filepath.Join(dir, "run-123", "report.md"))
	if err != nil {
		t.Fatalf("report.md missing: %v", err)
	}
	for _, want := range []string{
		"# Crew Run Report: stuttgart_regulation",
		"`run-123`",
		"✅ Success",
		"## Inputs",
		"Stuttgart-Mitte",
		"## Analyze Zoning",
		"Mischgebiet nach Bebauungsplan",
		"*Generated by crewpilot*",
	} {
		if !strings.Contains(string(summary), want) {
			t.Errorf("report.md missing %q", want)
		}
	}
}

func TestWriteRun_SummaryYieldsToTaskClaim(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, logger.New("test", "", ""))

	spec := testSpec()
	task := spec.Tasks["check_building_code"]
	task.OutputFile = "report.md"
	spec.Tasks["check_building_code"] = task

	paths, err := w.WriteRun(spec, testRecord())
	if err != nil {
		t.Fatalf("WriteRun() error = %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("WriteRun() wrote %d files, want 1: %v", len(paths), paths)
	}

	// The task owns report.md, so no run summary is generated.
	content, err := os.ReadFile(filepath.Join(dir, "run-123", "report.md"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(content), "Crew Run Report") {
		t.Error("report.md contains the run summary although a task claimed the file")
	}
	if !strings.Contains(string(content), "*Agent: Building Code Expert*") {
		t.Error("report.md does not contain the task output")
	}
}

func TestWriteRun_ValidationWarning(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, logger.New("test", "", ""))

	record := testRecord()
	record.Results[1].ValidationError = `field "compliant" must be a bool`
	record.Results[1].Fallback = true

	if _, err := w.WriteRun(testSpec(), record); err != nil {
		t.Fatalf("WriteRun() error = %v", err)
	}

	decision, err := os.ReadFile(filepath.Join(dir, "run-123", "decision.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(decision), "schema") {
		t.Error("decision.md does not mention the schema validation fallback")
	}

	summary, _ := os.ReadFile(filepath.Join(dir, "run-123", "report.md"))
	if !strings.Contains(string(summary), "⚠️ fallback") {
		t.Error("report.md does not flag the fallback result")
	}
}

func TestTitleFromTaskName(t *testing.T) {
	cases := map[string]string{
		"analyze_zoning":       "Analyze Zoning",
		"check_building_code":  "Check Building Code",
		"assess-accessibility": "Assess Accessibility",
		"notes":                "Notes",
	}
	for in, want := range cases {
		if got := titleFromTaskName(in); got != want {
			t.Errorf("titleFromTaskName(%q) = %q, want %q", in, got, want)
		}
	}
}
