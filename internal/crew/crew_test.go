package crew

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"crewpilot/internal/models"
	"crewpilot/pkg/logger"
)

// fakeLLM returns scripted responses in order and records the prompts it saw.
type fakeLLM struct {
	responses []string
	errs      []error
	prompts   []string
	calls     int
}

func (f *fakeLLM) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	var prompt string
	for _, c := range req.Content {
		prompt += c.JoinText()
	}
	f.prompts = append(f.prompts, prompt)

	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.responses) {
		text = f.responses[i]
	}
	return &models.GenerateContentResponse{
		Content: []models.Content{models.NewTextContent(models.SpeakerModel, text)},
	}, nil
}

func (f *fakeLLM) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	ch := make(chan *models.GenerateContentResponse)
	close(ch)
	return ch, nil
}

func testLogger() *logger.Logger {
	return logger.New("test", "", "")
}

// writeCrewFiles lays out a minimal two-task crew definition in dir.
func writeCrewFiles(t *testing.T, dir, crewYAML string) {
	t.Helper()

	agentsYAML := `
researcher:
  role: Researcher
  goal: Research the plot.
  backstory: I research.
  memory: false
manager:
  role: Manager
  goal: Delegate work.
  backstory: I manage.
  allow_delegation: true
`
	tasksYAML := `
gather:
  description: Gather the facts.
  agent: researcher
  output_schema:
    summary: string
decide:
  description: Make the decision.
  agent: researcher
  output_schema:
    approved: bool
    reasons: list
`
	files := map[string]string{
		"crew.yaml":   crewYAML,
		"agents.yaml": agentsYAML,
		"tasks.yaml":  tasksYAML,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

func TestLoadCrewSpec(t *testing.T) {
	dir := t.TempDir()
	writeCrewFiles(t, dir, "process: sequential\ntasks:\n  - gather\n  - decide\n")

	spec, err := LoadCrewSpec(dir)
	if err != nil {
		t.Fatalf("LoadCrewSpec() error = %v", err)
	}

	// Name defaults to the directory base name.
	if spec.Name != filepath.Base(dir) {
		t.Errorf("Name = %q, want %q", spec.Name, filepath.Base(dir))
	}
	if spec.Process != ProcessSequential {
		t.Errorf("Process = %q, want sequential", spec.Process)
	}
	if len(spec.Agents) != 2 || len(spec.Tasks) != 2 {
		t.Errorf("loaded %d agents and %d tasks, want 2 and 2", len(spec.Agents), len(spec.Tasks))
	}
}

func TestLoadCrewSpec_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown task", "tasks:\n  - gather\n  - missing\n"},
		{"bad process", "process: parallel\ntasks:\n  - gather\n"},
		{"hierarchical without manager", "process: hierarchical\ntasks:\n  - gather\n"},
		{"route to unknown task", "tasks:\n  - gather\nroutes:\n  - keywords: [x]\n    agent: researcher\n    task: missing\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeCrewFiles(t, dir, tc.yaml)
			if _, err := LoadCrewSpec(dir); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRegistry_LoadDir(t *testing.T) {
	root := t.TempDir()
	crewDir := filepath.Join(root, "demo_crew")
	if err := os.MkdirAll(crewDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeCrewFiles(t, crewDir, "tasks:\n  - gather\n")
	// Directories without crew.yaml are skipped.
	if err := os.MkdirAll(filepath.Join(root, "not_a_crew"), 0o755); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry()
	if err := registry.LoadDir(root); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if _, ok := registry.Get("demo_crew"); !ok {
		t.Error("demo_crew not registered")
	}
	if names := registry.Names(); len(names) != 1 {
		t.Errorf("Names() = %v, want one entry", names)
	}

	empty := t.TempDir()
	if err := NewRegistry().LoadDir(empty); err == nil {
		t.Error("expected error for directory without crews")
	}
}

func TestCoordinator_RouteQuery(t *testing.T) {
	spec := &CrewSpec{
		ManagerAgent: "manager",
		Routes: []RouteRule{
			{Keywords: []string{"zoning", "plot"}, Agent: "zoning_agent", Task: "analyze_zoning"},
			{Keywords: []string{"accessibility"}, Agent: "accessibility_agent", Task: "assess_accessibility"},
		},
	}
	c := NewCoordinator(spec, &fakeLLM{}, testLogger())

	route := c.RouteQuery("What can I build on this PLOT?")
	if route.Agent != "zoning_agent" || route.Task != "analyze_zoning" {
		t.Errorf("route = %+v, want zoning_agent/analyze_zoning", route)
	}

	// No keyword hit falls back to the manager with no task.
	route = c.RouteQuery("how is the weather")
	if route.Agent != "manager" || route.Task != "" {
		t.Errorf("fallback route = %+v, want manager with empty task", route)
	}
}

func TestCoordinator_PickNextTask(t *testing.T) {
	spec := &CrewSpec{
		ManagerAgent: "manager",
		Agents:       map[string]AgentSpec{"manager": {Role: "Manager", Goal: "Delegate."}},
		Tasks: map[string]TaskSpec{
			"gather": {Description: "Gather."},
			"decide": {Description: "Decide."},
		},
	}

	// A single remaining task needs no model call.
	c := NewCoordinator(spec, &fakeLLM{}, testLogger())
	if got := c.PickNextTask(context.Background(), []string{"decide"}, nil); got != "decide" {
		t.Errorf("PickNextTask() = %q, want decide", got)
	}

	// The manager's JSON choice is honored.
	c = NewCoordinator(spec, &fakeLLM{responses: []string{`{"task": "decide"}`}}, testLogger())
	if got := c.PickNextTask(context.Background(), []string{"gather", "decide"}, nil); got != "decide" {
		t.Errorf("PickNextTask() = %q, want decide", got)
	}

	// An unknown choice falls back to definition order.
	c = NewCoordinator(spec, &fakeLLM{responses: []string{`{"task": "nonsense"}`}}, testLogger())
	if got := c.PickNextTask(context.Background(), []string{"gather", "decide"}, nil); got != "gather" {
		t.Errorf("PickNextTask() = %q, want gather", got)
	}

	// A model failure also falls back to definition order.
	c = NewCoordinator(spec, &fakeLLM{errs: []error{fmt.Errorf("boom")}}, testLogger())
	if got := c.PickNextTask(context.Background(), []string{"gather", "decide"}, nil); got != "gather" {
		t.Errorf("PickNextTask() = %q, want gather", got)
	}
}
