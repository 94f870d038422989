package crew

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"crewpilot/internal/models"
)

func sequentialSpec() *CrewSpec {
	return &CrewSpec{
		Name:    "test_crew",
		Process: ProcessSequential,
		Agents: map[string]AgentSpec{
			"researcher": {Role: "Researcher", Goal: "Research.", Backstory: "I research.", Memory: true},
		},
		Tasks: map[string]TaskSpec{
			"gather": {
				Description:  "Gather the facts.",
				Agent:        "researcher",
				OutputSchema: OutputSchema{"summary": FieldString},
			},
			"decide": {
				Description:  "Make the decision.",
				Agent:        "researcher",
				OutputSchema: OutputSchema{"approved": FieldBool, "reasons": FieldList},
			},
		},
		TaskOrder: []string{"gather", "decide"},
	}
}

func TestAgent_ExecuteTask_ValidOutput(t *testing.T) {
	spec := sequentialSpec()
	client := &fakeLLM{responses: []string{`{"summary": "all good"}`}}
	agent := NewAgent("researcher", spec.Agents["researcher"], client, testLogger())

	result := agent.ExecuteTask(context.Background(), "gather", spec.Tasks["gather"],
		map[string]interface{}{"location": "Stuttgart-Mitte"}, "", "")

	if result.Fallback {
		t.Errorf("unexpected fallback, validation error: %s", result.ValidationError)
	}
	if result.Output["summary"] != "all good" {
		t.Errorf("summary = %v, want 'all good'", result.Output["summary"])
	}

	prompt := client.prompts[0]
	for _, want := range []string{"You are Researcher.", "Gather the facts.", "Stuttgart-Mitte", `"summary": "string"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAgent_ExecuteTask_ValidationFallback(t *testing.T) {
	spec := sequentialSpec()
	client := &fakeLLM{responses: []string{`{"summary": 42}`}}
	agent := NewAgent("researcher", spec.Agents["researcher"], client, testLogger())

	result := agent.ExecuteTask(context.Background(), "gather", spec.Tasks["gather"], nil, "", "")

	// A schema violation never fails the task, it degrades to typed defaults.
	if !result.Fallback {
		t.Fatal("expected fallback output")
	}
	if result.ValidationError == "" {
		t.Error("expected a recorded validation error")
	}
	if result.Output["summary"] != "" {
		t.Errorf("fallback summary = %v, want empty string", result.Output["summary"])
	}
	if result.RawOutput == "" {
		t.Error("raw output should be preserved for the report")
	}
}

func TestRunner_Sequential(t *testing.T) {
	spec := sequentialSpec()
	client := &fakeLLM{responses: []string{
		`{"summary": "plot is in a residential zone"}`,
		`{"approved": true, "reasons": ["zoning allows it"]}`,
	}}

	runner := NewRunner(spec, client, nil, nil, RunnerOptions{}, testLogger())
	results, err := runner.Run(context.Background(), "run-1", map[string]interface{}{"location": "Stuttgart"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	if results[0].TaskName != "gather" || results[1].TaskName != "decide" {
		t.Errorf("tasks ran out of order: %s, %s", results[0].TaskName, results[1].TaskName)
	}

	// The second task's prompt carries the first task's structured output.
	secondPrompt := client.prompts[1]
	if !strings.Contains(secondPrompt, "Results from previous tasks") ||
		!strings.Contains(secondPrompt, "plot is in a residential zone") {
		t.Error("prior task output was not chained into the second prompt")
	}
}

func TestRunner_RetriesModelFailures(t *testing.T) {
	spec := sequentialSpec()
	spec.TaskOrder = []string{"gather"}
	client := &fakeLLM{
		errs:      []error{fmt.Errorf("rate limited"), nil},
		responses: []string{"", `{"summary": "recovered"}`},
	}

	opts := RunnerOptions{
		Retry: models.RetryPolicy{MaxRetries: 2, BackoffCoeff: 1.0, InitialDelay: "1ms"},
	}
	runner := NewRunner(spec, client, nil, nil, opts, testLogger())

	results, err := runner.Run(context.Background(), "run-2", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results[0].Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", results[0].Attempts)
	}
	if results[0].Output["summary"] != "recovered" {
		t.Errorf("summary = %v, want 'recovered'", results[0].Output["summary"])
	}
}

func TestRunner_FailsAfterRetryBudget(t *testing.T) {
	spec := sequentialSpec()
	spec.TaskOrder = []string{"gather"}
	client := &fakeLLM{errs: []error{
		fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down"),
	}}

	opts := RunnerOptions{
		Retry: models.RetryPolicy{MaxRetries: 2, BackoffCoeff: 1.0, InitialDelay: "1ms"},
	}
	runner := NewRunner(spec, client, nil, nil, opts, testLogger())

	if _, err := runner.Run(context.Background(), "run-3", nil); err == nil {
		t.Error("expected error once the retry budget is exhausted")
	}
	if client.calls != 3 {
		t.Errorf("model called %d times, want 3", client.calls)
	}
}

func TestRunner_ValidationFailureDoesNotFailRun(t *testing.T) {
	spec := sequentialSpec()
	client := &fakeLLM{responses: []string{
		"complete garbage, no json here",
		`{"approved": false, "reasons": []}`,
	}}

	runner := NewRunner(spec, client, nil, nil, RunnerOptions{}, testLogger())
	results, err := runner.Run(context.Background(), "run-4", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !results[0].Fallback {
		t.Error("first task should have fallen back")
	}
	if results[1].Fallback {
		t.Error("second task should have succeeded")
	}
	// No retry happens for validation failures.
	if client.calls != 2 {
		t.Errorf("model called %d times, want 2", client.calls)
	}
}

func TestRunner_EmptyOutputFallsBack(t *testing.T) {
	spec := sequentialSpec()
	// A successful call returning an empty string is a validation problem,
	// not a transport failure: no retry, no run abort.
	client := &fakeLLM{responses: []string{
		"",
		`{"approved": true, "reasons": []}`,
	}}

	opts := RunnerOptions{
		Retry: models.RetryPolicy{MaxRetries: 2, BackoffCoeff: 1.0, InitialDelay: "1ms"},
	}
	runner := NewRunner(spec, client, nil, nil, opts, testLogger())

	results, err := runner.Run(context.Background(), "run-7", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	first := results[0]
	if !first.Fallback || first.ValidationError == "" {
		t.Errorf("empty output should degrade to a typed fallback: %+v", first)
	}
	if first.TransportError != "" {
		t.Errorf("TransportError = %q, want empty for a successful call", first.TransportError)
	}
	if first.Attempts != 1 || client.calls != 2 {
		t.Errorf("attempts = %d, calls = %d; empty output must not be retried", first.Attempts, client.calls)
	}
	if results[1].Fallback {
		t.Error("second task should have succeeded")
	}
}

// memorySpy records Remember calls.
type memorySpy struct {
	runIDs []string
	tasks  []string
}

func (m *memorySpy) Remember(ctx context.Context, runID string, result models.TaskResult) error {
	m.runIDs = append(m.runIDs, runID)
	m.tasks = append(m.tasks, result.TaskName)
	return nil
}

// contextStub serves a fixed context string.
type contextStub struct {
	calls int
}

func (c *contextStub) ContextForQuery(ctx context.Context, query string, maxChars int, includeCitations bool) (string, error) {
	c.calls++
	return "[Source 1] Doc | Page 1\n\nContent: relevant chunk", nil
}

func TestRunner_MemoryAndContextWiring(t *testing.T) {
	spec := sequentialSpec()
	spec.TaskOrder = []string{"gather"}
	client := &fakeLLM{responses: []string{`{"summary": "done"}`}}
	spy := &memorySpy{}
	contexts := &contextStub{}

	runner := NewRunner(spec, client, contexts, spy, RunnerOptions{}, testLogger())
	if _, err := runner.Run(context.Background(), "run-5", nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if contexts.calls != 1 {
		t.Errorf("context provider called %d times, want 1", contexts.calls)
	}
	if !strings.Contains(client.prompts[0], "relevant chunk") {
		t.Error("retrieved context missing from the prompt")
	}
	if len(spy.tasks) != 1 || spy.tasks[0] != "gather" || spy.runIDs[0] != "run-5" {
		t.Errorf("memory writes = %v/%v, want one write for gather/run-5", spy.tasks, spy.runIDs)
	}
}

func TestRunner_Hierarchical(t *testing.T) {
	spec := sequentialSpec()
	spec.Process = ProcessHierarchical
	spec.ManagerAgent = "manager"
	spec.Agents["manager"] = AgentSpec{Role: "Manager", Goal: "Delegate.", AllowDelegation: true}

	// Call order: manager picks "decide" first, then the two task executions
	// (the last remaining task is picked without a model call).
	client := &fakeLLM{responses: []string{
		`{"task": "decide"}`,
		`{"approved": true, "reasons": []}`,
		`{"summary": "late research"}`,
	}}

	runner := NewRunner(spec, client, nil, nil, RunnerOptions{}, testLogger())
	results, err := runner.Run(context.Background(), "run-6", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].TaskName != "decide" || results[1].TaskName != "gather" {
		t.Errorf("manager ordering not honored: %s, %s", results[0].TaskName, results[1].TaskName)
	}
}
