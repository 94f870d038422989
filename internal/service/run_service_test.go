package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crewpilot/internal/crew"
	"crewpilot/internal/models"
	"crewpilot/internal/report"
	"crewpilot/pkg/logger"
)

type scriptedLLM struct {
	responses []string
	calls     int
}

func (f *scriptedLLM) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		return nil, errors.New("no scripted response")
	}
	return &models.GenerateContentResponse{
		Content: []models.Content{models.NewTextContent(models.SpeakerModel, f.responses[idx])},
	}, nil
}

func (f *scriptedLLM) GenerateContentStream(ctx context.Context, req *models.GenerateContentRequest) (<-chan *models.GenerateContentResponse, error) {
	ch := make(chan *models.GenerateContentResponse)
	close(ch)
	return ch, nil
}

func reviewSpec() *crew.CrewSpec {
	return &crew.CrewSpec{
		Name:      "permit_review",
		Process:   crew.ProcessSequential,
		TaskOrder: []string{"check_building_code"},
		Agents: map[string]crew.AgentSpec{
			"building_code_agent": {Role: "Building Code Expert", Goal: "Check compliance", Backstory: "Expert"},
		},
		Tasks: map[string]crew.TaskSpec{
			"check_building_code": {
				Description:  "Check compliance.",
				Agent:        "building_code_agent",
				OutputSchema: crew.OutputSchema{"compliant": crew.FieldBool},
			},
		},
	}
}

func newRunService(t *testing.T, model *scriptedLLM) (*RunService, *MemoryRunStore) {
	t.Helper()
	log := logger.New("test", "", "")
	registry := crew.NewRegistry()
	registry.Register(reviewSpec())
	store := NewMemoryRunStore()
	svc := NewRunService(
		registry,
		model,
		nil, nil,
		store,
		report.NewWriter(t.TempDir(), log),
		nil, nil,
		crew.RunnerOptions{Retry: models.RetryPolicy{MaxRetries: 0, BackoffCoeff: 1.0, InitialDelay: "1ms"}},
		log,
	)
	return svc, store
}

func waitForTerminal(t *testing.T, store *MemoryRunStore, id string) *models.RunRecord {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		record, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if record.Status == models.RunStatusSuccess || record.Status == models.RunStatusFailed {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("run did not complete in time")
	return nil
}

// Submit 返回的记录是执行开始前的快照，后台 goroutine 对运行记录的
// 修改不能透过这个指针被调用方观察到。
func TestSubmit_ReturnsImmutableSnapshot(t *testing.T) {
	svc, store := newRunService(t, &scriptedLLM{responses: []string{`{"compliant": true}`}})

	returned, err := svc.Submit(context.Background(), "permit_review", "user-1", map[string]interface{}{"location": "Stuttgart-Mitte"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if returned.Status != models.RunStatusPending {
		t.Fatalf("submitted status = %s, want pending", returned.Status)
	}

	stored := waitForTerminal(t, store, returned.ID)
	if stored.Status != models.RunStatusSuccess {
		t.Fatalf("stored status = %s, error = %s", stored.Status, stored.Error)
	}

	// 调用方的快照保持提交时的状态。
	if returned.Status != models.RunStatusPending {
		t.Errorf("snapshot status mutated to %s", returned.Status)
	}
	if len(returned.Results) != 0 || !returned.CompletedAt.IsZero() {
		t.Errorf("snapshot carries execution state: results=%d completedAt=%v", len(returned.Results), returned.CompletedAt)
	}
}

func TestSubmit_UnknownCrew(t *testing.T) {
	svc, _ := newRunService(t, &scriptedLLM{})

	if _, err := svc.Submit(context.Background(), "nope", "user-1", nil); err == nil {
		t.Error("expected error for unregistered crew")
	}
}
