package service

import (
	"context"
	"testing"
	"time"

	"crewpilot/internal/models"
)

func record(id, crewName string, submitted time.Time) *models.RunRecord {
	return &models.RunRecord{
		ID:          id,
		CrewName:    crewName,
		Status:      models.RunStatusPending,
		SubmittedAt: submitted,
	}
}

func TestMemoryRunStore_SaveGetUpdate(t *testing.T) {
	store := NewMemoryRunStore()
	ctx := context.Background()

	rec := record("run-1", "stuttgart_regulation", time.Now())
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// 存储保存的是副本，后续修改调用方的记录不影响已保存内容。
	rec.Status = models.RunStatusRunning
	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != models.RunStatusPending {
		t.Errorf("stored status = %s, want pending (store must clone records)", got.Status)
	}

	if err := store.Update(ctx, rec); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ = store.Get(ctx, "run-1")
	if got.Status != models.RunStatusRunning {
		t.Errorf("status after update = %s, want running", got.Status)
	}
}

func TestMemoryRunStore_NotFound(t *testing.T) {
	store := NewMemoryRunStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); err != ErrRunNotFound {
		t.Errorf("Get() error = %v, want ErrRunNotFound", err)
	}
	if err := store.Update(ctx, record("missing", "x", time.Now())); err != ErrRunNotFound {
		t.Errorf("Update() error = %v, want ErrRunNotFound", err)
	}
}

func TestMemoryRunStore_List(t *testing.T) {
	store := NewMemoryRunStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	for _, rec := range []*models.RunRecord{
		record("run-1", "alpha", base),
		record("run-2", "beta", base.Add(time.Minute)),
		record("run-3", "alpha", base.Add(2*time.Minute)),
	} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d records, want 3", len(all))
	}
	// 最近提交的排在最前。
	if all[0].ID != "run-3" || all[2].ID != "run-1" {
		t.Errorf("order = %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	alpha, err := store.List(ctx, "alpha", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(alpha) != 2 {
		t.Errorf("filtered List() returned %d records, want 2", len(alpha))
	}

	limited, err := store.List(ctx, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != "run-3" {
		t.Errorf("limited List() = %+v", limited)
	}
}
