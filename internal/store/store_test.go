package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestTaskRoundtrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task := &Task{
		ID:        uuid.NewString(),
		Goal:      "check the weather in Paris",
		UserID:    "alice",
		Status:    TaskExecuting,
		StartedAt: time.Now().UTC(),
		Steps: []Step{
			{ID: uuid.NewString(), Index: 1, Action: "look up weather", Tool: "search",
				Args: map[string]any{"query": "weather Paris"}, Status: StepSuccess, Output: "18C"},
		},
		Observations: []Observation{
			{StepIndex: 1, Type: ObsResult, Content: "18C", Timestamp: time.Now().UTC()},
		},
		TokensUsed: 120,
	}
	if err := st.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	got, err := st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected task, got nil")
	}
	if got.Goal != task.Goal || got.Status != TaskExecuting || got.TokensUsed != 120 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if len(got.Steps) != 1 || got.Steps[0].Tool != "search" || got.Steps[0].Output != "18C" {
		t.Errorf("steps did not survive the roundtrip: %+v", got.Steps)
	}
	if len(got.Observations) != 1 || got.Observations[0].Type != ObsResult {
		t.Errorf("observations did not survive the roundtrip: %+v", got.Observations)
	}
}

func TestSaveTaskUpsertIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	task := &Task{ID: uuid.NewString(), Goal: "goal", UserID: "alice", Status: TaskPending, StartedAt: time.Now().UTC()}
	if err := st.SaveTask(ctx, task); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	task.Status = TaskCompleted
	task.Result = "done"
	if err := st.SaveTask(ctx, task); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	// Saving the same snapshot again must not error or duplicate.
	if err := st.SaveTask(ctx, task); err != nil {
		t.Fatalf("idempotent save failed: %v", err)
	}

	got, err := st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != TaskCompleted || got.Result != "done" {
		t.Errorf("upsert did not take the latest snapshot: %+v", got)
	}

	tasks, err := st.GetUserTasks(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("GetUserTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("upsert must not duplicate rows, got %d", len(tasks))
	}
}

func TestGetTaskMissing(t *testing.T) {
	st := newTestStore(t)
	got, err := st.GetTask(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing task, got %+v", got)
	}
}

func TestGetUserTasksScopedToUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"alice", "alice", "bob"} {
		task := &Task{ID: uuid.NewString(), Goal: "goal for " + user, UserID: user, Status: TaskCompleted, StartedAt: time.Now().UTC()}
		if err := st.SaveTask(ctx, task); err != nil {
			t.Fatalf("SaveTask failed: %v", err)
		}
	}

	tasks, err := st.GetUserTasks(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("GetUserTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks for alice, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.UserID != "alice" {
			t.Errorf("got task for wrong user: %+v", task)
		}
	}
}

func TestSearchMemoriesKeywordMatch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seed := []struct {
		content string
		memType string
		score   float64
	}{
		{"For weather goals, the tool chain [search] completed", MemoryLearning, 0.8},
		{"User prefers metric units", MemoryPreference, 0.9},
		{"A coding goal failed (syntax error)", MemoryLearning, 0.3},
		{"The capital of France is Paris", MemoryFact, 0.7},
	}
	for _, s := range seed {
		if _, err := st.SaveMemory(ctx, "alice", s.memType, s.content, nil, s.score); err != nil {
			t.Fatalf("SaveMemory failed: %v", err)
		}
	}

	// Multi-keyword query matches on any keyword, case-insensitive.
	got, err := st.SearchMemories(ctx, "alice", "WEATHER paris", MemoryQuery{})
	if err != nil {
		t.Fatalf("SearchMemories failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	// Ranked by score: the 0.8 learning comes before the 0.7 fact.
	if got[0].Score < got[1].Score {
		t.Errorf("results not ranked by score: %v then %v", got[0].Score, got[1].Score)
	}

	// Type filter narrows the match set.
	learnings, err := st.SearchMemories(ctx, "alice", "goal", MemoryQuery{Type: MemoryLearning})
	if err != nil {
		t.Fatalf("SearchMemories with type failed: %v", err)
	}
	for _, m := range learnings {
		if m.Type != MemoryLearning {
			t.Errorf("type filter leaked %s memory", m.Type)
		}
	}

	// Other users' memories are invisible.
	other, err := st.SearchMemories(ctx, "bob", "weather", MemoryQuery{})
	if err != nil {
		t.Fatalf("SearchMemories for bob failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("memories leaked across users: %d", len(other))
	}
}

func TestSearchMemoriesNoMatch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	if _, err := st.SaveMemory(ctx, "alice", MemoryFact, "something unrelated", nil, 0.5); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}
	got, err := st.SearchMemories(ctx, "alice", "zzzzz", MemoryQuery{})
	if err != nil {
		t.Fatalf("SearchMemories failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}

func TestGetRecentMemories(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.SaveMemory(ctx, "alice", MemoryTask, "first outcome", nil, 0.5); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}
	if _, err := st.SaveMemory(ctx, "alice", MemoryLearning, "a learning", nil, 0.8); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}
	if _, err := st.SaveMemory(ctx, "alice", MemoryTask, "second outcome", nil, 0.5); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}

	got, err := st.GetRecentMemories(ctx, "alice", MemoryTask, 5)
	if err != nil {
		t.Fatalf("GetRecentMemories failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 task memories, got %d", len(got))
	}
	for _, m := range got {
		if m.Type != MemoryTask {
			t.Errorf("wrong type in recent memories: %s", m.Type)
		}
	}
}

func TestMemoryMetadataRoundtrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	meta := map[string]any{"category": "weather", "task_id": "t-1"}
	if _, err := st.SaveMemory(ctx, "alice", MemoryLearning, "weather chains work", meta, 0.8); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}

	got, err := st.SearchMemories(ctx, "alice", "weather", MemoryQuery{})
	if err != nil {
		t.Fatalf("SearchMemories failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one memory, got %d", len(got))
	}
	if got[0].Metadata["category"] != "weather" {
		t.Errorf("metadata did not survive the roundtrip: %+v", got[0].Metadata)
	}
}

func TestPruneMemories(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, 0, -60)
	seed := []struct {
		content   string
		score     float64
		createdAt time.Time
	}{
		{"old low-score outcome", 0.3, old},
		{"old high-score learning", 0.8, old},
		{"fresh low-score outcome", 0.3, time.Now().UTC()},
	}
	for _, s := range seed {
		mem, err := st.SaveMemory(ctx, "alice", MemoryTask, s.content, nil, s.score)
		if err != nil {
			t.Fatalf("SaveMemory failed: %v", err)
		}
		if _, err := st.DB.ExecContext(ctx,
			`UPDATE memories SET created_at = ? WHERE id = ?`, s.createdAt, mem.ID); err != nil {
			t.Fatalf("failed to backdate memory: %v", err)
		}
	}

	pruned, err := st.PruneMemories(ctx, time.Now().UTC().AddDate(0, 0, -30), 0.4)
	if err != nil {
		t.Fatalf("PruneMemories failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned memory, got %d", pruned)
	}

	remaining, err := st.SearchMemories(ctx, "alice", "", MemoryQuery{})
	if err != nil {
		t.Fatalf("SearchMemories failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 surviving memories, got %d", len(remaining))
	}
	for _, m := range remaining {
		if m.Content == "old low-score outcome" {
			t.Error("old low-score memory survived pruning")
		}
	}
}

func TestLockLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec, err := st.GetLock(ctx, "browser")
	if err != nil {
		t.Fatalf("GetLock failed: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected no lock, got %+v", rec)
	}

	started := time.Now().UTC().Truncate(time.Second)
	cutoff := started.Add(-5 * time.Minute)
	claimed, err := st.ClaimLock(ctx, LockRecord{Label: "browser", Holder: "task-1", StartedAt: started}, cutoff)
	if err != nil {
		t.Fatalf("ClaimLock failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim of a free label to win")
	}

	rec, err = st.GetLock(ctx, "browser")
	if err != nil {
		t.Fatalf("GetLock failed: %v", err)
	}
	if rec == nil || rec.Holder != "task-1" {
		t.Fatalf("expected lock held by task-1, got %+v", rec)
	}

	// A different holder cannot take a fresh row.
	claimed, err = st.ClaimLock(ctx, LockRecord{Label: "browser", Holder: "task-2", StartedAt: time.Now().UTC()}, cutoff)
	if err != nil {
		t.Fatalf("ClaimLock failed: %v", err)
	}
	if claimed {
		t.Fatal("fresh lock must not be taken over by another holder")
	}
	rec, _ = st.GetLock(ctx, "browser")
	if rec.Holder != "task-1" {
		t.Errorf("expected holder task-1 after refused claim, got %s", rec.Holder)
	}

	// The owner may refresh its own row.
	claimed, err = st.ClaimLock(ctx, LockRecord{Label: "browser", Holder: "task-1", StartedAt: time.Now().UTC()}, cutoff)
	if err != nil {
		t.Fatalf("ClaimLock failed: %v", err)
	}
	if !claimed {
		t.Fatal("owner must be able to refresh its own lock")
	}

	// A row older than the cutoff is taken over.
	claimed, err = st.ClaimLock(ctx, LockRecord{Label: "browser", Holder: "task-2", StartedAt: time.Now().UTC()}, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("ClaimLock failed: %v", err)
	}
	if !claimed {
		t.Fatal("stale lock must be reclaimable")
	}
	rec, _ = st.GetLock(ctx, "browser")
	if rec.Holder != "task-2" {
		t.Errorf("expected holder task-2, got %s", rec.Holder)
	}

	// Delete is owner-checked.
	deleted, err := st.DeleteLock(ctx, "browser", "task-1")
	if err != nil {
		t.Fatalf("DeleteLock failed: %v", err)
	}
	if deleted {
		t.Error("delete by non-owner must be a no-op")
	}
	deleted, err = st.DeleteLock(ctx, "browser", "task-2")
	if err != nil {
		t.Fatalf("DeleteLock failed: %v", err)
	}
	if !deleted {
		t.Error("owner delete must remove the lock")
	}
	rec, _ = st.GetLock(ctx, "browser")
	if rec != nil {
		t.Errorf("lock survived owner delete: %+v", rec)
	}
}
