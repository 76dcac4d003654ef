package state

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rgoodwin/cotflow/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return NewStore(db)
}

func sampleSnapshot() models.ProcessSnapshot {
	now := time.Now().Truncate(time.Second)
	return models.ProcessSnapshot{
		ProcessID:      "proc-1",
		Query:          "calculate 2 + 2",
		Status:         models.ProcessRunning,
		IterationCount: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
		Todos: []models.TodoSnapshot{
			{ID: "a", Content: "Calculate 2 + 2", Status: models.TodoStatusCompleted, Priority: 1,
				Feedback: []models.FeedbackEntry{{ID: "f1", Text: "ok", Source: models.FeedbackAuto, CreatedAt: now}}},
			{ID: "b", Content: "Verify result", Status: models.TodoStatusReady, Priority: 2,
				Dependencies: []string{"a"}},
		},
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	store := openTestStore(t)
	snap := sampleSnapshot()

	if err := store.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := store.LoadSnapshot("proc-1")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Query != snap.Query {
		t.Errorf("query = %q, want %q", loaded.Query, snap.Query)
	}
	if loaded.Status != models.ProcessRunning {
		t.Errorf("status = %s", loaded.Status)
	}
	if loaded.IterationCount != 1 {
		t.Errorf("iteration_count = %d", loaded.IterationCount)
	}
	if len(loaded.Todos) != 2 {
		t.Fatalf("loaded %d todos, want 2", len(loaded.Todos))
	}
	// Insertion order survives the round trip.
	if loaded.Todos[0].ID != "a" || loaded.Todos[1].ID != "b" {
		t.Errorf("todo order = %s, %s", loaded.Todos[0].ID, loaded.Todos[1].ID)
	}
	if len(loaded.Todos[0].Feedback) != 1 || loaded.Todos[0].Feedback[0].Text != "ok" {
		t.Errorf("feedback not preserved: %+v", loaded.Todos[0].Feedback)
	}
	if len(loaded.Todos[1].Dependencies) != 1 || loaded.Todos[1].Dependencies[0] != "a" {
		t.Errorf("dependencies not preserved: %v", loaded.Todos[1].Dependencies)
	}
}

func TestSaveSnapshotReplacesPrevious(t *testing.T) {
	store := openTestStore(t)
	snap := sampleSnapshot()
	if err := store.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	snap.Status = models.ProcessCompleted
	snap.IterationCount = 2
	snap.Todos[1].Status = models.TodoStatusCompleted
	if err := store.SaveSnapshot(snap); err != nil {
		t.Fatalf("second SaveSnapshot failed: %v", err)
	}

	loaded, err := store.LoadSnapshot("proc-1")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Status != models.ProcessCompleted {
		t.Errorf("status = %s, want completed", loaded.Status)
	}
	if loaded.IterationCount != 2 {
		t.Errorf("iteration_count = %d, want 2", loaded.IterationCount)
	}
	if len(loaded.Todos) != 2 {
		t.Errorf("loaded %d todos, want 2 (no duplicates)", len(loaded.Todos))
	}
	if loaded.Todos[1].Status != models.TodoStatusCompleted {
		t.Errorf("todo b status = %s, want completed", loaded.Todos[1].Status)
	}
}

func TestLoadSnapshotNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.LoadSnapshot("missing"); !errors.Is(err, ErrProcessNotFound) {
		t.Errorf("got %v, want ErrProcessNotFound", err)
	}
}

func TestListProcesses(t *testing.T) {
	store := openTestStore(t)

	first := sampleSnapshot()
	if err := store.SaveSnapshot(first); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	second := sampleSnapshot()
	second.ProcessID = "proc-2"
	second.Query = "plan the week"
	second.Todos = nil
	second.UpdatedAt = first.UpdatedAt.Add(time.Minute)
	if err := store.SaveSnapshot(second); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	infos, err := store.ListProcesses()
	if err != nil {
		t.Fatalf("ListProcesses failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("listed %d processes, want 2", len(infos))
	}
	// Most recently updated first.
	if infos[0].ProcessID != "proc-2" {
		t.Errorf("first listed = %s, want proc-2", infos[0].ProcessID)
	}
	if infos[1].TodoCount != 2 {
		t.Errorf("proc-1 todo count = %d, want 2", infos[1].TodoCount)
	}
}

func TestDeleteProcess(t *testing.T) {
	store := openTestStore(t)
	if err := store.SaveSnapshot(sampleSnapshot()); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	if err := store.DeleteProcess("proc-1"); err != nil {
		t.Fatalf("DeleteProcess failed: %v", err)
	}
	if _, err := store.LoadSnapshot("proc-1"); !errors.Is(err, ErrProcessNotFound) {
		t.Error("process still loadable after delete")
	}
	if err := store.DeleteProcess("proc-1"); !errors.Is(err, ErrProcessNotFound) {
		t.Errorf("second delete: got %v, want ErrProcessNotFound", err)
	}
}

func TestProjectDBPath(t *testing.T) {
	got := ProjectDBPath("/tmp/project")
	want := filepath.Join("/tmp/project", ".cotflow", "state.db")
	if got != want {
		t.Errorf("ProjectDBPath = %q, want %q", got, want)
	}
}
