package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/pycoreos/pcforge/src/common/errors"
	"github.com/pycoreos/pcforge/src/forge/build"
	"github.com/pycoreos/pcforge/src/forge/journal/migrations"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(Config{Enabled: true, Path: filepath.Join(t.TempDir(), "nested", "history.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ============================================================================
// Schema
// ============================================================================

func TestOpen_AppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	runner := migrations.NewRunner(db.DB())
	version, err := runner.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != len(migrations.All()) {
		t.Errorf("expected version %d, got %d", len(migrations.All()), version)
	}
	if pending, _ := runner.PendingCount(); pending != 0 {
		t.Errorf("expected no pending migrations, got %d", pending)
	}

	// running again is a no-op
	if err := runner.Run(); err != nil {
		t.Errorf("second Run failed: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	db, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := NewRunRepository(db).Create(ctx, &Run{ID: "r1", Target: "build"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	db.Close()
	if err := db.Close(); err != nil {
		t.Errorf("second Close should be a no-op: %v", err)
	}

	db, err = Open(Config{Path: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()
	run, err := NewRunRepository(db).GetByID(ctx, "r1")
	if err != nil || run == nil {
		t.Fatalf("run lost across reopen: %v", err)
	}
}

func TestRunner_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)

	runner := migrations.NewRunnerWith(db.DB(), append(migrations.All(), migrations.Migration{
		Version:     99,
		Description: "broken",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`CREATE TABLE scratch (id INTEGER)`); err != nil {
				return err
			}
			return fmt.Errorf("boom")
		},
	}))
	if err := runner.Run(); err == nil {
		t.Fatal("expected migration error")
	}

	var n int
	db.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'scratch'`).Scan(&n)
	if n != 0 {
		t.Error("failed migration must be rolled back")
	}
	if pending, _ := runner.PendingCount(); pending != 1 {
		t.Errorf("expected 1 pending migration, got %d", pending)
	}
}

// ============================================================================
// Runs
// ============================================================================

func TestRunRepository_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Create(ctx, &Run{ID: "run-1", Target: "test", Root: "/src", StartedAt: started}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.UpdateStage(ctx, "run-1", "boot"); err != nil {
		t.Fatalf("UpdateStage failed: %v", err)
	}

	run, err := repo.GetByID(ctx, "run-1")
	if err != nil || run == nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if run.Status != "running" || run.Stage != "boot" || run.CompletedAt != nil || run.Duration() != 0 {
		t.Errorf("unexpected running run %+v", run)
	}

	done := started.Add(42 * time.Second)
	err = repo.Finish(ctx, build.RunSummary{
		ID:          "run-1",
		Status:      build.RunFailed,
		Stage:       build.StageBoot,
		Error:       "boot.marker_absent: marker not found",
		KernelSize:  4096,
		Artifact:    "/src/build/pycoreos.iso",
		BootState:   build.BootFailed,
		CompletedAt: done,
	})
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	run, _ = repo.GetByID(ctx, "run-1")
	if run.Status != "failed" || run.Stage != "boot" || run.BootState != "failed" || run.KernelSize != 4096 {
		t.Errorf("unexpected finished run %+v", run)
	}
	if run.Duration() != 42*time.Second {
		t.Errorf("expected 42s, got %s", run.Duration())
	}

	if missing, err := repo.GetByID(ctx, "nope"); err != nil || missing != nil {
		t.Errorf("expected nil for missing run, got %+v, %v", missing, err)
	}
	if err := repo.UpdateStage(ctx, "nope", "link"); err == nil {
		t.Error("expected error updating a missing run")
	}
}

func TestRunRepository_ListNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := &Run{ID: fmt.Sprintf("run-%d", i), Target: "build", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	runs, err := repo.List(ctx, 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "run-4" || runs[2].ID != "run-2" {
		t.Errorf("unexpected listing %+v", runs)
	}

	all, _ := repo.List(ctx, 0)
	if len(all) != 5 {
		t.Errorf("expected all 5 runs, got %d", len(all))
	}
}

// ============================================================================
// Pipeline integration
// ============================================================================

func TestRecorder_RecordsFailedResolve(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ws, err := build.NewWorkspace(t.TempDir(), "", "", "")
	if err != nil {
		t.Fatalf("NewWorkspace failed: %v", err)
	}
	nothing := func(string) (string, error) { return "", exec.ErrNotFound }
	pipeline := build.NewPipeline(ws, build.DefaultConfig(), build.NewResolver(nil).WithLookPath(nothing), build.NewHostExecutor(nil)).
		WithRecorder(NewRecorder(db))

	_, err = pipeline.Run(ctx, build.TargetTest)
	if !errors.Is(err, errors.ErrToolResolution) {
		t.Fatalf("expected ErrToolResolution, got %v", err)
	}

	runs, err := NewRunRepository(db).List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.Target != "test" || run.Status != "failed" || run.Stage != "resolve" || run.Error == "" || run.CompletedAt == nil {
		t.Errorf("unexpected run %+v", run)
	}
	if run.Root != ws.Root {
		t.Errorf("expected root %s, got %s", ws.Root, run.Root)
	}
}
