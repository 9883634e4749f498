package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pycoreos/pcforge/src/forge/build"
)

// Run is one recorded pipeline run
type Run struct {
	ID          string     `json:"id"`
	Target      string     `json:"target"`
	Root        string     `json:"root"`
	Status      string     `json:"status"`
	Stage       string     `json:"stage,omitempty"`
	Error       string     `json:"error,omitempty"`
	KernelSize  int64      `json:"kernel_size,omitempty"`
	Artifact    string     `json:"artifact,omitempty"`
	BootState   string     `json:"boot_state,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunRepository handles run database operations
type RunRepository struct {
	db *Database
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *Database) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run
func (r *RunRepository) Create(ctx context.Context, run *Run) error {
	if run.Status == "" {
		run.Status = string(build.RunRunning)
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := r.db.DB().ExecContext(ctx, `
		INSERT INTO runs (id, target, root, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Target, run.Root, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateStage records the stage a run has reached
func (r *RunRepository) UpdateStage(ctx context.Context, id, stage string) error {
	return r.exec(ctx, "update run stage", `UPDATE runs SET current_stage = ? WHERE id = ?`, stage, id)
}

// Finish stores the outcome of a run
func (r *RunRepository) Finish(ctx context.Context, s build.RunSummary) error {
	return r.exec(ctx, "finish run", `
		UPDATE runs SET status = ?, current_stage = ?, error_message = ?,
			kernel_size = ?, artifact_path = ?, boot_state = ?, completed_at = ?
		WHERE id = ?
	`, string(s.Status), string(s.Stage), s.Error, s.KernelSize, s.Artifact, string(s.BootState), s.CompletedAt, s.ID)
}

func (r *RunRepository) exec(ctx context.Context, what, query string, args ...any) error {
	res, err := r.db.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to %s: run not found", what)
	}
	return nil
}

const selectRunsQuery = `
	SELECT id, target, root, status, current_stage, error_message,
		kernel_size, artifact_path, boot_state, started_at, completed_at
	FROM runs
`

// GetByID retrieves a run; a missing run returns nil without error
func (r *RunRepository) GetByID(ctx context.Context, id string) (*Run, error) {
	rows, err := r.db.DB().QueryContext(ctx, selectRunsQuery+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	runs, err := r.scanRuns(rows)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// List returns the most recent runs first; limit <= 0 returns all
func (r *RunRepository) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRunsQuery + ` ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return r.scanRuns(rows)
}

func (r *RunRepository) scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var stage, errorMsg, artifact, bootState sql.NullString
		var completedAt sql.NullTime

		if err := rows.Scan(
			&run.ID, &run.Target, &run.Root, &run.Status, &stage, &errorMsg,
			&run.KernelSize, &artifact, &bootState, &run.StartedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Stage = stage.String
		run.Error = errorMsg.String
		run.Artifact = artifact.String
		run.BootState = bootState.String
		if completedAt.Valid {
			t := completedAt.Time
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Recorder stores pipeline lifecycle events in the journal
type Recorder struct {
	runs *RunRepository
}

var _ build.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder backed by db
func NewRecorder(db *Database) *Recorder {
	return &Recorder{runs: NewRunRepository(db)}
}

// RunStarted implements build.Recorder
func (r *Recorder) RunStarted(ctx context.Context, info build.RunInfo) error {
	return r.runs.Create(ctx, &Run{
		ID:        info.ID,
		Target:    string(info.Target),
		Root:      info.Root,
		StartedAt: info.StartedAt,
	})
}

// StageStarted implements build.Recorder
func (r *Recorder) StageStarted(ctx context.Context, runID string, stage build.StageName) error {
	return r.runs.UpdateStage(ctx, runID, string(stage))
}

// RunFinished implements build.Recorder
func (r *Recorder) RunFinished(ctx context.Context, summary build.RunSummary) error {
	return r.runs.Finish(ctx, summary)
}
