package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID has no row in bev_runs.
var ErrRunNotFound = errors.New("run not found")

// Run modes.
const (
	ModeBatch = "batch" // disparity maps to .bin clouds
	ModeBEV   = "bev"   // disparity maps to BEV rasters
)

// Run is one invocation of a pipeline command.
type Run struct {
	ID          string     `json:"run_id"`
	Mode        string     `json:"mode"`
	SourceDir   string     `json:"source_dir"`
	ConfigJSON  string     `json:"config_json"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	FrameCount  int        `json:"frame_count"`
	FailedCount int        `json:"failed_count"`
}

// FrameRecord is the outcome of one frame within a run.
type FrameRecord struct {
	RunID         string        `json:"run_id"`
	FrameName     string        `json:"frame_name"`
	PointCount    int           `json:"point_count"`
	OccupiedCells int           `json:"occupied_cells"`
	MeanHeight    float64       `json:"mean_height"`
	Duration      time.Duration `json:"duration_ns"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RunStore records runs and their frames.
type RunStore interface {
	StartRun(mode, sourceDir, configJSON string) (*Run, error)
	RecordFrame(rec FrameRecord) error
	FinishRun(runID string) error
	GetRun(runID string) (*Run, error)
	ListFrames(runID string) ([]FrameRecord, error)
	ListRuns(limit int) ([]Run, error)
}

var _ RunStore = (*DB)(nil)

// StartRun inserts a new run with a random ID.
func (db *DB) StartRun(mode, sourceDir, configJSON string) (*Run, error) {
	if configJSON == "" {
		configJSON = "{}"
	}
	run := &Run{
		ID:         uuid.New().String(),
		Mode:       mode,
		SourceDir:  sourceDir,
		ConfigJSON: configJSON,
		StartedAt:  time.Now(),
	}
	_, err := db.Exec(
		`INSERT INTO bev_runs (run_id, mode, source_dir, config_json, started_at_ns)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.SourceDir, run.ConfigJSON, run.StartedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// RecordFrame stores a frame and updates the run's counters.
func (db *DB) RecordFrame(rec FrameRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	failed := 0
	if rec.Error != "" {
		failed = 1
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE bev_runs SET frame_count = frame_count + 1, failed_count = failed_count + ?
		 WHERE run_id = ?`,
		failed, rec.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run counters: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, rec.RunID)
	}

	_, err = tx.Exec(
		`INSERT INTO bev_frames (
			run_id, frame_name, point_count, occupied_cells, mean_height,
			duration_ms, error, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.FrameName, rec.PointCount, rec.OccupiedCells, rec.MeanHeight,
		float64(rec.Duration)/float64(time.Millisecond), rec.Error, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}
	return tx.Commit()
}

// FinishRun stamps the run's finish time.
func (db *DB) FinishRun(runID string) error {
	res, err := db.Exec(`UPDATE bev_runs SET finished_at_ns = ? WHERE run_id = ?`, time.Now().UnixNano(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `run_id, mode, source_dir, config_json, started_at_ns, finished_at_ns, frame_count, failed_count`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		startedNs  int64
		finishedNs sql.NullInt64
	)
	if err := row.Scan(&run.ID, &run.Mode, &run.SourceDir, &run.ConfigJSON,
		&startedNs, &finishedNs, &run.FrameCount, &run.FailedCount); err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(0, startedNs)
	if finishedNs.Valid {
		t := time.Unix(0, finishedNs.Int64)
		run.FinishedAt = &t
	}
	return &run, nil
}

// GetRun returns a single run.
func (db *DB) GetRun(runID string) (*Run, error) {
	run, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM bev_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM bev_runs ORDER BY started_at_ns DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListFrames returns the frames of a run in insertion order.
func (db *DB) ListFrames(runID string) ([]FrameRecord, error) {
	rows, err := db.Query(
		`SELECT run_id, frame_name, point_count, occupied_cells, mean_height,
		        duration_ms, error, created_at_ns
		 FROM bev_frames WHERE run_id = ? ORDER BY frame_id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	defer rows.Close()

	frames := []FrameRecord{}
	for rows.Next() {
		var (
			rec        FrameRecord
			durationMs float64
			createdNs  int64
		)
		if err := rows.Scan(&rec.RunID, &rec.FrameName, &rec.PointCount, &rec.OccupiedCells,
			&rec.MeanHeight, &durationMs, &rec.Error, &createdNs); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMs * float64(time.Millisecond))
		rec.CreatedAt = time.Unix(0, createdNs)
		frames = append(frames, rec)
	}
	return frames, rows.Err()
}
