package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dfseltzer/pylab/ports"
)

// Recorder implements ports.Recorder using SQLite.
type Recorder struct {
	db *DB
}

// NewRecorder creates a new SQLite recorder.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{db: db}
}

// StartRun opens a new recording run and returns its ID.
func (r *Recorder) StartRun(ctx context.Context, bench string, at time.Time) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, bench, started_at) VALUES (?, ?, ?)
	`, id, bench, at.UTC())
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// Record persists one sample.
func (r *Recorder) Record(ctx context.Context, s ports.Sample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO samples (run_id, instrument, quantity, value, at)
		VALUES (?, ?, ?, ?, ?)
	`, s.RunID, s.Instrument, s.Quantity, s.Value, s.At.UTC())
	if err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	return nil
}

// FinishRun marks a run as complete.
func (r *Recorder) FinishRun(ctx context.Context, runID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ? WHERE id = ?
	`, at.UTC(), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// Run is one recorded measurement session.
type Run struct {
	ID         string
	Bench      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// GetRun returns run metadata by ID.
func (r *Recorder) GetRun(ctx context.Context, runID string) (Run, error) {
	var run Run
	var finished sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, bench, started_at, finished_at FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.Bench, &run.StartedAt, &finished)
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return run, nil
}

// Samples returns all samples of a run in recording order.
func (r *Recorder) Samples(ctx context.Context, runID string) ([]ports.Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, instrument, quantity, value, at
		FROM samples WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []ports.Sample
	for rows.Next() {
		var s ports.Sample
		if err := rows.Scan(&s.RunID, &s.Instrument, &s.Quantity, &s.Value, &s.At); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ ports.Recorder = (*Recorder)(nil)
