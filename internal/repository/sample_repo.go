package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reflow_oven/internal/models"
)

type SampleSQLite struct {
	db *sql.DB
}

func NewSampleSQLite(db *sql.DB) *SampleSQLite { return &SampleSQLite{db: db} }

var _ SampleRepo = (*SampleSQLite)(nil)

const (
	insertSampleSQL    = `INSERT INTO run_samples (run_id, seq, temp_c, taken_at) VALUES (?, ?, ?, ?)`
	selectSamplesSQL   = `SELECT run_id, seq, temp_c, taken_at FROM run_samples WHERE run_id = ? ORDER BY seq ASC`
	selectLatestRunSQL = `SELECT run_id FROM run_samples ORDER BY taken_at DESC, seq DESC LIMIT 1`
)

// Append stores one chart sample. A zero TakenAt is set to now.
func (r *SampleSQLite) Append(ctx context.Context, s models.RunSample) error {
	if s.RunID == "" {
		return errors.New("sample without run id")
	}
	if s.TakenAt.IsZero() {
		s.TakenAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertSampleSQL, s.RunID, s.Seq, s.TempC, s.TakenAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("insert sample %s/%d: %w", s.RunID, s.Seq, err)
	}
	return nil
}

// ListByRun returns a run's samples in chart order.
func (r *SampleSQLite) ListByRun(ctx context.Context, runID string) ([]models.RunSample, error) {
	rows, err := r.db.QueryContext(ctx, selectSamplesSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("select samples for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []models.RunSample
	for rows.Next() {
		var s models.RunSample
		if err := rows.Scan(&s.RunID, &s.Seq, &s.TempC, &s.TakenAt); err != nil {
			return nil, err
		}
		s.TakenAt = s.TakenAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestRunID returns the run with the most recent sample, or "" if none.
func (r *SampleSQLite) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, selectLatestRunSQL).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select latest run: %w", err)
	}
	return id, nil
}
