package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"reflow_oven/internal/controller"
	"reflow_oven/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	ovenStateRowID = 1

	insertOrUpdateStateSQL = `
		INSERT INTO oven_state (id, run_id, phase, label, temp_c, setpoint_c, target_c, heater_on, elapsed_s, errors, running, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id=excluded.run_id,
			phase=excluded.phase,
			label=excluded.label,
			temp_c=excluded.temp_c,
			setpoint_c=excluded.setpoint_c,
			target_c=excluded.target_c,
			heater_on=excluded.heater_on,
			elapsed_s=excluded.elapsed_s,
			errors=excluded.errors,
			running=excluded.running,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, run_id, phase, label, temp_c, setpoint_c, target_c, heater_on, elapsed_s, errors, running, updated_at
		FROM oven_state WHERE id=?
	`
)

func marshalErrorCodes(codes []string) (string, error) {
	b, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalErrorCodes(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(s), &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// Save upserts the single oven_state row.
func (r *StateSQLite) Save(ctx context.Context, state models.OvenState) error {
	errorsJSONStr, err := marshalErrorCodes(state.ErrorCodes)
	if err != nil {
		return err
	}

	tsUTC := state.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err = r.db.ExecContext(ctx, insertOrUpdateStateSQL,
		ovenStateRowID,
		state.RunID,
		state.Phase,
		state.StageLabel,
		state.CurrentTempC,
		state.SetpointC,
		state.TargetC,
		state.HeaterOn,
		state.ElapsedSeconds,
		errorsJSONStr,
		state.IsRunning,
		tsUTC,
	)
	return err
}

// Load fetches the oven_state row. A missing row yields the zero state.
func (r *StateSQLite) Load(ctx context.Context) (models.OvenState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, ovenStateRowID)

	var s models.OvenState
	var errorsJSONStr string
	if err := row.Scan(
		&s.ID,
		&s.RunID,
		&s.Phase,
		&s.StageLabel,
		&s.CurrentTempC,
		&s.SetpointC,
		&s.TargetC,
		&s.HeaterOn,
		&s.ElapsedSeconds,
		&errorsJSONStr,
		&s.IsRunning,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OvenState{}, nil
		}
		return models.OvenState{}, err
	}

	codes, err := unmarshalErrorCodes(errorsJSONStr)
	if err != nil {
		return models.OvenState{}, err
	}
	s.ErrorCodes = codes
	s.ElapsedText = controller.FormatElapsed(s.ElapsedSeconds)
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
