package repository

import (
	"context"
	"database/sql"
	"time"

	"reflow_oven/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

type StateRepo interface {
	Save(ctx context.Context, s models.OvenState) error
	Load(ctx context.Context) (models.OvenState, error)
}

// EventQuery filters the event log. Zero fields do not filter.
type EventQuery struct {
	From  time.Time // inclusive
	To    time.Time // inclusive
	Type  string
	RunID string
}

type EventRepo interface {
	Append(ctx context.Context, e models.OvenEvent) error
	List(ctx context.Context, q EventQuery) ([]models.OvenEvent, error)
}

// SampleRepo stores the 1 Hz chart samples of each run.
type SampleRepo interface {
	Append(ctx context.Context, s models.RunSample) error
	ListByRun(ctx context.Context, runID string) ([]models.RunSample, error)
	LatestRunID(ctx context.Context) (string, error)
}

type Repository struct {
	StateRepo  StateRepo
	EventRepo  EventRepo
	SampleRepo SampleRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:  NewStateSQLite(db),
		EventRepo:  NewEventSQLite(db),
		SampleRepo: NewSampleSQLite(db),
		Auth:       NewUserRepository(db),
	}
}
