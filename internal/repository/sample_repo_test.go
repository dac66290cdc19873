package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"reflow_oven/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSampleSQLite_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewSampleSQLite(db)
	at := time.Date(2025, 6, 1, 8, 0, 5, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertSampleSQL)).
		WithArgs("run-1", 3, 152, "2025-06-01 08:00:05").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Append(ctx(t), models.RunSample{RunID: "run-1", Seq: 3, TempC: 152, TakenAt: at}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestSampleSQLite_Append_RequiresRunID(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := NewSampleSQLite(db).Append(ctx(t), models.RunSample{TempC: 40}); err == nil {
		t.Fatalf("expected error for missing run id")
	}
}

func TestSampleSQLite_ListByRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewSampleSQLite(db)
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"run_id", "seq", "temp_c", "taken_at"}).
		AddRow("run-1", 0, 31, at).
		AddRow("run-1", 1, 33, at.Add(time.Second))
	mock.ExpectQuery(regexp.QuoteMeta(selectSamplesSQL)).
		WithArgs("run-1").
		WillReturnRows(rows)

	got, err := repo.ListByRun(ctx(t), "run-1")
	if err != nil {
		t.Fatalf("ListByRun: %v", err)
	}
	if len(got) != 2 || got[1].TempC != 33 || got[1].Seq != 1 {
		t.Fatalf("unexpected samples: %+v", got)
	}
}

func TestSampleSQLite_LatestRunID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewSampleSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectLatestRunSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"run_id"}).AddRow("run-9"))
	id, err := repo.LatestRunID(ctx(t))
	if err != nil || id != "run-9" {
		t.Fatalf("LatestRunID = %q, %v", id, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(selectLatestRunSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"run_id"}))
	id, err = repo.LatestRunID(ctx(t))
	if err != nil || id != "" {
		t.Fatalf("LatestRunID on empty table = %q, %v", id, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(selectLatestRunSQL)).
		WillReturnError(errors.New("locked"))
	if _, err := repo.LatestRunID(ctx(t)); err == nil {
		t.Fatalf("expected error")
	}
}
