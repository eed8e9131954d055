package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cve-advisor/internal/application/advisory"
)

var runCols = []string{"id", "trigger_source", "status", "queued_at", "finished_at", "findings", "degraded", "delivered", "archive_url", "report_bytes"}

func TestRunRepositorySave(t *testing.T) {
	db, mock := newMock(t)
	queued := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	done := queued.Add(3 * time.Second)

	mock.ExpectExec(`INSERT INTO advisor_runs`).
		WithArgs("r1", "-", "done", queued, sql.NullTime{Time: done, Valid: true},
			2, "oracle-failure,delivery-failure", false, "", 70).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := NewRunRepository(db).SaveRun(context.Background(), advisory.Run{
		ID: "r1", Status: advisory.RunDone, QueuedAt: queued, FinishedAt: &done,
		Findings: 2, Degraded: []string{"oracle-failure", "delivery-failure"}, ReportBytes: 70,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepositoryGet(t *testing.T) {
	db, mock := newMock(t)
	queued := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM advisor_runs WHERE id=\?`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(runCols).
			AddRow("r1", "-", "running", queued, nil, 0, "", false, "", 0))

	run, err := NewRunRepository(db).GetRun(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, advisory.RunRunning, run.Status)
	assert.Empty(t, run.Trigger)
	assert.Nil(t, run.FinishedAt)
	assert.Nil(t, run.Degraded)

	mock.ExpectQuery(`FROM advisor_runs WHERE id=\?`).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	run, err = NewRunRepository(db).GetRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRunRepositoryLatest(t *testing.T) {
	db, mock := newMock(t)
	t1 := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)

	mock.ExpectQuery(`ORDER BY queued_at DESC LIMIT \?`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(runCols).
			AddRow("r2", "manual", "done", t1, t1, 1, "context-unavailable", true, "http://a/r2.md", 10).
			AddRow("r1", "cli", "done", t0, t0, 0, "", true, "", 5))

	runs, err := NewRunRepository(db).LatestRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, []string{"context-unavailable"}, runs[0].Degraded)
	require.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, "manual", runs[0].Trigger)
	assert.NoError(t, mock.ExpectationsWereMet())
}
