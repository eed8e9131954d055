package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appadvisory "github.com/bryanwahyu/cve-advisor/internal/application/advisory"
	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestContextRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContextRepository(db)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	mock.ExpectQuery(`SELECT style, mode, language FROM advisor_context WHERE id=\$1`).
		WithArgs(contextRowID).
		WillReturnError(sql.ErrNoRows)
	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectExec(`ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(contextRowID, "friendly", "humor", "en", fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(context.Background(), advisory.NewContext("friendly", "humor", "en")))

	mock.ExpectQuery(`SELECT style`).
		WillReturnRows(sqlmock.NewRows([]string{"style", "mode", "language"}).AddRow("friendly", "humor", "en"))
	got, err = repo.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, advisory.Mode("humor"), got.Mode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepositoryRoundTrip(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRunRepository(db)
	queued := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO advisor_runs`).
		WithArgs("r1", "manual", "queued", queued, nil, 0, "{}", false, "", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveRun(context.Background(), appadvisory.Run{
		ID: "r1", Trigger: "manual", Status: appadvisory.RunQueued, QueuedAt: queued,
	}))

	mock.ExpectQuery(`FROM advisor_runs WHERE id=\$1`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "trigger_source", "status", "queued_at", "finished_at", "findings", "degraded", "delivered", "archive_url", "report_bytes"}).
			AddRow("r1", "manual", "done", queued, queued, 3, "{oracle-failure}", true, "", 12))
	run, err := repo.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, []string{"oracle-failure"}, run.Degraded)
	assert.Equal(t, 3, run.Findings)

	assert.NoError(t, mock.ExpectationsWereMet())
}
