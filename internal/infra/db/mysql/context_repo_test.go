package mysql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestContextRepositoryLoad(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContextRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT style, mode, language FROM advisor_context WHERE id=?`)).
		WithArgs(contextRowID).
		WillReturnRows(sqlmock.NewRows([]string{"style", "mode", "language"}).AddRow("sarcastic", "error", "en"))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, advisory.NewContext("sarcastic", "error", "en"), *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContextRepositoryLoadEmpty(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT style`).WillReturnError(sql.ErrNoRows)

	got, err := NewContextRepository(db).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestContextRepositorySave(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContextRepository(db)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	mock.ExpectExec(`INSERT INTO advisor_context`).
		WithArgs(contextRowID, "", "legal", "fr", fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Save(context.Background(), advisory.NewContext("", "legal", "fr")))
	assert.NoError(t, mock.ExpectationsWereMet())

	long := strings.Repeat("sarkastisch ", 40)
	mock.ExpectExec(`INSERT INTO advisor_context`).
		WithArgs(contextRowID, long, "error", "de", fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Save(context.Background(), advisory.NewContext(long, "error", "de")))
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec(`INSERT INTO advisor_context`).WillReturnError(errors.New("deadlock"))
	assert.Error(t, repo.Save(context.Background(), advisory.DefaultContext()))
}

func TestMigrate(t *testing.T) {
	db, mock := newMock(t)
	// context values are free text of any length
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS advisor_context \(.*style TEXT NOT NULL, mode TEXT NOT NULL, language TEXT NOT NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS advisor_runs`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
