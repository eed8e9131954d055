package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/cve-advisor/internal/application/advisory"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun insert/update a run record
func (r *RunRepository) SaveRun(ctx context.Context, run advisory.Run) error {
	const q = `
INSERT INTO advisor_runs
(id, trigger_source, status, queued_at, finished_at, findings, degraded, delivered, archive_url, report_bytes)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status), finished_at=VALUES(finished_at),
 findings=VALUES(findings), degraded=VALUES(degraded), delivered=VALUES(delivered),
 archive_url=VALUES(archive_url), report_bytes=VALUES(report_bytes);
`
	queued := run.QueuedAt
	if queued.IsZero() {
		queued = time.Now()
	}
	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		run.ID, stringOrDash(run.Trigger), string(run.Status), queued, finished,
		run.Findings, joinReasons(run.Degraded), run.Delivered, run.ArchiveURL, run.ReportBytes,
	)
	return err
}

const runColumns = `id, trigger_source, status, queued_at, finished_at, findings, degraded, delivered, archive_url, report_bytes`

// GetRun returns nil when the run is unknown.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*advisory.Run, error) {
	q := `SELECT ` + runColumns + ` FROM advisor_runs WHERE id=? LIMIT 1;`
	run, err := scanRun(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// LatestRuns newest first
func (r *RunRepository) LatestRuns(ctx context.Context, limit int) ([]advisory.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + runColumns + ` FROM advisor_runs ORDER BY queued_at DESC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []advisory.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*advisory.Run, error) {
	var (
		run      advisory.Run
		status   string
		finished sql.NullTime
		degraded string
	)
	if err := row.Scan(&run.ID, &run.Trigger, &status, &run.QueuedAt, &finished,
		&run.Findings, &degraded, &run.Delivered, &run.ArchiveURL, &run.ReportBytes); err != nil {
		return nil, err
	}
	run.Trigger = dashToEmpty(run.Trigger)
	run.Status = advisory.RunStatus(status)
	run.Degraded = splitReasons(degraded)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
