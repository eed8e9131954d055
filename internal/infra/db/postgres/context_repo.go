package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
)

const contextRowID = 1

type ContextRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewContextRepository(db *sql.DB) *ContextRepository {
	return &ContextRepository{db: db, now: time.Now}
}

// Load returns nil when nothing has been stored yet.
func (r *ContextRepository) Load(ctx context.Context) (*advisory.Context, error) {
	const q = `SELECT style, mode, language FROM advisor_context WHERE id=$1;`
	var style, mode, lang string
	if err := r.db.QueryRowContext(ctx, q, contextRowID).Scan(&style, &mode, &lang); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c := advisory.NewContext(style, mode, lang)
	return &c, nil
}

func (r *ContextRepository) Save(ctx context.Context, c advisory.Context) error {
	const q = `
INSERT INTO advisor_context (id, style, mode, language, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET
  style=EXCLUDED.style,
  mode=EXCLUDED.mode,
  language=EXCLUDED.language,
  updated_at=EXCLUDED.updated_at;
`
	_, err := r.db.ExecContext(ctx, q, contextRowID, string(c.Style), string(c.Mode), string(c.Language), r.now().UTC())
	return err
}
