package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NordCoder/Sitewatch/internal/domain/history"
)

var _ history.Repo = (*HistoryRepo)(nil)

type HistoryRepo struct{ db *DB }

func NewHistoryRepo(db *DB) *HistoryRepo { return &HistoryRepo{db: db} }

const qHistoryBySite = `
SELECT id, site_id, status_code, response_time, checked_at, success
FROM check_history
WHERE site_id = ?
ORDER BY checked_at DESC, id DESC
LIMIT ?;`

func (r *HistoryRepo) ListBySite(ctx context.Context, siteID int64, limit int) ([]*history.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).QueryContext(ctx, qHistoryBySite, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]*history.Record, 0, limit)
	for rows.Next() {
		var (
			rec  history.Record
			code sql.NullInt64
			ts   string
		)
		if err := rows.Scan(&rec.ID, &rec.SiteID, &code, &rec.ResponseTime, &ts, &rec.Success); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if code.Valid {
			c := int(code.Int64)
			rec.StatusCode = &c
		}
		if rec.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
