package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Sitewatch/internal/domain/history"
)

var _ history.Repo = (*HistoryRepo)(nil)

type HistoryRepo struct{ db *DB }

func NewHistoryRepo(db *DB) *HistoryRepo { return &HistoryRepo{db: db} }

const qHistoryBySite = `
SELECT id, site_id, status_code, response_time, checked_at, success
FROM check_history
WHERE site_id = $1
ORDER BY checked_at DESC, id DESC
LIMIT $2;`

func (r *HistoryRepo) ListBySite(ctx context.Context, siteID int64, limit int) ([]*history.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qHistoryBySite, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]*history.Record, 0, limit)
	for rows.Next() {
		var rec history.Record
		if err := rows.Scan(&rec.ID, &rec.SiteID, &rec.StatusCode, &rec.ResponseTime, &rec.Timestamp, &rec.Success); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
