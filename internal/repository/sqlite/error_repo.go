package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Sitewatch/internal/domain/siteerror"
)

var _ siteerror.Repo = (*ErrorRepo)(nil)

type ErrorRepo struct {
	db *DB
}

func NewErrorRepo(db *DB) *ErrorRepo { return &ErrorRepo{db: db} }

const (
	qErrorInsert = `
INSERT INTO site_errors (user_id, site_id, error_type, message, created_at, resolved)
VALUES (?, ?, ?, ?, ?, 0);`

	qErrorList = `
SELECT e.id, e.user_id, e.site_id, e.error_type, e.message, e.created_at, e.resolved, s.url
FROM site_errors e
JOIN sites s ON s.id = e.site_id
WHERE e.user_id = ?
  AND (? IS NULL OR e.site_id = ?)
ORDER BY e.created_at DESC, e.id DESC
LIMIT ?;`

	qErrorResolve = `UPDATE site_errors SET resolved = 1 WHERE id = ? AND user_id = ?;`

	qErrorResolveSite = `
UPDATE site_errors
SET resolved = 1
WHERE site_id = ? AND user_id = ? AND resolved = 0;`
)

func (r *ErrorRepo) Create(ctx context.Context, e *siteerror.Error) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	res, err := r.db.execQueryer(ctx).ExecContext(ctx, qErrorInsert,
		e.UserID, e.SiteID, e.Type, e.Message, formatTime(e.Timestamp))
	if err != nil {
		return mapErr("error insert", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("error insert id: %w", err)
	}
	e.Resolved = false
	return nil
}

func (r *ErrorRepo) List(ctx context.Context, f siteerror.Filter) ([]*siteerror.Error, error) {
	if f.Limit <= 0 {
		f.Limit = siteerror.DefaultListLimit
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).QueryContext(ctx, qErrorList, f.UserID, f.SiteID, f.SiteID, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("query errors: %w", err)
	}
	defer rows.Close()

	out := make([]*siteerror.Error, 0, f.Limit)
	for rows.Next() {
		var (
			e  siteerror.Error
			ts string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.SiteID, &e.Type, &e.Message, &ts, &e.Resolved, &e.SiteURL); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *ErrorRepo) Resolve(ctx context.Context, userID, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.execQueryer(ctx).ExecContext(ctx, qErrorResolve, id, userID)
	if err != nil {
		return fmt.Errorf("resolve error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ErrorRepo) ResolveAllForSite(ctx context.Context, siteID, userID int64) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.execQueryer(ctx).ExecContext(ctx, qErrorResolveSite, siteID, userID)
	if err != nil {
		return 0, fmt.Errorf("resolve site errors: %w", err)
	}
	return res.RowsAffected()
}
