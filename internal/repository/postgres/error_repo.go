package postgres

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
VALUES ($1, $2, $3, $4, $5, FALSE)
RETURNING id;`

	qErrorList = `
SELECT e.id, e.user_id, e.site_id, e.error_type, e.message, e.created_at, e.resolved, s.url
FROM site_errors e
JOIN sites s ON s.id = e.site_id
WHERE e.user_id = $1
  AND ($2::BIGINT IS NULL OR e.site_id = $2)
ORDER BY e.created_at DESC, e.id DESC
LIMIT $3;`

	qErrorResolve = `
UPDATE site_errors
SET resolved = TRUE
WHERE id = $1 AND user_id = $2;`

	qErrorResolveSite = `
UPDATE site_errors
SET resolved = TRUE
WHERE site_id = $1 AND user_id = $2 AND NOT resolved;`
)

func (r *ErrorRepo) Create(ctx context.Context, e *siteerror.Error) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	err := r.db.execQueryer(ctx).QueryRow(ctx, qErrorInsert,
		e.UserID, e.SiteID, e.Type, e.Message, e.Timestamp,
	).Scan(&e.ID)
	if err != nil {
		return mapErr("error insert", err)
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

	rows, err := r.db.execQueryer(ctx).Query(ctx, qErrorList, f.UserID, f.SiteID, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("query errors: %w", err)
	}
	defer rows.Close()

	out := make([]*siteerror.Error, 0, f.Limit)
	for rows.Next() {
		var e siteerror.Error
		if err := rows.Scan(&e.ID, &e.UserID, &e.SiteID, &e.Type, &e.Message, &e.Timestamp, &e.Resolved, &e.SiteURL); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
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

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qErrorResolve, id, userID)
	if err != nil {
		return fmt.Errorf("resolve error: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ErrorRepo) ResolveAllForSite(ctx context.Context, siteID, userID int64) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qErrorResolveSite, siteID, userID)
	if err != nil {
		return 0, fmt.Errorf("resolve site errors: %w", err)
	}
	return cmd.RowsAffected(), nil
}
