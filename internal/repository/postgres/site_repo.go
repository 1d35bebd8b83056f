package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Sitewatch/internal/domain/history"
	"github.com/NordCoder/Sitewatch/internal/domain/site"
)

var _ site.Repo = (*SiteRepo)(nil)

type SiteRepo struct {
	db *DB
}

func NewSiteRepo(db *DB) *SiteRepo { return &SiteRepo{db: db} }

const siteCols = `id, user_id, url, added_at, last_check, status, check_interval_sec`

const (
	qSiteInsert = `
INSERT INTO sites (user_id, url, added_at, status, check_interval_sec, next_run_at)
VALUES ($1, $2, $3, $4, $5, $3)
RETURNING id;`

	qSiteByID = `SELECT ` + siteCols + ` FROM sites WHERE id = $1;`

	qSiteByURL = `SELECT ` + siteCols + ` FROM sites WHERE user_id = $1 AND url = $2;`

	qSitesByUser = `
SELECT ` + siteCols + `
FROM sites
WHERE user_id = $1
ORDER BY added_at DESC, id DESC;`

	qSiteStatusForUpdate = `SELECT status, last_check FROM sites WHERE id = $1 FOR UPDATE;`

	qSiteUpdateStatus = `
UPDATE sites
SET status = $2,
    last_check = $3,
    next_run_at = $3 + (check_interval_sec * INTERVAL '1 second')
WHERE id = $1 AND (last_check IS NULL OR last_check <= $3);`

	qHistoryInsert = `
INSERT INTO check_history (site_id, status_code, response_time, checked_at, success)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;`

	qSiteDelete = `DELETE FROM sites WHERE id = $1 AND user_id = $2;`

	qSiteCounters = `
SELECT
    (SELECT count(*) FROM check_history h WHERE h.site_id = s.id),
    (SELECT count(*) FROM check_history h WHERE h.site_id = s.id AND h.success),
    (SELECT count(*) FROM site_errors e WHERE e.site_id = s.id AND NOT e.resolved)
FROM sites s
WHERE s.id = $1;`

	qSiteFetchDue = `
SELECT ` + siteCols + `
FROM sites
WHERE next_run_at <= $1
ORDER BY next_run_at
LIMIT $2
FOR UPDATE SKIP LOCKED;`

	qSiteBumpNextRun = `
UPDATE sites
SET next_run_at = $2 + (check_interval_sec * INTERVAL '1 second')
WHERE id = ANY($1);`
)

func scanSite(row pgx.Row, s *site.Site) error {
	var (
		lastCheck   *time.Time
		status      string
		intervalSec int
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.URL, &s.AddedAt, &lastCheck, &status, &intervalSec); err != nil {
		return mapErr("scan site", err)
	}
	if lastCheck != nil {
		s.LastCheck = *lastCheck
	}
	s.Status = site.Status(status)
	s.CheckInterval = time.Duration(intervalSec) * time.Second
	return nil
}

func (r *SiteRepo) Create(ctx context.Context, s *site.Site) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if s.AddedAt.IsZero() {
		s.AddedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = site.StatusPending
	}
	if s.CheckInterval <= 0 {
		s.CheckInterval = site.DefaultCheckInterval
	}

	eq := r.db.execQueryer(ctx)
	err := eq.QueryRow(ctx, qSiteInsert,
		s.UserID, s.URL, s.AddedAt, string(s.Status), int(s.CheckInterval/time.Second),
	).Scan(&s.ID)
	return mapErr("site insert", err)
}

func (r *SiteRepo) GetByID(ctx context.Context, id int64) (*site.Site, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s site.Site
	if err := scanSite(r.db.execQueryer(ctx).QueryRow(ctx, qSiteByID, id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SiteRepo) GetByURL(ctx context.Context, userID int64, url string) (*site.Site, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s site.Site
	if err := scanSite(r.db.execQueryer(ctx).QueryRow(ctx, qSiteByURL, userID, url), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SiteRepo) ListByUser(ctx context.Context, userID int64) ([]*site.Site, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qSitesByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	return collectSites(rows)
}

func collectSites(rows pgx.Rows) ([]*site.Site, error) {
	defer rows.Close()

	var out []*site.Site
	for rows.Next() {
		var s site.Site
		if err := scanSite(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *SiteRepo) UpdateStatus(ctx context.Context, id int64, status site.Status, at time.Time, rec *history.Record) (site.StatusUpdate, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var upd site.StatusUpdate
	err := r.db.inTx(ctx, func(eq execQueryer) error {
		var (
			prev      string
			lastCheck *time.Time
		)
		err := eq.QueryRow(ctx, qSiteStatusForUpdate, id).Scan(&prev, &lastCheck)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock site: %w", err)
		}
		upd.Found = true
		upd.Previous = site.Status(prev)
		if lastCheck != nil {
			upd.PreviousCheck = lastCheck.UTC()
		}

		cmd, err := eq.Exec(ctx, qSiteUpdateStatus, id, string(status), at)
		if err != nil {
			return fmt.Errorf("update site status: %w", err)
		}
		upd.Applied = cmd.RowsAffected() > 0

		if rec == nil {
			return nil
		}
		rec.SiteID = id
		if rec.Timestamp.IsZero() {
			rec.Timestamp = at
		}
		if err := eq.QueryRow(ctx, qHistoryInsert,
			id, rec.StatusCode, rec.ResponseTime, rec.Timestamp, rec.Success,
		).Scan(&rec.ID); err != nil {
			return fmt.Errorf("insert check history: %w", err)
		}
		return nil
	})
	if err != nil {
		return site.StatusUpdate{}, err
	}
	return upd, nil
}

func (r *SiteRepo) Delete(ctx context.Context, userID, id int64) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qSiteDelete, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete site: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *SiteRepo) Counters(ctx context.Context, id int64) (*site.Counters, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var c site.Counters
	err := r.db.execQueryer(ctx).QueryRow(ctx, qSiteCounters, id).
		Scan(&c.TotalChecks, &c.SuccessChecks, &c.OpenErrors)
	if err != nil {
		return nil, mapErr("site counters", err)
	}
	return &c, nil
}

func (r *SiteRepo) FetchDue(ctx context.Context, now time.Time, limit int) ([]*site.Site, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var out []*site.Site
	err := r.db.inTx(ctx, func(eq execQueryer) error {
		rows, err := eq.Query(ctx, qSiteFetchDue, now, limit)
		if err != nil {
			return fmt.Errorf("fetch due: %w", err)
		}
		out, err = collectSites(rows)
		if err != nil || len(out) == 0 {
			return err
		}

		ids := make([]int64, 0, len(out))
		for _, s := range out {
			ids = append(ids, s.ID)
		}
		if _, err := eq.Exec(ctx, qSiteBumpNextRun, ids, now); err != nil {
			return fmt.Errorf("bump next_run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
