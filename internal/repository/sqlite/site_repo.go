package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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
VALUES (?, ?, ?, ?, ?, ?);`

	qSiteByID = `SELECT ` + siteCols + ` FROM sites WHERE id = ?;`

	qSiteByURL = `SELECT ` + siteCols + ` FROM sites WHERE user_id = ? AND url = ?;`

	qSitesByUser = `
SELECT ` + siteCols + `
FROM sites
WHERE user_id = ?
ORDER BY added_at DESC, id DESC;`

	qSiteUpdateStatus = `
UPDATE sites
SET status = ?, last_check = ?, next_run_at = ?
WHERE id = ? AND (last_check IS NULL OR last_check <= ?);`

	qSiteStatusForUpdate = `SELECT status, last_check, check_interval_sec FROM sites WHERE id = ?;`

	qHistoryInsert = `
INSERT INTO check_history (site_id, status_code, response_time, checked_at, success)
VALUES (?, ?, ?, ?, ?);`

	qSiteDelete = `DELETE FROM sites WHERE id = ? AND user_id = ?;`

	qSiteCounters = `
SELECT
    (SELECT count(*) FROM check_history h WHERE h.site_id = s.id),
    (SELECT count(*) FROM check_history h WHERE h.site_id = s.id AND h.success = 1),
    (SELECT count(*) FROM site_errors e WHERE e.site_id = s.id AND e.resolved = 0)
FROM sites s
WHERE s.id = ?;`

	qSiteFetchDue = `
SELECT ` + siteCols + `
FROM sites
WHERE next_run_at <= ?
ORDER BY next_run_at
LIMIT ?;`

	qSiteBumpNextRun = `UPDATE sites SET next_run_at = ? WHERE id = ?;`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner, s *site.Site) error {
	var (
		added       string
		lastCheck   sql.NullString
		status      string
		intervalSec int64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.URL, &added, &lastCheck, &status, &intervalSec); err != nil {
		return mapErr("scan site", err)
	}
	var err error
	if s.AddedAt, err = parseTime(added); err != nil {
		return err
	}
	if lastCheck.Valid {
		if s.LastCheck, err = parseTime(lastCheck.String); err != nil {
			return err
		}
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

	added := formatTime(s.AddedAt)
	res, err := r.db.execQueryer(ctx).ExecContext(ctx, qSiteInsert,
		s.UserID, s.URL, added, string(s.Status), int64(s.CheckInterval/time.Second), added)
	if err != nil {
		return mapErr("site insert", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("site insert id: %w", err)
	}
	return nil
}

func (r *SiteRepo) GetByID(ctx context.Context, id int64) (*site.Site, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s site.Site
	if err := scanSite(r.db.execQueryer(ctx).QueryRowContext(ctx, qSiteByID, id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SiteRepo) GetByURL(ctx context.Context, userID int64, url string) (*site.Site, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s site.Site
	if err := scanSite(r.db.execQueryer(ctx).QueryRowContext(ctx, qSiteByURL, userID, url), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SiteRepo) ListByUser(ctx context.Context, userID int64) ([]*site.Site, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).QueryContext(ctx, qSitesByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	return collectSites(rows)
}

func collectSites(rows *sql.Rows) ([]*site.Site, error) {
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
			prev        string
			lastCheck   sql.NullString
			intervalSec int64
		)
		err := eq.QueryRowContext(ctx, qSiteStatusForUpdate, id).Scan(&prev, &lastCheck, &intervalSec)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load site: %w", err)
		}
		upd.Found = true
		upd.Previous = site.Status(prev)
		if lastCheck.Valid {
			if upd.PreviousCheck, err = parseTime(lastCheck.String); err != nil {
				return err
			}
		}

		stamp := formatTime(at)
		next := formatTime(at.Add(time.Duration(intervalSec) * time.Second))
		res, err := eq.ExecContext(ctx, qSiteUpdateStatus, string(status), stamp, next, id, stamp)
		if err != nil {
			return fmt.Errorf("update site status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update site status: %w", err)
		}
		upd.Applied = n > 0

		if rec == nil {
			return nil
		}
		rec.SiteID = id
		if rec.Timestamp.IsZero() {
			rec.Timestamp = at
		}
		ins, err := eq.ExecContext(ctx, qHistoryInsert,
			id, rec.StatusCode, rec.ResponseTime, formatTime(rec.Timestamp), boolInt(rec.Success))
		if err != nil {
			return fmt.Errorf("insert check history: %w", err)
		}
		rec.ID, err = ins.LastInsertId()
		return err
	})
	if err != nil {
		return site.StatusUpdate{}, err
	}
	return upd, nil
}

func (r *SiteRepo) Delete(ctx context.Context, userID, id int64) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.execQueryer(ctx).ExecContext(ctx, qSiteDelete, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete site: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete site: %w", err)
	}
	return n > 0, nil
}

func (r *SiteRepo) Counters(ctx context.Context, id int64) (*site.Counters, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var c site.Counters
	err := r.db.execQueryer(ctx).QueryRowContext(ctx, qSiteCounters, id).
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
		rows, err := eq.QueryContext(ctx, qSiteFetchDue, formatTime(now), limit)
		if err != nil {
			return fmt.Errorf("fetch due: %w", err)
		}
		if out, err = collectSites(rows); err != nil {
			return err
		}
		for _, s := range out {
			next := formatTime(now.Add(s.CheckInterval))
			if _, err := eq.ExecContext(ctx, qSiteBumpNextRun, next, s.ID); err != nil {
				return fmt.Errorf("bump next_run: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
