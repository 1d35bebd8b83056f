package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Sitewatch/internal/domain/events"
	"github.com/NordCoder/Sitewatch/internal/domain/history"
	"github.com/NordCoder/Sitewatch/internal/domain/outbox"
	"github.com/NordCoder/Sitewatch/internal/domain/site"
	"github.com/NordCoder/Sitewatch/internal/domain/siteerror"
	"github.com/NordCoder/Sitewatch/internal/domain/transactor"
	"github.com/NordCoder/Sitewatch/internal/obs"
	"github.com/NordCoder/Sitewatch/internal/probe"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Applied is what a single outcome did to a site. Superseded is set when a
// newer check had already been stored; the record is kept but the site's
// status is left as that check set it.
type Applied struct {
	Site       *site.Site
	Previous   site.Status
	Record     *history.Record
	Error      *siteerror.Error
	Changed    bool
	Superseded bool
}

// Tracker turns probe outcomes into status, history and error writes.
type Tracker struct {
	Sites      site.Repo
	Errors     siteerror.Repo
	Outbox     outbox.Repository
	Transactor transactor.Transactor
	Clock      Clock
	Log        *zap.Logger
}

// Apply records out for s. When the site has been deleted in the meantime
// nothing is written and ErrNotFound is returned. With logError set an
// unreachable outcome also persists a connection error. Changed is decided
// against the stored status, not against s.
func (t *Tracker) Apply(ctx context.Context, s *site.Site, out probe.Outcome, logError bool) (*Applied, error) {
	next := site.StatusOffline
	if out.Reachable {
		next = site.StatusOnline
	}
	if !s.Status.CanTransition(next) {
		return nil, fmt.Errorf("site %d: %s -> %s not allowed", s.ID, s.Status, next)
	}

	at := t.Clock.Now()
	rec := &history.Record{
		SiteID:    s.ID,
		Timestamp: at,
		Success:   next == site.StatusOnline,
	}
	if out.Reachable {
		code := out.StatusCode
		rec.StatusCode = &code
		rec.ResponseTime = out.ResponseTime.Seconds()
	}

	res := &Applied{Record: rec}
	var upd site.StatusUpdate

	err := t.Transactor.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		upd, err = t.Sites.UpdateStatus(txCtx, s.ID, next, at, rec)
		if err != nil {
			return storeErr("update status", err)
		}
		if !upd.Found {
			return fmt.Errorf("site %d: %w", s.ID, ErrNotFound)
		}
		res.Previous = upd.Previous
		res.Superseded = !upd.Applied
		res.Changed = upd.Applied && upd.Previous != next

		if logError && !out.Reachable {
			e := &siteerror.Error{
				UserID:    s.UserID,
				SiteID:    s.ID,
				Type:      siteerror.TypeConnection,
				Message:   out.Reason,
				Timestamp: at,
			}
			if err := t.Errors.Create(txCtx, e); err != nil {
				return storeErr("log error", err)
			}
			res.Error = e
		}

		if res.Changed && t.Outbox != nil {
			if err := t.enqueueChange(txCtx, s, upd.Previous, next, at); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated := *s
	updated.Status, updated.LastCheck = next, at
	if res.Superseded {
		updated.Status, updated.LastCheck = upd.Previous, upd.PreviousCheck
		t.Log.Debug("outcome superseded by a newer check",
			zap.Int64("site_id", s.ID),
			zap.Time("at", at),
			zap.Time("stored", upd.PreviousCheck),
		)
	}
	res.Site = &updated

	if res.Error != nil {
		mErrorsLogged.Inc()
	}
	if res.Changed {
		mStatusChanges.WithLabelValues(string(res.Previous), string(next)).Inc()
		obs.WithTrace(ctx, t.Log).Info("site status changed",
			zap.Int64("site_id", s.ID),
			zap.String("url", s.URL),
			zap.String("from", string(res.Previous)),
			zap.String("to", string(next)),
		)
	}
	return res, nil
}

func (t *Tracker) enqueueChange(ctx context.Context, s *site.Site, prev, next site.Status, at time.Time) error {
	b, err := events.MarshalStatusChanged(events.StatusChanged{
		SiteID: s.ID,
		UserID: s.UserID,
		URL:    s.URL,
		Old:    string(prev),
		New:    string(next),
		At:     at,
	})
	if err != nil {
		return fmt.Errorf("encode status change: %w", err)
	}
	key := fmt.Sprintf("status:%d:%d", s.ID, at.UnixNano())
	if err := t.Outbox.Enqueue(ctx, key, outbox.KindSiteStatusChanged, b); err != nil {
		return storeErr("outbox enqueue", err)
	}
	return nil
}
