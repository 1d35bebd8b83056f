package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NordCoder/Sitewatch/internal/domain/history"
	"github.com/NordCoder/Sitewatch/internal/domain/outbox"
	"github.com/NordCoder/Sitewatch/internal/domain/site"
	"github.com/NordCoder/Sitewatch/internal/domain/siteerror"
	"github.com/NordCoder/Sitewatch/internal/domain/transactor"
	"github.com/NordCoder/Sitewatch/internal/domain/user"
	"github.com/NordCoder/Sitewatch/internal/obs"
	"github.com/NordCoder/Sitewatch/internal/probe"
)

const (
	DefaultWorkers      = 8
	DefaultHistoryLimit = 50

	// reasonAddedAnyway is logged when a site is force-added without the
	// failure reason of the first probe.
	reasonAddedAnyway = "unreachable when added"
)

type Deps struct {
	Users      user.Repo
	Sites      site.Repo
	Errors     siteerror.Repo
	History    history.Repo
	Transactor transactor.Transactor
	Prober     probe.Prober

	// Outbox is optional; without it status changes are not published.
	Outbox outbox.Repository
	Clock  Clock
}

type Config struct {
	Workers int
}

type Engine struct {
	deps    Deps
	tracker *Tracker
	stats   *StatsAggregator
	workers int
	log     *zap.Logger
	tr      trace.Tracer
}

func NewEngine(deps Deps, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	log = log.With(zap.String("component", "monitor"))
	return &Engine{
		deps: deps,
		tracker: &Tracker{
			Sites:      deps.Sites,
			Errors:     deps.Errors,
			Outbox:     deps.Outbox,
			Transactor: deps.Transactor,
			Clock:      deps.Clock,
			Log:        log,
		},
		stats:   &StatsAggregator{Sites: deps.Sites},
		workers: cfg.Workers,
		log:     log,
		tr:      otel.Tracer("monitor"),
	}
}

// CheckResult is the outcome of checking one site. Err is set only by
// CheckAll, where failures are reported per site.
type CheckResult struct {
	Site    *site.Site
	Outcome probe.Outcome
	Error   *siteerror.Error
	Changed bool
	Err     error
}

type AddResult struct {
	// Site is nil when the target was unreachable and nothing was created.
	Site    *site.Site
	Outcome probe.Outcome
	Created bool
}

type SiteInfo struct {
	Site  *site.Site
	Stats *Stats
	// Check is set when the site was re-probed.
	Check *CheckResult
}

func (e *Engine) AddUser(ctx context.Context, u *user.User) error {
	ctx, span := e.tr.Start(ctx, "monitor.add_user", trace.WithAttributes(attribute.Int64("user.id", u.ID)))
	defer span.End()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = e.deps.Clock.Now()
	}
	if err := e.deps.Users.Create(ctx, u); err != nil {
		return fail(span, storeErr("add user", err))
	}
	return nil
}

// AddSite probes rawURL once and creates the site only when it answered.
// An unreachable target is reported through the result, not as an error.
func (e *Engine) AddSite(ctx context.Context, userID int64, rawURL string) (*AddResult, error) {
	ctx, span := e.tr.Start(ctx, "monitor.add_site", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	target, err := e.prepareAdd(ctx, userID, rawURL)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("site.url", target))

	out := e.probe(ctx, target)
	if !out.Reachable {
		obs.WithTrace(ctx, e.log).Info("site unreachable, not added",
			zap.Int64("user_id", userID), zap.String("url", target), zap.String("reason", out.Reason))
		return &AddResult{Outcome: out}, nil
	}

	s, _, err := e.createAndApply(ctx, userID, target, out, false)
	if err != nil {
		return nil, fail(span, err)
	}
	return &AddResult{Site: s, Outcome: out, Created: true}, nil
}

// AddSiteAnyway is the confirmation path after AddSite reported the target
// unreachable: the site is created offline and reason is logged as an error.
func (e *Engine) AddSiteAnyway(ctx context.Context, userID int64, rawURL, reason string) (*CheckResult, error) {
	ctx, span := e.tr.Start(ctx, "monitor.add_site_anyway", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	target, err := e.prepareAdd(ctx, userID, rawURL)
	if err != nil {
		return nil, fail(span, err)
	}
	if reason == "" {
		reason = reasonAddedAnyway
	}
	out := probe.Unreachable(reason)

	s, applied, err := e.createAndApply(ctx, userID, target, out, true)
	if err != nil {
		return nil, fail(span, err)
	}
	return &CheckResult{Site: s, Outcome: out, Error: applied.Error, Changed: applied.Changed}, nil
}

func (e *Engine) prepareAdd(ctx context.Context, userID int64, rawURL string) (string, error) {
	target, err := probe.NormalizeTarget(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if _, err := e.deps.Users.GetByID(ctx, userID); err != nil {
		return "", storeErr("get user", err)
	}
	existing, err := e.deps.Sites.GetByURL(ctx, userID, target)
	switch {
	case err == nil:
		return "", fmt.Errorf("site %d: %w", existing.ID, ErrDuplicateSite)
	case errors.Is(err, ErrNotFound):
		return target, nil
	default:
		return "", storeErr("get site by url", err)
	}
}

// createAndApply inserts a pending site and applies its first outcome in one
// transaction, so a failed apply leaves no site behind.
func (e *Engine) createAndApply(ctx context.Context, userID int64, target string, out probe.Outcome, logError bool) (*site.Site, *Applied, error) {
	var applied *Applied
	err := e.deps.Transactor.WithTx(ctx, func(txCtx context.Context) error {
		s := &site.Site{
			UserID:        userID,
			URL:           target,
			AddedAt:       e.deps.Clock.Now(),
			Status:        site.StatusPending,
			CheckInterval: site.DefaultCheckInterval,
		}
		if err := e.deps.Sites.Create(txCtx, s); err != nil {
			return storeErr("create site", err)
		}
		var err error
		applied, err = e.tracker.Apply(txCtx, s, out, logError)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	obs.WithTrace(ctx, e.log).Info("site added",
		zap.Int64("user_id", userID),
		zap.Int64("site_id", applied.Site.ID),
		zap.String("url", target),
		zap.String("status", string(applied.Site.Status)),
	)
	return applied.Site, applied, nil
}

func (e *Engine) CheckOne(ctx context.Context, userID, siteID int64, logErrors bool) (*CheckResult, error) {
	ctx, span := e.tr.Start(ctx, "monitor.check_one", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("site.id", siteID),
	))
	defer span.End()

	s, err := e.ownedSite(ctx, userID, siteID)
	if err != nil {
		return nil, fail(span, err)
	}
	res := e.check(ctx, s, logErrors)
	if res.Err != nil {
		return nil, fail(span, res.Err)
	}
	return &res, nil
}

// CheckAll probes every site of the user through a bounded pool. Results
// keep the ListSites order and each carries its own error, if any.
func (e *Engine) CheckAll(ctx context.Context, userID int64, logErrors bool) ([]CheckResult, error) {
	ctx, span := e.tr.Start(ctx, "monitor.check_all", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	sites, err := e.deps.Sites.ListByUser(ctx, userID)
	if err != nil {
		return nil, fail(span, storeErr("list sites", err))
	}
	span.SetAttributes(attribute.Int("sites", len(sites)))

	results := make([]CheckResult, len(sites))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, s := range sites {
		g.Go(func() error {
			results[i] = e.check(ctx, s, logErrors)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		obs.WithTrace(ctx, e.log).Warn("check all finished with failures",
			zap.Int64("user_id", userID), zap.Int("sites", len(sites)), zap.Int("failed", failed))
	}
	return results, nil
}

// CheckSite probes s without an ownership check. Used by the scheduler.
func (e *Engine) CheckSite(ctx context.Context, s *site.Site, logErrors bool) CheckResult {
	ctx, span := e.tr.Start(ctx, "monitor.check_site", trace.WithAttributes(attribute.Int64("site.id", s.ID)))
	defer span.End()

	res := e.check(ctx, s, logErrors)
	if res.Err != nil {
		_ = fail(span, res.Err)
	}
	return res
}

func (e *Engine) check(ctx context.Context, s *site.Site, logErrors bool) CheckResult {
	out := e.probe(ctx, s.URL)
	applied, err := e.tracker.Apply(ctx, s, out, logErrors)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			obs.WithTrace(ctx, e.log).Warn("apply outcome", zap.Int64("site_id", s.ID), zap.Error(err))
		}
		return CheckResult{Site: s, Outcome: out, Err: err}
	}
	return CheckResult{Site: applied.Site, Outcome: out, Error: applied.Error, Changed: applied.Changed}
}

func (e *Engine) probe(ctx context.Context, target string) probe.Outcome {
	out := e.deps.Prober.Probe(ctx, target)
	if out.Reachable {
		mProbes.WithLabelValues("reachable").Inc()
		mProbeLatency.Observe(out.ResponseTime.Seconds())
	} else {
		mProbes.WithLabelValues("unreachable").Inc()
	}
	return out
}

func (e *Engine) ListSites(ctx context.Context, userID int64) ([]*site.Site, error) {
	sites, err := e.deps.Sites.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list sites", err)
	}
	return sites, nil
}

// GetSite returns the site with its stats. With refresh set the site is
// re-probed first; a failed refresh does not log an error.
func (e *Engine) GetSite(ctx context.Context, userID, siteID int64, refresh bool) (*SiteInfo, error) {
	ctx, span := e.tr.Start(ctx, "monitor.get_site", trace.WithAttributes(
		attribute.Int64("site.id", siteID),
		attribute.Bool("refresh", refresh),
	))
	defer span.End()

	s, err := e.ownedSite(ctx, userID, siteID)
	if err != nil {
		return nil, fail(span, err)
	}
	info := &SiteInfo{Site: s}
	if refresh {
		res := e.check(ctx, s, false)
		if res.Err != nil {
			return nil, fail(span, res.Err)
		}
		info.Site = res.Site
		info.Check = &res
	}
	if info.Stats, err = e.stats.Compute(ctx, siteID); err != nil {
		return nil, fail(span, err)
	}
	return info, nil
}

// DeleteSite reports false when the site is unknown or owned by someone else.
func (e *Engine) DeleteSite(ctx context.Context, userID, siteID int64) (bool, error) {
	ok, err := e.deps.Sites.Delete(ctx, userID, siteID)
	if err != nil {
		return false, storeErr("delete site", err)
	}
	if ok {
		obs.WithTrace(ctx, e.log).Info("site deleted", zap.Int64("user_id", userID), zap.Int64("site_id", siteID))
	}
	return ok, nil
}

func (e *Engine) ListErrors(ctx context.Context, userID int64, siteID *int64, limit int) ([]*siteerror.Error, error) {
	if limit <= 0 {
		limit = siteerror.DefaultListLimit
	}
	list, err := e.deps.Errors.List(ctx, siteerror.Filter{UserID: userID, SiteID: siteID, Limit: limit})
	if err != nil {
		return nil, storeErr("list errors", err)
	}
	return list, nil
}

func (e *Engine) ResolveError(ctx context.Context, userID, errorID int64) error {
	return storeErr("resolve error", e.deps.Errors.Resolve(ctx, userID, errorID))
}

func (e *Engine) ResolveAllErrorsForSite(ctx context.Context, siteID, userID int64) (int64, error) {
	if _, err := e.ownedSite(ctx, userID, siteID); err != nil {
		return 0, err
	}
	n, err := e.deps.Errors.ResolveAllForSite(ctx, siteID, userID)
	if err != nil {
		return 0, storeErr("resolve site errors", err)
	}
	return n, nil
}

func (e *Engine) GetStats(ctx context.Context, siteID int64) (*Stats, error) {
	return e.stats.Compute(ctx, siteID)
}

func (e *Engine) History(ctx context.Context, userID, siteID int64, limit int) ([]*history.Record, error) {
	if _, err := e.ownedSite(ctx, userID, siteID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	recs, err := e.deps.History.ListBySite(ctx, siteID, limit)
	if err != nil {
		return nil, storeErr("list history", err)
	}
	return recs, nil
}

func (e *Engine) ownedSite(ctx context.Context, userID, siteID int64) (*site.Site, error) {
	s, err := e.deps.Sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, storeErr("get site", err)
	}
	if s.UserID != userID {
		return nil, fmt.Errorf("site %d: %w", siteID, ErrNotFound)
	}
	return s, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
