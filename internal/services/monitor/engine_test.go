package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Sitewatch/internal/domain/outbox"
	"github.com/NordCoder/Sitewatch/internal/domain/site"
	"github.com/NordCoder/Sitewatch/internal/domain/siteerror"
	"github.com/NordCoder/Sitewatch/internal/domain/user"
	"github.com/NordCoder/Sitewatch/internal/probe"
	"github.com/NordCoder/Sitewatch/internal/repository/migrations"
	"github.com/NordCoder/Sitewatch/internal/repository/sqlite"
)

type fakeProber struct {
	mu       sync.Mutex
	outcomes map[string]probe.Outcome
	calls    int
}

func (p *fakeProber) set(target string, out probe.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[target] = out
}

func (p *fakeProber) Probe(_ context.Context, target string) probe.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if out, ok := p.outcomes[target]; ok {
		return out
	}
	return probe.Unreachable(probe.ReasonRefused)
}

// stepClock advances one second per reading so rows never share a timestamp.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type harness struct {
	engine *Engine
	prober *fakeProber
	outbox *sqlite.OutboxRepo
	errors *sqlite.ErrorRepo
}

func newHarness(t *testing.T, withProber probe.Prober) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "monitor.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(ctx, db.SQL, migrations.SQLite, nil))

	fp := &fakeProber{outcomes: map[string]probe.Outcome{}}
	var p probe.Prober = fp
	if withProber != nil {
		p = withProber
	}

	h := &harness{
		prober: fp,
		outbox: sqlite.NewOutboxRepo(db),
		errors: sqlite.NewErrorRepo(db),
	}
	h.engine = NewEngine(Deps{
		Users:      sqlite.NewUserRepo(db),
		Sites:      sqlite.NewSiteRepo(db),
		Errors:     h.errors,
		History:    sqlite.NewHistoryRepo(db),
		Transactor: sqlite.NewTransactor(db, zap.NewNop()),
		Prober:     p,
		Outbox:     h.outbox,
		Clock:      &stepClock{cur: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}, Config{Workers: 4}, zap.NewNop())

	for _, id := range []int64{1, 2} {
		require.NoError(t, h.engine.AddUser(ctx, &user.User{ID: id, Username: "user"}))
	}
	return h
}

func TestEngine_AddCheckDeleteScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.prober.set("https://example.com", probe.Reachable(200, 120*time.Millisecond))

	res, err := h.engine.AddSite(ctx, 1, "https://example.com")
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, site.StatusOnline, res.Site.Status)

	recs, err := h.engine.History(ctx, 1, res.Site.ID, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].Success)
	require.Equal(t, 200, *recs[0].StatusCode)
	require.InDelta(t, 0.12, recs[0].ResponseTime, 1e-9)

	_, err = h.engine.AddSite(ctx, 1, "https://example.com")
	require.ErrorIs(t, err, ErrDuplicateSite)

	ok, err := h.engine.DeleteSite(ctx, 1, res.Site.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = h.engine.GetSite(ctx, 1, res.Site.ID, false)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.engine.GetStats(ctx, res.Site.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_AddAnywayScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.prober.set("https://down.example", probe.Unreachable(probe.ReasonTimeout))

	res, err := h.engine.AddSite(ctx, 2, "https://down.example")
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Nil(t, res.Site)
	require.Equal(t, probe.ReasonTimeout, res.Outcome.Reason)

	sites, err := h.engine.ListSites(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, sites)

	forced, err := h.engine.AddSiteAnyway(ctx, 2, "https://down.example", res.Outcome.Reason)
	require.NoError(t, err)
	require.Equal(t, site.StatusOffline, forced.Site.Status)
	require.NotNil(t, forced.Error)

	errs, err := h.engine.ListErrors(ctx, 2, &forced.Site.ID, 0)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	require.Equal(t, siteerror.TypeConnection, errs[0].Type)
	require.Equal(t, probe.ReasonTimeout, errs[0].Message)
	require.False(t, errs[0].Resolved)
	require.Equal(t, "https://down.example", errs[0].SiteURL)

	n, err := h.engine.ResolveAllErrorsForSite(ctx, forced.Site.ID, 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	errs, err = h.engine.ListErrors(ctx, 2, &forced.Site.ID, 0)
	require.NoError(t, err)
	require.True(t, errs[0].Resolved)

	st, err := h.engine.GetStats(ctx, forced.Site.ID)
	require.NoError(t, err)
	require.Zero(t, st.ErrorCount)
	require.EqualValues(t, 1, st.TotalChecks)
	require.Zero(t, st.UptimePercentage)
}

func TestEngine_DuplicateIsPerUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.prober.set("https://shared.example", probe.Reachable(200, time.Millisecond))

	_, err := h.engine.AddSite(ctx, 1, "https://shared.example")
	require.NoError(t, err)

	res, err := h.engine.AddSite(ctx, 2, "https://shared.example")
	require.NoError(t, err)
	require.True(t, res.Created)

	_, err = h.engine.AddSiteAnyway(ctx, 1, "HTTPS://Shared.example:443#top", "")
	require.ErrorIs(t, err, ErrDuplicateSite)
}

func TestEngine_AddSiteRejects(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.engine.AddSite(ctx, 1, "ftp://files.example")
	require.ErrorIs(t, err, ErrInvalidURL)

	_, err = h.engine.AddSite(ctx, 99, "https://example.com")
	require.ErrorIs(t, err, ErrNotFound)

	require.Zero(t, h.prober.calls)
}

func TestEngine_HTTP500IsOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	h := newHarness(t, probe.NewHTTPProber(probe.Config{Timeout: 2 * time.Second}))

	res, err := h.engine.AddSite(ctx, 1, srv.URL)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, site.StatusOnline, res.Site.Status)

	recs, err := h.engine.History(ctx, 1, res.Site.ID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].Success)
	require.Equal(t, http.StatusInternalServerError, *recs[0].StatusCode)
}

func TestEngine_CheckOneTimeout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.prober.set("https://flaky.example", probe.Reachable(200, time.Millisecond))

	added, err := h.engine.AddSite(ctx, 1, "https://flaky.example")
	require.NoError(t, err)
	id := added.Site.ID

	h.prober.set("https://flaky.example", probe.Unreachable(probe.ReasonTimeout))

	res, err := h.engine.CheckOne(ctx, 1, id, false)
	require.NoError(t, err)
	require.Equal(t, site.StatusOffline, res.Site.Status)
	require.True(t, res.Changed)
	require.Nil(t, res.Error)

	res, err = h.engine.CheckOne(ctx, 1, id, true)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.NotNil(t, res.Error)
	require.Equal(t, siteerror.TypeConnection, res.Error.Type)

	recs, err := h.engine.History(ctx, 1, id, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Nil(t, recs[0].StatusCode)
	require.False(t, recs[0].Success)
	require.Zero(t, recs[0].ResponseTime)

	st, err := h.engine.GetStats(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 1, st.ErrorCount)
	require.InDelta(t, 100.0/3, st.UptimePercentage, 1e-9)
}

func TestEngine_StatusNeverReturnsToPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	const target = "https://toggle.example"
	h.prober.set(target, probe.Reachable(200, time.Millisecond))

	added, err := h.engine.AddSite(ctx, 1, target)
	require.NoError(t, err)

	seq := []probe.Outcome{
		probe.Unreachable(probe.ReasonRefused),
		probe.Unreachable(probe.ReasonRefused),
		probe.Reachable(301, time.Millisecond),
		probe.Reachable(404, time.Millisecond),
	}
	want := []site.Status{site.StatusOffline, site.StatusOffline, site.StatusOnline, site.StatusOnline}
	for i, out := range seq {
		h.prober.set(target, out)
		res, err := h.engine.CheckOne(ctx, 1, added.Site.ID, false)
		require.NoError(t, err)
		require.Equal(t, want[i], res.Site.Status)
	}

	st, err := h.engine.GetStats(ctx, added.Site.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, st.TotalChecks)
	require.EqualValues(t, 3, st.SuccessChecks)
	require.InDelta(t, 60.0, st.UptimePercentage, 1e-9)
}

func TestEngine_CheckOneOwnership(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.prober.set("https://mine.example", probe.Reachable(200, time.Millisecond))

	added, err := h.engine.AddSite(ctx, 1, "https://mine.example")
	require.NoError(t, err)

	_, err = h.engine.CheckOne(ctx, 2, added.Site.ID, true)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.engine.CheckOne(ctx, 1, 12345, true)
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := h.engine.DeleteSite(ctx, 2, added.Site.ID)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = h.engine.ResolveAllErrorsForSite(ctx, added.Site.ID, 2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_CheckAllIsPerSite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	for _, u := range urls {
		h.prober.set(u, probe.Reachable(200, time.Millisecond))
		_, err := h.engine.AddSite(ctx, 1, u)
		require.NoError(t, err)
	}
	h.prober.set("https://b.example", probe.Unreachable("dns lookup failed: b.example"))

	results, err := h.engine.CheckAll(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byURL := map[string]CheckResult{}
	for _, r := range results {
		require.NoError(t, r.Err)
		byURL[r.Site.URL] = r
	}
	assert.Equal(t, site.StatusOnline, byURL["https://a.example"].Site.Status)
	assert.Equal(t, site.StatusOffline, byURL["https://b.example"].Site.Status)
	assert.Equal(t, "dns lookup failed: b.example", byURL["https://b.example"].Outcome.Reason)
	assert.NotNil(t, byURL["https://b.example"].Error)
	assert.Equal(t, site.StatusOnline, byURL["https://c.example"].Site.Status)

	// newest first, as ListSites orders them
	assert.Equal(t, "https://c.example", results[0].Site.URL)

	empty, err := h.engine.CheckAll(ctx, 2, true)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestEngine_GetSiteRefresh(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.prober.set("https://info.example", probe.Reachable(200, time.Millisecond))

	added, err := h.engine.AddSite(ctx, 1, "https://info.example")
	require.NoError(t, err)

	h.prober.set("https://info.example", probe.Unreachable(probe.ReasonRefused))
	info, err := h.engine.GetSite(ctx, 1, added.Site.ID, true)
	require.NoError(t, err)
	require.NotNil(t, info.Check)
	require.Equal(t, site.StatusOffline, info.Site.Status)
	require.EqualValues(t, 2, info.Stats.TotalChecks)
	require.Zero(t, info.Stats.ErrorCount)

	plain, err := h.engine.GetSite(ctx, 1, added.Site.ID, false)
	require.NoError(t, err)
	require.Nil(t, plain.Check)
	require.Equal(t, site.StatusOffline, plain.Site.Status)
}

func TestEngine_ResolveError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	forced, err := h.engine.AddSiteAnyway(ctx, 1, "https://gone.example", "connection refused")
	require.NoError(t, err)

	require.ErrorIs(t, h.engine.ResolveError(ctx, 2, forced.Error.ID), ErrNotFound)
	require.NoError(t, h.engine.ResolveError(ctx, 1, forced.Error.ID))
	require.ErrorIs(t, h.engine.ResolveError(ctx, 1, 9999), ErrNotFound)

	st, err := h.engine.GetStats(ctx, forced.Site.ID)
	require.NoError(t, err)
	require.Zero(t, st.ErrorCount)
}

func TestEngine_StatusChangesGoToOutbox(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.prober.set("https://pub.example", probe.Reachable(200, time.Millisecond))

	added, err := h.engine.AddSite(ctx, 1, "https://pub.example")
	require.NoError(t, err)

	_, err = h.engine.CheckOne(ctx, 1, added.Site.ID, false)
	require.NoError(t, err)

	msgs, err := h.outbox.PickBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, outbox.KindSiteStatusChanged, msgs[0].Kind)
}
