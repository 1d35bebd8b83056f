package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Sitewatch/internal/domain/site"
	"github.com/NordCoder/Sitewatch/internal/probe"
)

func TestTracker_DeletedSiteWritesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.prober.set("https://race.example", probe.Reachable(200, time.Millisecond))

	added, err := h.engine.AddSite(ctx, 1, "https://race.example")
	require.NoError(t, err)
	stale := *added.Site

	ok, err := h.engine.DeleteSite(ctx, 1, stale.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = h.engine.tracker.Apply(ctx, &stale, probe.Unreachable(probe.ReasonTimeout), true)
	require.ErrorIs(t, err, ErrNotFound)

	errs, err := h.engine.ListErrors(ctx, 1, nil, 0)
	require.NoError(t, err)
	require.Empty(t, errs)
}

func TestTracker_RejectsUnknownStatus(t *testing.T) {
	h := newHarness(t, nil)
	bogus := &site.Site{ID: 1, UserID: 1, Status: site.Status("paused")}

	_, err := h.engine.tracker.Apply(context.Background(), bogus, probe.Reachable(200, 0), false)
	require.Error(t, err)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestTracker_OlderOutcomeDoesNotOverwriteNewer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	s := &site.Site{UserID: 1, URL: "https://overlap.example"}
	require.NoError(t, h.engine.deps.Sites.Create(ctx, s))

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	early := *h.engine.tracker
	early.Clock = fixedClock(base.Add(time.Second))
	late := *h.engine.tracker
	late.Clock = fixedClock(base.Add(2 * time.Second))

	// both checks started from the same pending copy; the later one commits first
	first, err := late.Apply(ctx, s, probe.Reachable(200, time.Millisecond), false)
	require.NoError(t, err)
	require.True(t, first.Changed)
	require.Equal(t, site.StatusPending, first.Previous)

	second, err := early.Apply(ctx, s, probe.Unreachable(probe.ReasonTimeout), false)
	require.NoError(t, err)
	require.True(t, second.Superseded)
	require.False(t, second.Changed)
	require.Equal(t, site.StatusOnline, second.Site.Status)
	require.True(t, second.Site.LastCheck.Equal(base.Add(2*time.Second)))

	stored, err := h.engine.deps.Sites.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, site.StatusOnline, stored.Status)
	require.True(t, stored.LastCheck.Equal(base.Add(2*time.Second)))

	recs, err := h.engine.History(ctx, 1, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.True(t, recs[0].Success)
	require.True(t, recs[0].Timestamp.Equal(base.Add(2*time.Second)))

	msgs, err := h.outbox.PickBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestTracker_ChangedUsesStoredStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	s := &site.Site{UserID: 1, URL: "https://copy.example"}
	require.NoError(t, h.engine.deps.Sites.Create(ctx, s))
	stale := *s

	_, err := h.engine.tracker.Apply(ctx, s, probe.Unreachable(probe.ReasonRefused), false)
	require.NoError(t, err)

	// stale still says pending, the row already says offline
	res, err := h.engine.tracker.Apply(ctx, &stale, probe.Unreachable(probe.ReasonRefused), false)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, site.StatusOffline, res.Previous)

	msgs, err := h.outbox.PickBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}
