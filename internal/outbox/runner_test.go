package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Sitewatch/internal/domain/events"
	"github.com/NordCoder/Sitewatch/internal/domain/outbox"
	"github.com/NordCoder/Sitewatch/internal/obs/retry"
	"github.com/NordCoder/Sitewatch/internal/repository/migrations"
	"github.com/NordCoder/Sitewatch/internal/repository/sqlite"
)

type recordingEvents struct {
	mu      sync.Mutex
	changed []events.StatusChanged
	calls   int
	failFor int
}

func (r *recordingEvents) PublishStatusChanged(_ context.Context, ev events.StatusChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failFor {
		return errors.New("broker unavailable")
	}
	r.changed = append(r.changed, ev)
	return nil
}

func (r *recordingEvents) PublishCheckRequested(context.Context, events.CheckRequest) error {
	return nil
}

func newRepo(t *testing.T) *sqlite.OutboxRepo {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "outbox.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(ctx, db.SQL, migrations.SQLite, nil))
	return sqlite.NewOutboxRepo(db)
}

func testPolicy() retry.Policy {
	return retry.Policy{
		Name:     "test",
		Attempts: 3,
		Backoff:  retry.ExpoJitter{Base: time.Millisecond, Max: time.Millisecond},
		Retryable: func(err error) bool {
			return !errors.Is(err, retry.ErrPermanent)
		},
	}
}

func enqueueChange(t *testing.T, repo *sqlite.OutboxRepo, key string, siteID int64) {
	t.Helper()
	b, err := events.MarshalStatusChanged(events.StatusChanged{
		SiteID: siteID, UserID: 1, URL: "https://a.example", Old: "pending", New: "online", At: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Enqueue(context.Background(), key, outbox.KindSiteStatusChanged, b))
}

func TestRunner_TickDeliversAndMarks(t *testing.T) {
	repo := newRepo(t)
	pub := &recordingEvents{failFor: 2}
	enqueueChange(t, repo, "site-1", 1)
	enqueueChange(t, repo, "site-2", 2)

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, testPolicy()), Config{BatchSize: 10})
	require.Equal(t, 2, r.Tick(context.Background()))
	require.Len(t, pub.changed, 2)
	require.Equal(t, int64(1), pub.changed[0].SiteID)

	require.Zero(t, r.Tick(context.Background()))
}

func TestRunner_BadPayloadIsNotRetried(t *testing.T) {
	repo := newRepo(t)
	pub := &recordingEvents{}
	require.NoError(t, repo.Enqueue(context.Background(), "bad", outbox.KindSiteStatusChanged, []byte{0xff, 0x00}))

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, testPolicy()), Config{BatchSize: 10})
	require.Zero(t, r.Tick(context.Background()))
	require.Zero(t, pub.calls)
}

func TestRunner_UnknownKind(t *testing.T) {
	repo := newRepo(t)
	require.NoError(t, repo.Enqueue(context.Background(), "odd", outbox.Kind(99), []byte("x")))

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(&recordingEvents{}, testPolicy()), Config{BatchSize: 10})
	require.Zero(t, r.Tick(context.Background()))
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	repo := newRepo(t)
	pub := &recordingEvents{}
	enqueueChange(t, repo, "site-1", 1)

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, testPolicy()),
		Config{Workers: 2, BatchSize: 10, WaitTime: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.changed) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
