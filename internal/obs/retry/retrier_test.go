package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		Name:     "test",
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: time.Millisecond, Max: 2 * time.Millisecond},
		Retryable: func(err error) bool {
			return !errors.Is(err, ErrPermanent)
		},
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, fastPolicy(5))

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	calls := 0
	var exhausted error
	p := fastPolicy(5)
	p.OnExhaust = func(err error) { exhausted = err }

	err := Do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("bad payload: %w", ErrPermanent)
	}, p)

	require.ErrorIs(t, err, ErrPermanent)
	require.Equal(t, 1, calls)
	require.ErrorIs(t, exhausted, ErrPermanent)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("attempt %d", calls)
	}, fastPolicy(3))

	require.EqualError(t, err, "attempt 3")
	require.Equal(t, 3, calls)
}

func TestDo_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		return nil
	}, fastPolicy(3))

	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}

func TestExpoJitter_CapsAtMax(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	require.Equal(t, 100*time.Millisecond, b.Next(0))
	require.Equal(t, 400*time.Millisecond, b.Next(2))
	require.Equal(t, time.Second, b.Next(10))
}
