package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/NordCoder/Sitewatch/internal/domain/outbox"
)

var _ outbox.Repository = (*OutboxRepo)(nil)

type OutboxRepo struct{ db *DB }

func NewOutboxRepo(db *DB) *OutboxRepo { return &OutboxRepo{db: db} }

const (
	qEnqueue = `
INSERT INTO outbox (idempotency_key, data, status, kind, traceparent, tracestate, baggage, created_at, updated_at)
VALUES (?, ?, 'CREATED', ?, ?, ?, ?, ?, ?)
ON CONFLICT (idempotency_key) DO NOTHING;`

	qPick = `
SELECT idempotency_key, kind, data, created_at, traceparent, tracestate, baggage
FROM outbox
WHERE status = 'CREATED'
   OR (status = 'IN_PROGRESS' AND updated_at < ?)
ORDER BY created_at
LIMIT ?;`

	qClaim = `UPDATE outbox SET status = 'IN_PROGRESS', updated_at = ? WHERE idempotency_key = ?;`
)

func (r *OutboxRepo) Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tc := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, tc)

	now := formatTime(time.Now())
	if _, err := r.db.execQueryer(ctx).ExecContext(ctx, qEnqueue, key, data, int(kind),
		tc.Get("traceparent"), tc.Get("tracestate"), tc.Get("baggage"), now, now); err != nil {
		return fmt.Errorf("outbox enqueue: %w", err)
	}
	return nil
}

func (r *OutboxRepo) PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]outbox.Message, error) {
	if batch <= 0 {
		return nil, errors.New("batch must be > 0")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	var out []outbox.Message
	err := r.db.inTx(ctx, func(eq execQueryer) error {
		rows, err := eq.QueryContext(ctx, qPick, formatTime(now.Add(-inProgressTTL)), batch)
		if err != nil {
			return fmt.Errorf("outbox pick: %w", err)
		}
		for rows.Next() {
			var (
				m       outbox.Message
				kind    int
				created string
			)
			if err := rows.Scan(&m.IdempotencyKey, &kind, &m.Data, &created, &m.Traceparent, &m.Tracestate, &m.Baggage); err != nil {
				_ = rows.Close()
				return fmt.Errorf("outbox scan: %w", err)
			}
			m.Kind = outbox.Kind(kind)
			m.CreatedAt, _ = parseTime(created)
			m.UpdatedAt = now
			m.Status = outbox.StatusInProgress
			out = append(out, m)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		ts := formatTime(now)
		for _, m := range out {
			if _, err := eq.ExecContext(ctx, qClaim, ts, m.IdempotencyKey); err != nil {
				return fmt.Errorf("outbox claim: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OutboxRepo) MarkSuccess(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	args := make([]any, 0, len(keys)+1)
	args = append(args, formatTime(time.Now()))
	for _, k := range keys {
		args = append(args, k)
	}
	q := `UPDATE outbox SET status = 'SUCCESS', updated_at = ? WHERE idempotency_key IN (` + placeholders(len(keys)) + `);`
	if _, err := r.db.execQueryer(ctx).ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("outbox mark success: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ..." for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
