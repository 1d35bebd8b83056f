package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/NordCoder/Sitewatch/internal/domain"
	"github.com/NordCoder/Sitewatch/internal/domain/site"
)

type DueRepo interface {
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*site.Site, error)
}

type Usecase struct {
	Repo     DueRepo
	Dispatch Dispatcher
	Workers  int
	Now      func() time.Time
}

func NewUC(repo DueRepo, dispatch Dispatcher, workers int) *Usecase {
	if workers <= 0 {
		workers = 1
	}
	return &Usecase{
		Repo:     repo,
		Dispatch: dispatch,
		Workers:  workers,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Tick claims up to limit due sites and dispatches them. It returns how many
// were fetched, dispatched and failed.
func (u *Usecase) Tick(ctx context.Context, limit int) (int, int, int, error) {
	if limit <= 0 {
		limit = 100
	}

	tr := otel.Tracer("scheduler.uc")
	ctxTick, span := tr.Start(ctx, "scheduler.tick",
		trace.WithAttributes(attribute.Int("batch.limit", limit)),
	)
	defer span.End()

	due, err := u.Repo.FetchDue(ctxTick, u.Now(), limit)
	if err != nil {
		span.RecordError(err)
		return 0, 0, 1, fmt.Errorf("fetch due: %w", err)
	}
	span.SetAttributes(attribute.Int("batch.fetched", len(due)))
	if len(due) == 0 {
		return 0, 0, 0, nil
	}

	var sent, errs atomic.Int64
	var g errgroup.Group
	g.SetLimit(u.Workers)
	for _, s := range due {
		g.Go(func() error {
			ctxSite, sp := tr.Start(ctxTick, "scheduler.dispatch",
				trace.WithAttributes(
					attribute.Int64("site.id", s.ID),
					attribute.String("site.url", s.URL),
				),
			)
			defer sp.End()

			err := u.Dispatch.Dispatch(ctxSite, s)
			switch {
			case err == nil:
				sent.Add(1)
				sp.SetAttributes(attribute.String("dispatch.status", "ok"))
			case errors.Is(err, domain.ErrNotFound):
				// deleted after it was claimed
				sp.SetAttributes(attribute.String("dispatch.status", "gone"))
			default:
				errs.Add(1)
				sp.RecordError(err)
				sp.SetAttributes(attribute.String("dispatch.status", "error"))
			}
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int64("batch.sent", sent.Load()),
		attribute.Int64("batch.errors", errs.Load()),
	)
	return len(due), int(sent.Load()), int(errs.Load()), nil
}
