package scheduler

import (
	"context"

	"github.com/NordCoder/Sitewatch/internal/domain/events"
	"github.com/NordCoder/Sitewatch/internal/domain/site"
	"github.com/NordCoder/Sitewatch/internal/services/monitor"
)

// Dispatcher hands a due site over for checking.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *site.Site) error
}

// Inline checks the site in process. Scheduled checks never log errors.
type Inline struct{ Engine *monitor.Engine }

func (d Inline) Dispatch(ctx context.Context, s *site.Site) error {
	return d.Engine.CheckSite(ctx, s, false).Err
}

// Queue publishes a check request for the kafka controller to pick up.
type Queue struct{ Events events.SiteEvents }

func (d Queue) Dispatch(ctx context.Context, s *site.Site) error {
	return d.Events.PublishCheckRequested(ctx, events.CheckRequest{UserID: s.UserID, SiteID: s.ID})
}
