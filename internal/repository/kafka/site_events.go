package kafka

import (
	"context"
	"fmt"

	"github.com/NordCoder/Sitewatch/internal/domain/events"
)

type SiteEventsKafka struct {
	status   *Producer
	requests *Producer
}

var _ events.SiteEvents = (*SiteEventsKafka)(nil)

// NewSiteEventsKafka publishes status changes through status and check
// requests through requests. Either may be nil when that stream is unused.
func NewSiteEventsKafka(status, requests *Producer) *SiteEventsKafka {
	return &SiteEventsKafka{status: status, requests: requests}
}

func (e *SiteEventsKafka) PublishStatusChanged(ctx context.Context, ev events.StatusChanged) error {
	if e.status == nil {
		return fmt.Errorf("status stream not configured")
	}
	m, err := ev.ToProto()
	if err != nil {
		return fmt.Errorf("encode status change: %w", err)
	}
	return e.status.PublishProto(ctx, KeyFromInt64(ev.SiteID), m)
}

func (e *SiteEventsKafka) PublishCheckRequested(ctx context.Context, req events.CheckRequest) error {
	if e.requests == nil {
		return fmt.Errorf("check request stream not configured")
	}
	m, err := req.ToProto()
	if err != nil {
		return fmt.Errorf("encode check request: %w", err)
	}
	return e.requests.PublishProto(ctx, KeyFromInt64(req.SiteID), m)
}
