package events

import (
	"context"
	"time"
)

type StatusChanged struct {
	SiteID int64     `json:"site_id"`
	UserID int64     `json:"user_id"`
	URL    string    `json:"url"`
	Old    string    `json:"old"`
	New    string    `json:"new"`
	At     time.Time `json:"at"`
}

type CheckRequest struct {
	UserID    int64
	SiteID    int64
	LogErrors bool
}

type SiteEvents interface {
	PublishStatusChanged(ctx context.Context, ev StatusChanged) error
	PublishCheckRequested(ctx context.Context, req CheckRequest) error
}
