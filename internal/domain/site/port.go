package site

import (
	"context"
	"time"

	"github.com/NordCoder/Sitewatch/internal/domain/history"
)

type Repo interface {
	Create(ctx context.Context, s *Site) error
	GetByID(ctx context.Context, id int64) (*Site, error)
	GetByURL(ctx context.Context, userID int64, url string) (*Site, error)
	ListByUser(ctx context.Context, userID int64) ([]*Site, error)

	// UpdateStatus sets status and last_check to at and, when rec is not nil,
	// appends rec to the check history. Status is left alone when the stored
	// last_check is newer than at; the record is still appended. A missing
	// site yields Found == false without error.
	UpdateStatus(ctx context.Context, id int64, status Status, at time.Time, rec *history.Record) (StatusUpdate, error)

	// Delete removes the site with its errors and check history. It reports
	// false when the site does not exist or belongs to another user.
	Delete(ctx context.Context, userID, id int64) (bool, error)

	Counters(ctx context.Context, id int64) (*Counters, error)
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*Site, error)
}

// StatusUpdate is what UpdateStatus found and did.
type StatusUpdate struct {
	Found   bool
	Applied bool

	// Previous and PreviousCheck are the stored values before the update.
	Previous      Status
	PreviousCheck time.Time
}
