package history

import "context"

type Repo interface {
	ListBySite(ctx context.Context, siteID int64, limit int) ([]*Record, error)
}
