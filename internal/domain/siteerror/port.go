package siteerror

import "context"

type Repo interface {
	Create(ctx context.Context, e *Error) error
	List(ctx context.Context, f Filter) ([]*Error, error)
	Resolve(ctx context.Context, userID, id int64) error
	ResolveAllForSite(ctx context.Context, siteID, userID int64) (int64, error)
}
