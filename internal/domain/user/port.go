package user

import "context"

type Repo interface {
	// Create inserts u unless a user with the same id already exists.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
}
