package sqlite

import (
	"context"
	"time"

	"github.com/NordCoder/Sitewatch/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserInsert = `
INSERT INTO users (id, username, first_name, last_name, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING;`

	qUserByID = `
SELECT id, username, first_name, last_name, created_at
FROM users
WHERE id = ?;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.execQueryer(ctx).ExecContext(ctx, qUserInsert,
		u.ID, u.Username, u.FirstName, u.LastName, formatTime(u.CreatedAt))
	return mapErr("user insert", err)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		u       user.User
		created string
	)
	err := r.db.execQueryer(ctx).QueryRowContext(ctx, qUserByID, id).
		Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &created)
	if err != nil {
		return nil, mapErr("scan user", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}
