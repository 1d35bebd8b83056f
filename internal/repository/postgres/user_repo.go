package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

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
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING;`

	qUserByID = `
SELECT id, username, first_name, last_name, created_at
FROM users
WHERE id = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	eq := r.db.execQueryer(ctx)
	if _, err := eq.Exec(ctx, qUserInsert, u.ID, u.Username, u.FirstName, u.LastName, u.CreatedAt); err != nil {
		return mapErr("user insert", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUser(row pgx.Row, out *user.User) error {
	if err := row.Scan(&out.ID, &out.Username, &out.FirstName, &out.LastName, &out.CreatedAt); err != nil {
		return mapErr("scan user", err)
	}
	return nil
}
