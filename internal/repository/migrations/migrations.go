package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Up applies every pending migration for dialect to db.
func Up(ctx context.Context, db *sql.DB, dialect string, log *zap.Logger) error {
	p, err := provider(db, dialect)
	if err != nil {
		return err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if log != nil {
		for _, r := range results {
			log.Info("migration applied",
				zap.String("dialect", dialect),
				zap.Int64("version", r.Source.Version),
				zap.Duration("took", r.Duration),
			)
		}
	}
	return nil
}

func provider(db *sql.DB, dialect string) (*goose.Provider, error) {
	var d goose.Dialect
	switch dialect {
	case Postgres:
		d = goose.DialectPostgres
	case SQLite:
		d = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("unknown migration dialect %q", dialect)
	}
	sub, err := fs.Sub(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}
	p, err := goose.NewProvider(d, db, sub)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}
