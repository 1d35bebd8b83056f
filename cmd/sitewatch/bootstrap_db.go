package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/Sitewatch/internal/config/sitewatch"
	"github.com/NordCoder/Sitewatch/internal/domain/history"
	"github.com/NordCoder/Sitewatch/internal/domain/outbox"
	"github.com/NordCoder/Sitewatch/internal/domain/site"
	"github.com/NordCoder/Sitewatch/internal/domain/siteerror"
	"github.com/NordCoder/Sitewatch/internal/domain/transactor"
	"github.com/NordCoder/Sitewatch/internal/domain/user"
	"github.com/NordCoder/Sitewatch/internal/obs"
	"github.com/NordCoder/Sitewatch/internal/repository/migrations"
	pg "github.com/NordCoder/Sitewatch/internal/repository/postgres"
	"github.com/NordCoder/Sitewatch/internal/repository/sqlite"
)

// store is the backend chosen by db.driver.
type store struct {
	Users   user.Repo
	Sites   site.Repo
	Errors  siteerror.Repo
	History history.Repo
	Outbox  outbox.Repository
	Tx      transactor.Transactor
	Ping    obs.HealthFunc
	Close   func()
}

func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		return initPostgres(ctx, cfg, logger)
	case config.DriverSQLite:
		return initSQLite(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

func initPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	pgCfg := cfg.DB.AsPostgresConfig()
	pgCfg.Logger = logger.Named("postgres")
	db, err := pg.NewDB(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		sqlDB := db.SQLDB()
		err := migrations.Up(ctx, sqlDB, migrations.Postgres, logger)
		_ = sqlDB.Close()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &store{
		Users:   pg.NewUserRepo(db),
		Sites:   pg.NewSiteRepo(db),
		Errors:  pg.NewErrorRepo(db),
		History: pg.NewHistoryRepo(db),
		Outbox:  pg.NewOutboxRepo(db),
		Tx:      pg.NewTransactor(db, logger),
		Ping:    db.Ping,
		Close:   db.Close,
	}, nil
}

func initSQLite(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	db, err := sqlite.Open(ctx, cfg.DB.DSN, cfg.DB.QueryTimeout)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := migrations.Up(ctx, db.SQL, migrations.SQLite, logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &store{
		Users:   sqlite.NewUserRepo(db),
		Sites:   sqlite.NewSiteRepo(db),
		Errors:  sqlite.NewErrorRepo(db),
		History: sqlite.NewHistoryRepo(db),
		Outbox:  sqlite.NewOutboxRepo(db),
		Tx:      sqlite.NewTransactor(db, logger),
		Ping:    db.Ping,
		Close:   func() { _ = db.Close() },
	}, nil
}
