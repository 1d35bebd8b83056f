package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	config "github.com/NordCoder/Sitewatch/internal/config/sitewatch"
	"github.com/NordCoder/Sitewatch/internal/repository/migrations"
)

func main() {
	path := os.Getenv("SITEWATCH_CONFIG")
	if path == "" {
		path = "config/sitewatch.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	driver, dialect := "sqlite", migrations.SQLite
	if cfg.DB.Driver == config.DriverPostgres {
		driver, dialect = "pgx", migrations.Postgres
	}

	db, err := sql.Open(driver, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := migrations.Up(context.Background(), db, dialect, nil); err != nil {
		log.Fatalf("migrate up: %v", err)
	}
	log.Println("migrations: up OK")
}
