package sitewatch_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Sitewatch/internal/probe"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, DriverSQLite, cfg.DB.Driver)
	require.Equal(t, probe.DefaultTimeout, cfg.AsProbeConfig().Timeout)
	require.Equal(t, 15*time.Minute, cfg.Server.CheckAllTimeout)
	require.Equal(t, 16, cfg.Monitor.Workers)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.False(t, cfg.Kafka.Enable)
	require.Equal(t, "sitewatch", cfg.AsLoggerConfig().App)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitewatch.yaml")
	yaml := `
db:
  driver: postgres
  dsn: postgres://u:p@localhost:5432/sitewatch?sslmode=disable
probe:
  timeout: 3s
scheduler:
  tick: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("MONITOR_WORKERS", "4")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, DriverPostgres, cfg.DB.Driver)
	require.Equal(t, probe.DefaultTimeout, cfg.AsProbeConfig().Timeout, "probe timeout is not configurable")
	require.Equal(t, time.Minute, cfg.Scheduler.Tick)
	require.Equal(t, 4, cfg.Monitor.Workers)
	require.Equal(t, cfg.DB.DSN, cfg.DB.AsPostgresConfig().DSN)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load("")
	var cfgErr ErrConfig
	require.ErrorAs(t, err, &cfgErr)
}
