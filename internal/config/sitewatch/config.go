package sitewatch_config

import (
	"time"

	"github.com/NordCoder/Sitewatch/internal/obs"
	"github.com/NordCoder/Sitewatch/internal/probe"
	pg "github.com/NordCoder/Sitewatch/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	// CheckAllTimeout replaces WriteTimeout for the check-all route; zero
	// leaves that response without a write deadline.
	CheckAllTimeout time.Duration `mapstructure:"check_all_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB.DSN is a postgres URL for the postgres driver and a file path for sqlite.
type DB struct {
	Driver            string        `mapstructure:"driver"`
	DSN               string        `mapstructure:"dsn"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

func (d DB) AsPostgresConfig() pg.Config {
	return pg.Config{
		DSN:               d.DSN,
		MaxConns:          d.MaxConns,
		MinConns:          d.MinConns,
		MaxConnLifetime:   d.MaxConnLifetime,
		MaxConnIdleTime:   d.MaxConnIdleTime,
		HealthCheckPeriod: d.HealthCheckPeriod,
		QueryTimeout:      d.QueryTimeout,
	}
}

// Probe has no timeout knob: every probe waits probe.DefaultTimeout.
type Probe struct {
	UserAgent       string        `mapstructure:"user_agent"`
	FollowRedirects bool          `mapstructure:"follow_redirects"`
	VerifyTLS       bool          `mapstructure:"verify_tls"`
}

type Monitor struct {
	Workers int `mapstructure:"workers"`
}

type Scheduler struct {
	Enable     bool          `mapstructure:"enable"`
	Tick       time.Duration `mapstructure:"tick"`
	BatchLimit int           `mapstructure:"batch_limit"`
}

type Kafka struct {
	Enable        bool     `mapstructure:"enable"`
	Brokers       []string `mapstructure:"brokers"`
	StatusTopic   string   `mapstructure:"status_topic"`
	RequestTopic  string   `mapstructure:"request_topic"`
	GroupID       string   `mapstructure:"group_id"`
	ConsumeChecks bool     `mapstructure:"consume_checks"`
}

type Outbox struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	Pretty     bool   `mapstructure:"pretty"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type Config struct {
	App       App       `mapstructure:"app"`
	Server    Server    `mapstructure:"server"`
	DB        DB        `mapstructure:"db"`
	Probe     Probe     `mapstructure:"probe"`
	Monitor   Monitor   `mapstructure:"monitor"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Outbox    Outbox    `mapstructure:"outbox"`
	OTEL      OTEL      `mapstructure:"otel"`
	Log       Log       `mapstructure:"log"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:      c.Log.Level,
		Pretty:     c.Log.Pretty,
		App:        c.App.Name,
		Env:        c.App.Env,
		Ver:        c.App.Version,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

func (c *Config) AsProbeConfig() probe.Config {
	return probe.Config{
		Timeout:         probe.DefaultTimeout,
		UserAgent:       c.Probe.UserAgent,
		FollowRedirects: c.Probe.FollowRedirects,
		VerifyTLS:       c.Probe.VerifyTLS,
	}
}

func (c *Config) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: c.OTEL.ServiceName,
		ServiceVer:  c.App.Version,
		Env:         c.App.Env,
		SampleRatio: c.OTEL.SampleRatio,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
