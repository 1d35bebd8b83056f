package sitewatch_config

import (
	"strings"

	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}

	v.SetDefault("app.name", "sitewatch")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "dev")

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9100")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.check_all_timeout", "15m")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.dsn", "sitewatch.db")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.max_conns", 20)
	v.SetDefault("db.min_conns", 2)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "10m")
	v.SetDefault("db.health_check_period", "30s")
	v.SetDefault("db.query_timeout", "2s")

	v.SetDefault("probe.user_agent", "sitewatch/1.0")
	v.SetDefault("probe.follow_redirects", true)
	v.SetDefault("probe.verify_tls", true)

	v.SetDefault("monitor.workers", 16)

	v.SetDefault("scheduler.enable", true)
	v.SetDefault("scheduler.tick", "5s")
	v.SetDefault("scheduler.batch_limit", 64)

	v.SetDefault("kafka.enable", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.status_topic", "sitewatch.site.status")
	v.SetDefault("kafka.request_topic", "sitewatch.check.request")
	v.SetDefault("kafka.group_id", "sitewatch")
	v.SetDefault("kafka.consume_checks", false)

	v.SetDefault("outbox.workers", 2)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.wait_time", "1s")
	v.SetDefault("outbox.in_progress_ttl", "30s")

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "sitewatch")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return ErrConfig("db.driver must be postgres or sqlite, got " + c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return ErrConfig("db.dsn is empty")
	}
	if c.Server.CheckAllTimeout < 0 {
		return ErrConfig("server.check_all_timeout must not be negative")
	}
	if c.Kafka.Enable && len(c.Kafka.Brokers) == 0 {
		return ErrConfig("kafka.brokers is empty")
	}
	return nil
}
