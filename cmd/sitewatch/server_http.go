package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Sitewatch/internal/config/sitewatch"
	"github.com/NordCoder/Sitewatch/internal/obs"
	"github.com/NordCoder/Sitewatch/internal/services/api"
	"github.com/NordCoder/Sitewatch/internal/services/monitor"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, engine *monitor.Engine, health obs.HealthFunc) *http.Server {
	srv := api.NewServer(logger, engine, cfg.Server.CORSOrigins, health)
	srv.CheckAllTimeout = cfg.Server.CheckAllTimeout
	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}
