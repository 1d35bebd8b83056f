package main

import (
	config "github.com/NordCoder/Sitewatch/internal/config/sitewatch"
	"github.com/NordCoder/Sitewatch/internal/obs"
	"go.uber.org/zap"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.AsLoggerConfig())
}
