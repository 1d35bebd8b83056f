package obs

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Level  string
	Pretty bool
	App    string
	Env    string
	Ver    string

	// File enables a rotating JSON log file in addition to stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func NewLogger(c LogConfig) (*zap.Logger, error) {
	var cfg zap.Config
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	level := new(zapcore.Level)
	if err := level.Set(c.Level); err != nil {
		*level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(*level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	fields := zap.Fields(
		zap.String("service", c.App),
		zap.String("env", c.Env),
		zap.String("version", c.Ver),
	)

	if c.File == "" {
		return cfg.Build(fields)
	}

	var console zapcore.Encoder
	if c.Pretty {
		console = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	} else {
		console = zapcore.NewJSONEncoder(cfg.EncoderConfig)
	}
	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    orDefault(c.MaxSizeMB, 10),
		MaxBackups: orDefault(c.MaxBackups, 5),
		MaxAge:     orDefault(c.MaxAgeDays, 14),
		Compress:   true,
	})
	core := zapcore.NewTee(
		zapcore.NewCore(console, zapcore.Lock(os.Stderr), cfg.Level),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), file, cfg.Level),
	)
	return zap.New(core, zap.AddCaller(), fields), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
