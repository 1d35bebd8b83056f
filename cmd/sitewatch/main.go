package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	config "github.com/NordCoder/Sitewatch/internal/config/sitewatch"
	"github.com/NordCoder/Sitewatch/internal/obs"
	"github.com/NordCoder/Sitewatch/internal/obs/retry"
	"github.com/NordCoder/Sitewatch/internal/outbox"
	"github.com/NordCoder/Sitewatch/internal/probe"
	"github.com/NordCoder/Sitewatch/internal/services/monitor"
	"github.com/NordCoder/Sitewatch/internal/services/scheduler"
)

func configPath() string {
	if p := os.Getenv("SITEWATCH_CONFIG"); p != "" {
		return p
	}
	return "config/sitewatch.yaml"
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath())
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting sitewatch",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("db", cfg.DB.Driver),
	)

	otelShutdown, err := initOTel(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := initStore(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer st.Close()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, st.Ping, logger)

	deps := monitor.Deps{
		Users:      st.Users,
		Sites:      st.Sites,
		Errors:     st.Errors,
		History:    st.History,
		Transactor: st.Tx,
		Prober:     probe.NewHTTPProber(cfg.AsProbeConfig()),
	}

	var kh *kafkaHandles
	if cfg.Kafka.Enable {
		kh = initKafka(rootCtx, cfg, logger)
		defer kh.Close()
		deps.Outbox = st.Outbox
	}

	engine := monitor.NewEngine(deps, monitor.Config{Workers: cfg.Monitor.Workers}, logger)
	httpSrv := buildHTTPServer(cfg, logger, engine, st.Ping)

	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		if err := serveHTTP(httpSrv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Scheduler.Enable {
		var dispatch scheduler.Dispatcher = scheduler.Inline{Engine: engine}
		if kh != nil && kh.Requests != nil {
			dispatch = scheduler.Queue{Events: kh.Events}
		}
		uc := scheduler.NewUC(st.Sites, dispatch, cfg.Monitor.Workers)
		runner := scheduler.New(logger, uc, scheduler.Config{
			Tick:       cfg.Scheduler.Tick,
			BatchLimit: cfg.Scheduler.BatchLimit,
		})
		g.Go(func() error { return ignoreCanceled(runner.Run(ctx)) })
	}

	if kh != nil {
		outboxRunner := outbox.NewOutboxRunner(
			logger,
			st.Outbox,
			outbox.MakeGlobalOutboxHandler(kh.Events, retry.PublishPolicy(logger)),
			outbox.Config{
				Workers:       cfg.Outbox.Workers,
				BatchSize:     cfg.Outbox.BatchSize,
				WaitTime:      cfg.Outbox.WaitTime,
				InProgressTTL: cfg.Outbox.InProgressTTL,
			},
		)
		g.Go(func() error {
			outboxRunner.Run(ctx)
			return nil
		})

		if kh.Requests != nil {
			ctrl := &monitor.Controller{Log: logger.With(zap.String("component", "check-requests")), Sub: kh.Requests, Engine: engine}
			g.Go(func() error { return ignoreCanceled(ctrl.Run(ctx)) })
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()
		_ = httpSrv.Shutdown(shCtx)
		_ = ms.Shutdown(shCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("run", zap.Error(err))
	}

	time.Sleep(100 * time.Millisecond)
	logger.Info("bye")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
