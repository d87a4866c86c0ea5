package main

import (
	"context"
	"errors"
	"os"
	"time"

	"coinkeeper/internal/backend"
	"coinkeeper/internal/bot"
	"coinkeeper/internal/cache"
	"coinkeeper/internal/catalog"
	"coinkeeper/internal/cli"
	"coinkeeper/internal/config"
	"coinkeeper/internal/core"
	"coinkeeper/internal/flow"
	apphttp "coinkeeper/internal/http"
	"coinkeeper/internal/log"
	"coinkeeper/internal/metrics"
	"coinkeeper/internal/session"
	"coinkeeper/internal/stats"
	"coinkeeper/internal/telegram"

	"golang.org/x/sync/errgroup"
)

const (
	categoryTTL   = time.Hour
	sweepInterval = time.Minute
)

func main() {
	cfg, logger := cli.Bootstrap((*config.Config).Validate)
	logger.Info("Starting coinkeeper",
		log.FieldOperation, log.OpStartup,
		"backend", cfg.DataBackend)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", log.FieldError, err)
		os.Exit(1)
	}

	ctx, _ := cli.GracefulShutdown(logger, 15*time.Second, nil)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	var m *metrics.Metrics
	sessions := session.NewStore(cfg.SessionMax, cfg.SessionTTL,
		session.OnExpire(func(session.Session) { m.SessionExpired() }),
		session.OnEvict(func(session.Session) { m.SessionEvicted() }))
	m = metrics.New(func() float64 { return float64(sessions.Len()) })

	categories := catalog.New(res.Store, categoryTTL)
	caches := cache.NewManager(logger)
	caches.Register(sessions)
	caches.Register(categories)
	caches.Start(ctx, sweepInterval)
	defer caches.Stop()

	transport, err := telegram.New(cfg.BotToken, cfg.HandlerConcurrency, cfg.PollTimeout, logger)
	if err != nil {
		logger.Error("Failed to initialize Telegram transport", log.FieldError, err)
		return
	}

	controller := bot.NewController(bot.Deps{
		Channel:    transport,
		Ledger:     res.Ledger,
		Categories: categories,
		Reports:    stats.New(res.Store, stats.WithLocation(loc), stats.WithLogger(logger)),
		Machine:    flow.New(categories, flow.WithLocation(loc)),
		Sessions:   sessions,
		Metrics:    m,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		ops := apphttp.NewServer(cfg.MetricsAddr, m.Registry, func(ctx context.Context) error {
			_, err := res.Store.ListCategories(ctx, core.KindIncome)
			return err
		}, logger)
		g.Go(func() error { return ops.Run(gctx) })
	}
	g.Go(func() error { return transport.Run(gctx, controller) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Service stopped with error", log.FieldError, err)
		return
	}
	logger.Info("Service stopped", log.FieldOperation, log.OpShutdown)
}
