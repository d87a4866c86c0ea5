package main

import (
	"context"
	"errors"
	"os"
	"time"

	"coinkeeper/internal/amqp"
	"coinkeeper/internal/backend"
	"coinkeeper/internal/cli"
	"coinkeeper/internal/config"
	"coinkeeper/internal/core"
	apphttp "coinkeeper/internal/http"
	"coinkeeper/internal/log"
	"coinkeeper/internal/metrics"
	gsheet "coinkeeper/internal/sheets/google"
	"coinkeeper/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.Bootstrap((*config.Config).ValidateExport)
	logger.Info("Starting coinkeeper-export",
		log.FieldOperation, log.OpStartup,
		"backend", cfg.DataBackend)

	ctx, _ := cli.GracefulShutdown(logger, 15*time.Second, nil)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// The exporter only reads the ledger; it never publishes.
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg.WithoutEvents())
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		return
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		return
	}
	defer consumer.Close()

	m := metrics.New(nil)
	exporter := worker.NewExportWorker(res.Store, sheetsClient, m, logger)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		ops := apphttp.NewServer(cfg.MetricsAddr, m.Registry, func(ctx context.Context) error {
			_, err := res.Store.ListCategories(ctx, core.KindExpense)
			return err
		}, logger)
		g.Go(func() error { return ops.Run(gctx) })
	}
	g.Go(func() error { return consumer.Consume(gctx, exporter.HandleCommitted) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		return
	}
	logger.Info("Export worker stopped", log.FieldOperation, log.OpShutdown)
}
