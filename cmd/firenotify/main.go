// Command firenotify serves the fire-event ingestion endpoint: it records
// geolocation-tagged events, deduplicates repeats, e-mails the region's
// responsible party and annotates the outcome in the event history.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guaxindiba/firenotify/internal/api"
	"github.com/guaxindiba/firenotify/internal/conf"
	"github.com/guaxindiba/firenotify/internal/dedup"
	"github.com/guaxindiba/firenotify/internal/directory"
	"github.com/guaxindiba/firenotify/internal/ingest"
	"github.com/guaxindiba/firenotify/internal/logger"
	"github.com/guaxindiba/firenotify/internal/notify"
	"github.com/guaxindiba/firenotify/internal/observability/metrics"
	"github.com/guaxindiba/firenotify/internal/rowstore"
	"github.com/guaxindiba/firenotify/internal/timefmt"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "firenotify",
		Short:         "Fire event ingestion and responsible-party notification service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./config.yaml)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "firenotify:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	settings, err := conf.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewSlogLogger(os.Stdout, settings.LogLevel(), []logger.Field{
		logger.String("service", "firenotify"),
	})

	store, err := openStore(ctx, settings, log)
	if err != nil {
		return err
	}

	normalizer, err := timefmt.New(settings.Timezone)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(settings, log)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	ingestMetrics, err := metrics.NewIngest(registry)
	if err != nil {
		return fmt.Errorf("register ingest metrics: %w", err)
	}

	cfg := settings.IngestConfig()
	orchestrator := ingest.NewOrchestrator(
		cfg,
		normalizer,
		store,
		dedup.NewChecker(store, cfg.HistoryTable, cfg.DedupColumns()),
		directory.NewResolver(store, cfg.DirectoryTable, cfg.DirectoryCols, settings.Directory.CacheTTL),
		notifier,
		ingestMetrics,
		log,
		stageLogHook(log),
	)

	controller := api.New(orchestrator, log, registry)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("address", settings.Server.Address()))
		errCh <- controller.Echo.Start(settings.Server.Address())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := controller.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore selects the persistence backend and bootstraps the two tables'
// header rows so a fresh deployment serves requests immediately.
func openStore(ctx context.Context, settings *conf.Settings, log logger.Logger) (rowstore.Store, error) {
	cfg := settings.IngestConfig()

	if settings.Store.Path == "" {
		log.Warn("no store path configured, events will not survive a restart")
		mem := rowstore.NewMemStore()
		mem.CreateTable(cfg.HistoryTable, cfg.HistoryHeader())
		mem.CreateTable(cfg.DirectoryTable, cfg.DirectoryHeader())
		return mem, nil
	}

	db, err := gorm.Open(sqlite.Open(settings.Store.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", settings.Store.Path, err)
	}
	store, err := rowstore.NewGormStore(db)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureTable(ctx, cfg.HistoryTable, cfg.HistoryHeader()); err != nil {
		return nil, err
	}
	if err := store.EnsureTable(ctx, cfg.DirectoryTable, cfg.DirectoryHeader()); err != nil {
		return nil, err
	}
	log.Info("row store ready", logger.String("path", settings.Store.Path))
	return store, nil
}

func buildNotifier(settings *conf.Settings, log logger.Logger) (notify.Notifier, error) {
	if settings.Notify.SMTPHost == "" {
		log.Warn("no smtp relay configured, notifications will be logged only")
		return &notify.LogNotifier{Log: log}, nil
	}
	smtp, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     settings.Notify.SMTPHost,
		Port:     settings.Notify.SMTPPort,
		Username: settings.Notify.Username,
		Password: settings.Notify.Password,
		From:     settings.Notify.From,
		UseTLS:   settings.Notify.UseTLS,
	})
	if err != nil {
		return nil, err
	}
	return notify.WithTimeout(smtp, settings.Notify.Timeout), nil
}

// stageLogHook emits one structured log line per state-machine transition.
func stageLogHook(log logger.Logger) ingest.StageHook {
	return func(requestID string, stage ingest.Stage, req *ingest.Request) {
		log.Info("pipeline stage",
			logger.String("requestId", requestID),
			logger.String("stage", string(stage)),
			logger.String("regionId", req.RegionID))
	}
}
