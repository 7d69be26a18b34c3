package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/rickgao/stocksync/internal/auth"
	"github.com/rickgao/stocksync/internal/changes"
	"github.com/rickgao/stocksync/internal/config"
	"github.com/rickgao/stocksync/internal/database"
	"github.com/rickgao/stocksync/internal/model"
	"github.com/rickgao/stocksync/internal/poller"
	"github.com/rickgao/stocksync/internal/rates"
	"github.com/rickgao/stocksync/internal/sheets"
	"github.com/rickgao/stocksync/internal/store"
	"github.com/rickgao/stocksync/internal/syncer"
	"github.com/rickgao/stocksync/internal/transform"
	"github.com/rickgao/stocksync/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/stocksync.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional file of KEY=VALUE pairs loaded before the config")
	flag.Parse()

	// Bootstrap logger until the configured one is ready
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := config.LoadEnvFile(*envFile); err != nil {
		logger.Error("failed to load env file", "error", err, "path", *envFile)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	configured, err := newLogger(cfg.Log)
	if err != nil {
		logger.Error("invalid log config", "error", err)
		os.Exit(1)
	}
	logger = configured
	slog.SetDefault(logger)

	logger.Info("starting stocksync",
		"version", version.String(),
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("stocksync failed", "error", err)
		os.Exit(1)
	}

	logger.Info("stocksync stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	googleOpts, err := googleClientOptions(ctx, cfg.Sheet, logger)
	if err != nil {
		return err
	}

	source, err := sheets.NewSource(ctx, cfg.Sheet.SpreadsheetID, cfg.Sheet.Range, logger, googleOpts...)
	if err != nil {
		return err
	}
	feed, err := changes.NewFeed(ctx, logger, googleOpts...)
	if err != nil {
		return err
	}

	rateClient := rates.NewClient(
		cfg.Rates.BaseURL,
		rates.WithLogger(logger),
		rates.WithTimeout(cfg.Rates.Timeout),
		rates.WithRetries(cfg.Rates.MaxRetries, time.Second),
	)
	resolver := rates.NewResolver(rateClient, rates.NewCache(cfg.Rates.CacheSize), logger)

	policy, err := transform.ParseErrorPolicy(cfg.Transform.ErrorPolicy)
	if err != nil {
		return err
	}
	transformer := transform.New(resolver, cfg.Rates.CurrencyCode, logger, transform.WithErrorPolicy(policy))

	orch := syncer.New(source, transformer, st, logger)

	pollCfg := poller.Config{
		Interval: cfg.Poller.Interval,
		Timeout:  cfg.Poller.Timeout,
	}
	watcher := poller.New(pollCfg, feed, model.ResourceID(cfg.Sheet.SpreadsheetID), orch, logger)

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
		Handler:           newHealthHandler(st, orch, watcher, resolver, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := orch.Start(gctx, watcher); err != nil {
			return err
		}

		logger.Info("stocksync running",
			"spreadsheet_id", cfg.Sheet.SpreadsheetID,
			"interval", cfg.Poller.Interval,
			"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
		)

		<-gctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		return orch.Stop(stopCtx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore connects to the configured database. Failure here is fatal.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	storeCfg := store.Config{
		Table:     cfg.Store.Table,
		BatchSize: cfg.Store.BatchSize,
	}

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		logger.Info("opening sqlite database", "path", cfg.Database.SQLite.Path)

		db, err := database.OpenSQLite(ctx, cfg.Database.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		st, err := store.NewSQLite(storeCfg, db, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		return st, nil

	default:
		pg := cfg.Database.Postgres
		logger.Info("connecting to database",
			"host", pg.Host,
			"port", pg.Port,
			"database", pg.Name,
		)

		pool, err := database.Connect(ctx, pg, cfg.Instance.ID)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		st, err := store.NewPostgres(storeCfg, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected")
		return st, nil
	}
}

// googleClientOptions authenticates the Sheets and Drive clients.
// An endpoint override talks to an unauthenticated emulator instead.
func googleClientOptions(ctx context.Context, cfg config.SheetConfig, logger *slog.Logger) ([]option.ClientOption, error) {
	if cfg.Endpoint != "" {
		logger.Warn("using google api endpoint override without authentication", "endpoint", cfg.Endpoint)
		return []option.ClientOption{
			option.WithEndpoint(cfg.Endpoint),
			option.WithoutAuthentication(),
		}, nil
	}

	creds, err := auth.LoadCredentials(ctx, cfg.CredentialsFile, auth.Scopes...)
	if err != nil {
		return nil, err
	}
	logger.Info("google credentials loaded", "client_email", creds.ClientEmail)
	return creds.ClientOptions(), nil
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	default:
		return nil, fmt.Errorf("log.format must be text or json, got %q", cfg.Format)
	}
}
