package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/tmendes/orderimport/internal/config"
	"github.com/tmendes/orderimport/internal/filestore"
	"github.com/tmendes/orderimport/internal/importer"
	"github.com/tmendes/orderimport/internal/jobs"
	"github.com/tmendes/orderimport/internal/logging"
	"github.com/tmendes/orderimport/internal/store"
	"github.com/tmendes/orderimport/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional, real deployments set the environment directly.
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return err
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("database connected", "max_conns", poolCfg.MaxConns)

	if err := store.Migrate(ctx, pool); err != nil {
		return err
	}

	imports := store.NewImportStore(pool)
	entities := store.NewEntityStore(pool, cfg.Import.BatchSize)

	files, err := filestore.New(cfg.Upload.Dir)
	if err != nil {
		return err
	}

	pipeline := importer.NewPipeline(imports, entities, files)

	onExhausted := func(ctx context.Context, importID int64) {
		if err := imports.MarkFailed(ctx, importID); err != nil {
			slog.Error("failed to mark import failed", "import_id", importID, "error", err)
		}
	}

	runner := jobs.NewRunner(pipeline, imports, onExhausted, jobs.Config{
		RetryBudget:  cfg.Import.RetryBudget,
		RetryBackoff: cfg.Import.RetryBackoff,
		PollInterval: cfg.Import.PollInterval,
		QueueSize:    cfg.Import.QueueSize,
	})
	runner.Start(ctx)

	server := web.NewServer(imports, files, runner, entities, cfg)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.Server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
