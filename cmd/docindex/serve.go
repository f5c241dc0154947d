package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/docindex/internal/server"
	"github.com/hyperjump/docindex/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the status API and rebuild the index when sources change",
	Long: `Serve the HTTP API (health, status, reindex, stored record trees).
When watch.directories is set, the index is rebuilt from those directories at
startup and again after every burst of changes to supported files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := components.Close(); cerr != nil {
				logger.Warn("closing backends failed", zap.Error(cerr))
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var store server.RecordStore
		if components.Store != nil {
			store = components.Store
		}
		var srv *server.Server
		var watch server.WatchService
		var watchSvc *watcher.Watcher
		if len(cfg.Watch.Directories) > 0 {
			exts := cfg.Source.Extensions
			if len(exts) == 0 {
				exts = components.Parsers.Extensions()
			}
			rebuild := func(changed []string) {
				logger.Info("rebuilding after change", zap.Strings("changed", changed))
				if _, err := srv.Reindex(ctx); err != nil {
					logger.Error("rebuild failed", zap.Error(err))
				}
			}
			watchSvc = watcher.NewWatcher(cfg.Watch.Directories, rebuild,
				watcher.WithLogger(logger),
				watcher.WithDebounce(cfg.Watch.Debounce),
				watcher.WithExtensions(exts),
				watcher.WithRecursive(cfg.Source.RecursiveOrDefault()),
			)
			watch = watchSvc
		}

		srv = server.NewServer(components.Indexer, store, cfg.Watch.Directories, cfg, watch, logger)

		if watchSvc != nil {
			if err := watchSvc.Start(ctx); err != nil {
				return err
			}
			defer watchSvc.Stop()
			go func() {
				if _, err := srv.Reindex(ctx); err != nil {
					logger.Error("initial rebuild failed", zap.Error(err))
				}
			}()
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
		}

		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
