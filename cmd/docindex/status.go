package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/docindex/internal/cli"
	"github.com/hyperjump/docindex/internal/config"
	"github.com/hyperjump/docindex/internal/server"
	"github.com/hyperjump/docindex/internal/sink"
	"github.com/spf13/cobra"
)

var (
	statusOutput    string
	statusServerURL string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the record count and the last run",
	Long: `Show the number of stored records and a summary of the last run, read
from the sqlite record store, or from a running server with --server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(statusOutput)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var st *cli.Status
		if statusServerURL != "" {
			st, err = statusViaHTTP(ctx, statusServerURL)
		} else {
			cfg, logger, serr := setup()
			if serr != nil {
				return serr
			}
			defer logger.Sync()
			st, err = localStatus(ctx, cfg)
		}
		if err != nil {
			return err
		}
		return cli.WriteStatus(cmd.OutOrStdout(), st, format)
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "output format: text or json")
	statusCmd.Flags().StringVar(&statusServerURL, "server", "", "read status from a running server (e.g. http://localhost:8080)")
	rootCmd.AddCommand(statusCmd)
}

func localStatus(ctx context.Context, cfg *config.Config) (*cli.Status, error) {
	if !cfg.Index.Uses(config.BackendSQLite) {
		return nil, fmt.Errorf("status needs the %s backend enabled", config.BackendSQLite)
	}
	store, err := sink.NewSQLiteStore(cfg.Index.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	defer store.Close()

	n, err := store.CountRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records failed: %w", err)
	}
	st := &cli.Status{Records: n, DatabasePath: cfg.Index.DatabasePath}
	if cfg.Index.Uses(config.BackendBleve) {
		st.BleveIndexPath = cfg.Index.BleveIndexPath
	}
	last, err := store.LastRun(ctx)
	switch {
	case err == nil:
		st.LastRun = last
	case !errors.Is(err, sink.ErrNotFound):
		return nil, fmt.Errorf("last run lookup failed: %w", err)
	}
	if bytes, err := sink.DiskUsage(cfg.Index.DatabasePath, st.BleveIndexPath); err == nil {
		st.DiskUsageBytes = bytes
	}
	return st, nil
}

func statusViaHTTP(ctx context.Context, serverURL string) (*cli.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(serverURL, "/")+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var remote server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	st := &cli.Status{LastRun: remote.LastRun}
	if remote.Records != nil {
		st.Records = *remote.Records
	}
	if remote.DiskUsageBytes != nil {
		st.DiskUsageBytes = *remote.DiskUsageBytes
	}
	return st, nil
}
