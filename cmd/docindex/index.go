package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperjump/docindex/internal/cli"
	"github.com/hyperjump/docindex/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	indexOutput    string
	indexRecursive bool
)

var indexCmd = &cobra.Command{
	Use:   "index <path>...",
	Short: "Clear the index and rebuild it from the given files and directories",
	Long: `Clear every configured index backend, then parse and walk each file
under the given paths in order, submit one record tree per file and commit once.
Directories expand to the supported files directly inside them (all levels
with --recursive). Exits non-zero if any path could not be read or the run failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(indexOutput)
		if err != nil {
			return err
		}
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		if cmd.Flags().Changed("recursive") {
			cfg.Source.Recursive = &indexRecursive
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runIndex(ctx, cfg, logger, args, cmd.OutOrStdout(), format)
	},
}

func init() {
	indexCmd.Flags().StringVarP(&indexOutput, "output", "o", "text", "output format: text or json")
	indexCmd.Flags().BoolVarP(&indexRecursive, "recursive", "r", false, "descend into subdirectories (overrides source.recursive)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger, paths []string, out io.Writer, format cli.OutputFormat) error {
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := components.Close(); cerr != nil {
			logger.Warn("closing backends failed", zap.Error(cerr))
		}
	}()

	report, runErr := components.Indexer.Run(ctx, paths)
	if report != nil {
		if err := cli.WriteReport(out, report, format); err != nil {
			return err
		}
	}
	return runErr
}
