package main

import (
	"fmt"

	"github.com/hyperjump/docindex/internal/cli"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the record tree of one file as JSON without touching any index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		doc, err := newParsers(cfg).ParseFile(args[0])
		if err != nil {
			return err
		}
		res, err := newWalker(cfg, logger).Walk(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return cli.WriteJSON(cmd.OutOrStdout(), res.Root)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
