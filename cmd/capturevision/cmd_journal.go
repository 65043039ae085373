package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"capturevision/internal/format"
)

var journalFlags struct {
	limit  int
	format string
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent capture attempts from the journal",
	Long:  `Lists capture attempts newest first. Requires --journal or journal.path in the config.`,
	Args:  cobra.NoArgs,
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().IntVarP(&journalFlags.limit, "limit", "n", 20, "Maximum entries (0 = all)")
	journalCmd.Flags().StringVar(&journalFlags.format, "format", "table", "Output format: table or markdown")
}

func runJournal(cmd *cobra.Command, _ []string) error {
	mode, err := tableMode(journalFlags.format)
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return errors.New("no journal configured (use --journal or journal.path)")
	}
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.Journal.List(journalFlags.limit)
	if err != nil {
		return fmt.Errorf("list journal: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.Journal(mode, entries))
	return nil
}
