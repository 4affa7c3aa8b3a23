// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pmc-fetch/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded fetch runs, or the results of one run",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, map[string]string{"history-db": "output.history_db"})
	},
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("history-db", "", "SQLite run-history database")
	historyCmd.Flags().Int("limit", history.DefaultListLimit, "number of runs to list")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := loadConfig().Output.HistoryDB
	if path == "" {
		return errors.New("no history database configured (use --history-db or output.history_db)")
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if len(args) == 1 {
		results, err := store.Results(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("no results recorded for run %s", args[0])
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tFAILURE\tPATH")
		for _, r := range results {
			fmt.Fprintf(tw, "PMC%s\t%s\t%s\t%s\n", r.ID, r.Status(), r.Failure, r.LocalPath)
		}
		return tw.Flush()
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	history.FormatRuns(w, runs)
	return nil
}
