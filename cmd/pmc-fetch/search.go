// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pmc-fetch/internal/httputil"
	"github.com/pdiddy/pmc-fetch/internal/search"
	"github.com/pdiddy/pmc-fetch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [term...]",
	Short: "Search PMC titles and print the matching record ids",
	Long: `Search sends the term to the NCBI esearch service and prints the PMC
record ids it returns, in server order, up to --max-results. Nothing is
downloaded.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, searchFlagKeys)
	},
	RunE: runSearch,
}

var searchFlagKeys = map[string]string{
	"max-results": "search.max_results",
	"variant":     "search.variant",
	"endpoint":    "search.endpoint",
}

func init() {
	addSearchFlags(searchCmd)
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-results", search.DefaultMaxResults, "maximum number of records to return")
	cmd.Flags().String("variant", string(types.VariantHistory), "search request form: history or title")
	cmd.Flags().String("endpoint", search.DefaultEndpoint, "esearch endpoint URL")
}

func newSearchClient(cfg types.SearchConfig) *search.Client {
	return search.NewClient(httputil.NewClient(cfg.HTTPConfig), cfg)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	q, err := search.BuildQuery(strings.Join(args, " "), cfg.Search.MaxResults)
	if err != nil {
		return err
	}

	res, err := newSearchClient(cfg.Search).Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return search.FormatJSON(res, cmd.OutOrStdout())
	}
	search.FormatTable(res, cmd.OutOrStdout())
	return nil
}
