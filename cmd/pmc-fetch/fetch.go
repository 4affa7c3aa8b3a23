// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pmc-fetch/internal/acquire"
	"github.com/pdiddy/pmc-fetch/internal/command"
	"github.com/pdiddy/pmc-fetch/internal/convert"
	"github.com/pdiddy/pmc-fetch/internal/history"
	"github.com/pdiddy/pmc-fetch/internal/httputil"
	"github.com/pdiddy/pmc-fetch/internal/mirror"
	"github.com/pdiddy/pmc-fetch/internal/pipeline"
	"github.com/pdiddy/pmc-fetch/internal/scrape"
	"github.com/pdiddy/pmc-fetch/pkg/types"
)

const (
	strategyMirror = "mirror"
	strategyScrape = "scrape"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [term...]",
	Short: "Search PMC and save the full text of every hit",
	Long: `Fetch searches PMC titles for the term, then saves the full text of each
returned record into the output directory (by default a directory named after
the term). Records that fail are reported and skipped; the run continues.

Strategies:
  mirror  copy PMC<id>.txt from the PMC open-access bucket (aws CLI or HTTPS)
  scrape  download the article PDF from the PMC website and extract its text

When no term is given, fetch prompts for one.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, fetchFlagKeys)
	},
	RunE: runFetch,
}

var fetchFlagKeys = map[string]string{
	"strategy":        "fetch.strategy",
	"max-results":     "search.max_results",
	"variant":         "search.variant",
	"endpoint":        "search.endpoint",
	"mirror-mode":     "mirror.mode",
	"extractor":       "scrape.extractor",
	"output-dir":      "output.dir",
	"manifest":        "output.manifest",
	"manifest-format": "output.manifest_format",
	"history-db":      "output.history_db",
}

func init() {
	addSearchFlags(fetchCmd)
	f := fetchCmd.Flags()
	f.String("strategy", strategyScrape, "fetch strategy: mirror or scrape")
	f.String("mirror-mode", string(types.MirrorCLI), "mirror transport: cli (aws s3 cp) or https")
	f.String("extractor", string(types.ExtractorPDFCPU), "PDF text extractor: pdfcpu or pdftotext")
	f.String("output-dir", "", "output directory (default: derived from the term)")
	f.Bool("manifest", false, "write downloaded_articles.<format> (default: on for scrape, off for mirror)")
	f.String("manifest-format", string(types.ManifestCSV), "manifest format: csv, xlsx, or yaml")
	f.String("history-db", "", "record the run in this SQLite database")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	term := strings.Join(args, " ")
	if term == "" {
		var err error
		if term, err = promptTerm(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	cfg := loadConfig()
	strategy := fetchStrategy()
	fetcher, err := newFetcher(strategy, cfg, command.Default)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Term:           term,
		Limit:          cfg.Search.MaxResults,
		Searcher:       newSearchClient(cfg.Search),
		Fetcher:        fetcher,
		OutputDir:      cfg.Output.Dir,
		Manifest:       manifestEnabled(strategy),
		ManifestFormat: cfg.Output.ManifestFormat,
		Out:            cmd.OutOrStdout(),
		Log:            logger,
	}

	if cfg.Output.HistoryDB != "" {
		store, err := history.Open(cfg.Output.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.History = store
	}

	rep, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	logger.Info("run finished",
		zap.String("term", rep.Query.Raw),
		zap.String("strategy", fetcher.Name()),
		zap.Int("fetched", rep.Batch.Fetched),
		zap.Int("skipped", rep.Batch.Skipped),
		zap.String("run_id", rep.RunID))
	return nil
}

// promptTerm asks for a search term on w and reads one line from r.
func promptTerm(r io.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, "Enter search term: ")
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading search term: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// fetchStrategy returns the configured strategy: --strategy, the
// PMC_FETCH_FETCH_STRATEGY variable, or fetch.strategy in the config file.
func fetchStrategy() string {
	return viper.GetString("fetch.strategy")
}

// newFetcher builds the fetch strategy named by strategy.
func newFetcher(strategy string, cfg types.PipelineConfig, runner command.Runner) (acquire.Fetcher, error) {
	switch strategy {
	case strategyMirror:
		switch cfg.Mirror.Mode {
		case "", types.MirrorCLI:
			f, err := mirror.NewCLIFetcher(cfg.Mirror, runner)
			if err != nil {
				return nil, err
			}
			return f, nil
		case types.MirrorHTTPS:
			return mirror.NewHTTPFetcher(cfg.Mirror, httputil.NewClient(cfg.Mirror.HTTPConfig)), nil
		default:
			return nil, fmt.Errorf("unknown mirror mode %q (want cli or https)", cfg.Mirror.Mode)
		}
	case strategyScrape:
		ex, err := convert.New(cfg.Scrape.Extractor, runner)
		if err != nil {
			return nil, err
		}
		return scrape.NewFetcher(cfg.Scrape, httputil.NewClient(cfg.Scrape.HTTPConfig), ex), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want mirror or scrape)", strategy)
	}
}
