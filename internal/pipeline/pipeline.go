// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one search-and-fetch job end to end: build the query,
// search, fetch every id through a strategy, then write the manifest and the
// run history.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/pmc-fetch/internal/acquire"
	"github.com/pdiddy/pmc-fetch/internal/history"
	"github.com/pdiddy/pmc-fetch/internal/manifest"
	"github.com/pdiddy/pmc-fetch/internal/search"
	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// Options configures one run.
type Options struct {
	Term  string
	Limit int

	Searcher *search.Client
	Fetcher  acquire.Fetcher

	// OutputDir overrides the directory derived from the term.
	OutputDir string

	Manifest       bool
	ManifestFormat types.ManifestFormat

	// History, when set, receives one record per run.
	History *history.Store

	Out io.Writer
	Log *zap.Logger
}

// Report describes a finished run.
type Report struct {
	Query        types.SearchQuery
	Search       search.Result
	OutputDir    string
	Batch        acquire.BatchResult
	ManifestPath string
	RunID        string
}

// Run executes the pipeline for opts.Term. A query or search failure is
// returned before anything touches the filesystem. An empty search result
// prints "No records found." and returns without creating the output
// directory. Per-record failures are reported in the batch, not as an error.
func Run(ctx context.Context, opts Options) (Report, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	var rep Report
	q, err := search.BuildQuery(opts.Term, opts.Limit)
	if err != nil {
		return rep, err
	}
	rep.Query = q

	started := time.Now()
	res, err := opts.Searcher.Search(ctx, q)
	if err != nil {
		log.Error("search failed", zap.String("term", q.Raw), zap.Error(err))
		return rep, fmt.Errorf("searching for %q: %w", q.Raw, err)
	}
	rep.Search = res
	log.Info("search complete",
		zap.String("term", q.Raw),
		zap.Int("ids", len(res.IDs)),
		zap.Int("count", res.Count))

	if len(res.IDs) == 0 {
		fmt.Fprintln(out, "No records found.")
		return rep, nil
	}

	rep.OutputDir = opts.OutputDir
	if rep.OutputDir == "" {
		rep.OutputDir = search.DefaultOutputDir(q)
	}
	fmt.Fprintf(out, "Found %d records for %q; saving to %s\n", len(res.IDs), q.Raw, rep.OutputDir)

	batch, err := acquire.Run(ctx, res.IDs, opts.Fetcher, rep.OutputDir, out, log)
	if err != nil {
		return rep, err
	}
	rep.Batch = batch

	if opts.Manifest {
		path, err := manifest.Write(batch.Results, rep.OutputDir, opts.ManifestFormat)
		if err != nil {
			return rep, err
		}
		if path != "" {
			rep.ManifestPath = path
			fmt.Fprintf(out, "Manifest: %s\n", path)
		}
	}

	if opts.History != nil {
		id, err := opts.History.RecordRun(ctx, history.Run{
			Term:       q.Raw,
			Strategy:   opts.Fetcher.Name(),
			Variant:    string(opts.Searcher.Config.Variant),
			OutputDir:  rep.OutputDir,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Fetched:    batch.Fetched,
			Skipped:    batch.Skipped,
		}, batch.Results)
		if err != nil {
			log.Warn("recording run history", zap.Error(err))
		} else {
			rep.RunID = id
			log.Debug("run recorded", zap.String("run_id", id))
		}
	}
	return rep, nil
}
