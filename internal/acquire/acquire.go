// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire runs the fetch-and-persist loop: one record at a time,
// through a pluggable fetch strategy, into one text file per record.
package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// Fetcher obtains the full text of one record. The object-storage mirror and
// the scrape-and-convert strategy implement this interface.
type Fetcher interface {
	// Name identifies the strategy in logs and run history.
	Name() string

	// FileName returns the output file name for id. It must be a pure
	// function of id so that distinct ids never collide.
	FileName(id types.RecordID) string

	// Fetch returns the document text for id. Failures should be reported
	// as *types.FetchError so the pipeline can record their kind.
	Fetch(ctx context.Context, id types.RecordID) (types.Document, error)
}

// BatchResult holds the outcome of a fetch run.
type BatchResult struct {
	Fetched int
	Skipped int
	Results []types.FetchResult
}

// Total returns the number of ids processed.
func (r BatchResult) Total() int {
	return r.Fetched + r.Skipped
}

// HasFailures reports whether any item was skipped.
func (r BatchResult) HasFailures() bool {
	return r.Skipped > 0
}

// Successful returns the results of the fetched items, in run order.
func (r BatchResult) Successful() []types.FetchResult {
	var out []types.FetchResult
	for _, res := range r.Results {
		if res.Success {
			out = append(out, res)
		}
	}
	return out
}

// Run creates outDir and then fetches every id in order, writing one file
// per successful item. It never stops early on an item failure: the item is
// logged, recorded as skipped, and the loop moves on. The only error Run
// returns is a failure to create outDir, before anything is fetched.
func Run(ctx context.Context, ids []types.RecordID, f Fetcher, outDir string, w io.Writer, log *zap.Logger) (BatchResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("creating output directory %s: %w", outDir, err)
	}

	log = log.With(zap.String("strategy", f.Name()))
	result := BatchResult{Results: make([]types.FetchResult, 0, len(ids))}
	for i, id := range ids {
		fmt.Fprintf(w, "[%d/%d] PMC%s\n", i+1, len(ids), id)

		res := FetchOne(ctx, f, id, outDir)
		result.Results = append(result.Results, res)
		if res.Success {
			result.Fetched++
			fmt.Fprintf(w, "fetched: %s\n", res.LocalPath)
			log.Debug("record fetched",
				zap.String("id", id.String()),
				zap.String("source_url", res.SourceURL),
				zap.String("path", res.LocalPath))
			continue
		}
		result.Skipped++
		fmt.Fprintf(w, "skipped: %s (%s)\n", id, res.Err)
		log.Warn("record skipped",
			zap.String("id", id.String()),
			zap.String("failure", string(res.Failure)),
			zap.String("source_url", res.SourceURL),
			zap.String("error", res.Err))
	}

	fmt.Fprintf(w, "\nBatch summary: %d fetched, %d skipped (total: %d)\n",
		result.Fetched, result.Skipped, result.Total())
	return result, nil
}

// FetchOne fetches a single id and persists its text under outDir. The
// returned result is final; a failed item leaves no file behind.
func FetchOne(ctx context.Context, f Fetcher, id types.RecordID, outDir string) types.FetchResult {
	res := types.FetchResult{ID: id}

	doc, err := f.Fetch(ctx, id)
	res.SourceURL = doc.SourceURL
	if err != nil {
		return failed(res, err)
	}
	if len(bytes.TrimSpace(doc.Text)) == 0 {
		return failed(res, types.Fail(types.FailureEmptyDocument, errors.New("document has no text")))
	}

	name := f.FileName(id)
	if !isPlainFileName(name) {
		return failed(res, types.Fail(types.FailureWriteFailed,
			fmt.Errorf("file name %q for record %s is not a plain file name", name, id)))
	}
	path := filepath.Join(outDir, name)
	if err := writeFile(path, doc.Text); err != nil {
		return failed(res, types.Fail(types.FailureWriteFailed, err))
	}

	res.LocalPath = path
	res.Success = true
	return res
}

// isPlainFileName reports whether name stays inside the directory it is
// joined to.
func isPlainFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func failed(res types.FetchResult, err error) types.FetchResult {
	res.Success = false
	res.Failure = KindOf(err)
	res.Err = err.Error()
	return res
}

// KindOf returns the failure kind carried by err. Errors that are not
// *types.FetchError count as network failures.
func KindOf(err error) types.FailureKind {
	if err == nil {
		return types.FailureNone
	}
	var fe *types.FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return types.FailureNetwork
}

// writeFile writes data to a temporary file beside destPath and renames it
// into place, so a reader never sees a partial file.
func writeFile(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", destPath, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
