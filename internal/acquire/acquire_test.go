// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// fakeFetcher serves canned documents and fails the ids listed in failures.
type fakeFetcher struct {
	docs     map[types.RecordID]string
	failures map[types.RecordID]error
	calls    []types.RecordID
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) FileName(id types.RecordID) string { return "PMC_" + string(id) + ".txt" }

func (f *fakeFetcher) Fetch(_ context.Context, id types.RecordID) (types.Document, error) {
	f.calls = append(f.calls, id)
	doc := types.Document{SourceURL: "https://example.test/" + string(id)}
	if err, ok := f.failures[id]; ok {
		return doc, err
	}
	doc.Text = []byte(f.docs[id])
	return doc, nil
}

func ids(ss ...string) []types.RecordID {
	out := make([]types.RecordID, len(ss))
	for i, s := range ss {
		out[i] = types.RecordID(s)
	}
	return out
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunAllSucceed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cystic_fibrosis")
	f := &fakeFetcher{docs: map[types.RecordID]string{
		"100": "text one", "101": "text two", "102": "text three",
	}}
	var buf bytes.Buffer

	res, err := Run(context.Background(), ids("100", "101", "102"), f, dir, &buf, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Fetched != 3 || res.Skipped != 0 {
		t.Errorf("fetched=%d skipped=%d, want 3/0", res.Fetched, res.Skipped)
	}
	if len(res.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(res.Results))
	}

	for i, id := range []string{"100", "101", "102"} {
		r := res.Results[i]
		if string(r.ID) != id || !r.Success || r.Status() != types.StatusFetched {
			t.Errorf("Results[%d] = %+v", i, r)
		}
		want := filepath.Join(dir, "PMC_"+id+".txt")
		if r.LocalPath != want {
			t.Errorf("LocalPath = %q, want %q", r.LocalPath, want)
		}
		data, err := os.ReadFile(want)
		if err != nil {
			t.Fatalf("reading output: %v", err)
		}
		if string(data) != f.docs[types.RecordID(id)] {
			t.Errorf("content = %q", data)
		}
	}
	if !strings.Contains(buf.String(), "Batch summary: 3 fetched, 0 skipped (total: 3)") {
		t.Errorf("missing summary in output:\n%s", buf.String())
	}
}

func TestRunContinuesAfterItemFailure(t *testing.T) {
	failures := []struct {
		name string
		err  error
		kind types.FailureKind
	}{
		{"network", types.Fail(types.FailureNetwork, errors.New("connection refused")), types.FailureNetwork},
		{"missing pdf", types.Fail(types.FailureNoPDFLink, errors.New("no anchor")), types.FailureNoPDFLink},
		{"copy exit", types.Fail(types.FailureCopyFailed, errors.New("exit status 1")), types.FailureCopyFailed},
		{"untyped", errors.New("boom"), types.FailureNetwork},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			f := &fakeFetcher{
				docs:     map[types.RecordID]string{"1": "a", "2": "b", "3": "c", "4": "d"},
				failures: map[types.RecordID]error{"3": tt.err},
			}
			var buf bytes.Buffer

			res, err := Run(context.Background(), ids("1", "2", "3", "4"), f, dir, &buf, nil)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if len(f.calls) != 4 {
				t.Errorf("fetcher called %d times, want 4", len(f.calls))
			}
			if res.Fetched != 3 || res.Skipped != 1 {
				t.Errorf("fetched=%d skipped=%d, want 3/1", res.Fetched, res.Skipped)
			}

			bad := res.Results[2]
			if bad.Success || bad.Failure != tt.kind || bad.Status() != types.StatusSkipped {
				t.Errorf("failed result = %+v, want kind %s", bad, tt.kind)
			}
			if bad.LocalPath != "" {
				t.Errorf("failed item has LocalPath %q", bad.LocalPath)
			}

			files := listFiles(t, dir)
			want := []string{"PMC_1.txt", "PMC_2.txt", "PMC_4.txt"}
			if strings.Join(files, ",") != strings.Join(want, ",") {
				t.Errorf("files = %v, want %v", files, want)
			}
			if !strings.Contains(buf.String(), "skipped: 3") {
				t.Errorf("output missing skip line:\n%s", buf.String())
			}
		})
	}
}

func TestRunEmptyDocumentIsSkipped(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{docs: map[types.RecordID]string{"1": "  \n\t"}}

	res, err := Run(context.Background(), ids("1"), f, dir, &bytes.Buffer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Results[0].Failure != types.FailureEmptyDocument {
		t.Errorf("result = %+v", res.Results[0])
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("files = %v, want none", files)
	}
}

func TestRunNoIDsCreatesNothingButDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res, err := Run(context.Background(), nil, &fakeFetcher{}, dir, &bytes.Buffer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total() != 0 || len(res.Successful()) != 0 {
		t.Errorf("res = %+v", res)
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("files = %v, want none", files)
	}
}

func TestRunOutputDirFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := &fakeFetcher{}

	_, err := Run(context.Background(), ids("1"), f, filepath.Join(blocker, "sub"), &bytes.Buffer{}, nil)
	if err == nil {
		t.Fatal("expected error when output dir cannot be created")
	}
	if len(f.calls) != 0 {
		t.Errorf("fetcher called %d times before dir creation failed", len(f.calls))
	}
}

func TestFetchOneIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	f := &fakeFetcher{docs: map[types.RecordID]string{"7654321": "same content\n"}}

	first := FetchOne(context.Background(), f, "7654321", dir)
	a, err := os.ReadFile(first.LocalPath)
	if err != nil {
		t.Fatal(err)
	}
	second := FetchOne(context.Background(), f, "7654321", dir)
	b, err := os.ReadFile(second.LocalPath)
	if err != nil {
		t.Fatal(err)
	}

	if first.LocalPath != second.LocalPath {
		t.Errorf("paths differ: %q vs %q", first.LocalPath, second.LocalPath)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("content differs across runs")
	}
	if files := listFiles(t, dir); len(files) != 1 {
		t.Errorf("files = %v, want exactly one (no temp leftovers)", files)
	}
}

func TestBatchResultSuccessful(t *testing.T) {
	r := BatchResult{
		Fetched: 2,
		Skipped: 1,
		Results: []types.FetchResult{
			{ID: "1", Success: true},
			{ID: "2", Failure: types.FailureNetwork},
			{ID: "3", Success: true},
		},
	}
	ok := r.Successful()
	if len(ok) != 2 || ok[0].ID != "1" || ok[1].ID != "3" {
		t.Errorf("Successful() = %+v", ok)
	}
	if !r.HasFailures() || r.Total() != 3 {
		t.Errorf("HasFailures=%v Total=%d", r.HasFailures(), r.Total())
	}
}

func TestKindOf(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), types.Fail(types.FailureMalformedPDF, errors.New("bad xref")))
	if got := KindOf(wrapped); got != types.FailureMalformedPDF {
		t.Errorf("KindOf(wrapped) = %q", got)
	}
	if got := KindOf(nil); got != types.FailureNone {
		t.Errorf("KindOf(nil) = %q", got)
	}
}

// rawNameFetcher names each output file after the bare id.
type rawNameFetcher struct{ fakeFetcher }

func (f *rawNameFetcher) FileName(id types.RecordID) string { return string(id) }

func TestRunRefusesNamesOutsideOutputDir(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	f := &rawNameFetcher{fakeFetcher{docs: map[types.RecordID]string{
		"/../../escaped": "text", "..": "text", `..\x`: "text", "ok.txt": "text",
	}}}
	var buf bytes.Buffer

	res, err := Run(context.Background(), ids("/../../escaped", "..", `..\x`, "ok.txt"), f, out, &buf, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Fetched != 1 || res.Skipped != 3 {
		t.Fatalf("fetched=%d skipped=%d, want 1/3\n%s", res.Fetched, res.Skipped, buf.String())
	}
	for _, r := range res.Results[:3] {
		if r.Success || r.Failure != types.FailureWriteFailed {
			t.Errorf("%s: success=%v failure=%q, want write_failed", r.ID, r.Success, r.Failure)
		}
	}
	if got := listFiles(t, root); len(got) != 1 || got[0] != "out" {
		t.Errorf("files in parent dir = %v, want only out", got)
	}
	if got := listFiles(t, out); len(got) != 1 || got[0] != "ok.txt" {
		t.Errorf("files in out = %v", got)
	}
}

func TestRunLogsSuccessAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := &fakeFetcher{
		docs:     map[types.RecordID]string{"100": "text"},
		failures: map[types.RecordID]error{"101": types.Fail(types.FailureNetwork, errors.New("reset"))},
	}
	var buf bytes.Buffer

	if _, err := Run(context.Background(), ids("100", "101"), f, t.TempDir(), &buf, zap.New(core)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := logs.FilterMessage("record fetched").Len(); n != 0 {
		t.Errorf("got %d info entries for fetched records, want 0", n)
	}
	skipped := logs.FilterMessage("record skipped").All()
	if len(skipped) != 1 || skipped[0].Level != zapcore.WarnLevel {
		t.Fatalf("skipped entries = %+v, want one warning", skipped)
	}
	if got := skipped[0].ContextMap()["id"]; got != "101" {
		t.Errorf("skipped id = %v, want 101", got)
	}
	if !strings.Contains(buf.String(), "fetched: ") {
		t.Errorf("progress output missing fetched line:\n%s", buf.String())
	}
}
