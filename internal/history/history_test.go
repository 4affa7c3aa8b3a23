// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pmc-fetch/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"runs", "results"} {
		var count int
		require.NoError(t, s.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count))
		assert.Equal(t, 1, count, "table %s", table)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRecordRunRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	results := []types.FetchResult{
		{ID: "100", SourceURL: "https://x/100.pdf", LocalPath: "out/PMC_100.txt", Success: true},
		{ID: "101", Failure: types.FailureNoPDFLink, Err: "no PDF link found"},
	}
	id, err := s.RecordRun(ctx, Run{
		Term: "cystic fibrosis", Strategy: "scrape", Variant: "history", OutputDir: "out",
		StartedAt: start, FinishedAt: start.Add(3 * time.Second), Fetched: 1, Skipped: 1,
	}, results)
	require.NoError(t, err)
	assert.Len(t, id, 36, "uuid string")

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "cystic fibrosis", runs[0].Term)
	assert.True(t, runs[0].StartedAt.Equal(start))
	assert.Equal(t, 1, runs[0].Fetched)
	assert.Equal(t, 1, runs[0].Skipped)

	got, err := s.Results(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, results, got)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, term := range []string{"first", "second", "third"} {
		_, err := s.RecordRun(ctx, Run{
			Term: term, Strategy: "mirror-cli",
			StartedAt: base.Add(time.Duration(i) * time.Hour), FinishedAt: base,
		}, nil)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].Term)
	assert.Equal(t, "second", runs[1].Term)
}

func TestRecordRunKeepsGivenID(t *testing.T) {
	s := openTestStore(t)
	id, err := s.RecordRun(context.Background(), Run{ID: "fixed", Term: "t", Strategy: "scrape"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)

	_, err = s.RecordRun(context.Background(), Run{ID: "fixed", Term: "t", Strategy: "scrape"}, nil)
	assert.Error(t, err, "duplicate run id")
}

func TestFormatRuns(t *testing.T) {
	var buf bytes.Buffer
	FormatRuns(&buf, nil)
	assert.Equal(t, "No runs recorded.\n", buf.String())

	buf.Reset()
	FormatRuns(&buf, []Run{{ID: "abc", Term: "asthma", Strategy: "scrape", Fetched: 2, Skipped: 1}})
	assert.Contains(t, buf.String(), "STRATEGY")
	assert.Contains(t, buf.String(), "asthma")
	assert.Contains(t, buf.String(), "abc")
}
