package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskb/poliq/internal/core/ports/driving"
)

func indexDeps(ingest *fakeIngest) Dependencies {
	return Dependencies{NewIngest: func(string) (driving.IngestOrchestrator, error) {
		return ingest, nil
	}}
}

func resetIndexFlags() {
	indexDir = ""
	indexRebuild = false
	indexWatch = false
}

func TestIndexCmd_ReportsCounts(t *testing.T) {
	defer resetIndexFlags()
	ingest := &fakeIngest{report: &driving.RebuildReport{
		Ingested: 3, Chunks: 42, Unchanged: 1, Removed: 2,
	}}

	withDeps(indexDeps(ingest), func() {
		out, err := execute("index", "--dir", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, out, "Indexed 3 document(s) (42 chunks), 1 unchanged, 2 removed.")
	})

	require.Len(t, ingest.rebuilds, 1)
	assert.False(t, ingest.rebuilds[0].Force)
}

func TestIndexCmd_RebuildFlagForces(t *testing.T) {
	defer resetIndexFlags()
	ingest := &fakeIngest{report: &driving.RebuildReport{}}

	withDeps(indexDeps(ingest), func() {
		_, err := execute("index", "--dir", t.TempDir(), "--rebuild")
		require.NoError(t, err)
	})

	require.Len(t, ingest.rebuilds, 1)
	assert.True(t, ingest.rebuilds[0].Force)
}

func TestIndexCmd_WarnsOnSkippedPages(t *testing.T) {
	defer resetIndexFlags()
	ingest := &fakeIngest{report: &driving.RebuildReport{Ingested: 1, SkippedPages: 4}}

	withDeps(indexDeps(ingest), func() {
		out, err := execute("index", "--dir", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, out, "4 page(s) could not be parsed")
	})
}

func TestIndexCmd_MissingDirectory(t *testing.T) {
	defer resetIndexFlags()
	ingest := &fakeIngest{report: &driving.RebuildReport{}}

	withDeps(indexDeps(ingest), func() {
		_, err := execute("index", "--dir", "/nonexistent/policies/dir")
		assert.Error(t, err)
	})
	assert.Empty(t, ingest.rebuilds)
}

func TestIndexCmd_RebuildError(t *testing.T) {
	defer resetIndexFlags()
	ingest := &fakeIngest{err: errors.New("store unavailable")}

	withDeps(indexDeps(ingest), func() {
		_, err := execute("index", "--dir", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store unavailable")
	})
}

func TestIndexCmd_NotConfigured(t *testing.T) {
	defer resetIndexFlags()
	withDeps(Dependencies{}, func() {
		_, err := execute("index", "--dir", t.TempDir())
		assert.Error(t, err)
	})
}
