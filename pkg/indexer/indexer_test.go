package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/predicato/pkg/catalog"
)

type recordingProcessor struct {
	mu        sync.Mutex
	processed []string
	failOn    map[string]bool
}

func (p *recordingProcessor) ProcessDocument(ctx context.Context, filePath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, filePath)
	if p.failOn[filepath.Base(filePath)] {
		return fmt.Errorf("boom")
	}
	return nil
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(filepath.Join(t.TempDir(), "idx.db"))
	require.NoError(t, err)
	return c
}

func TestScanAndUpdateStatus_InsertsNewFilesAsPending(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("aaa"), 0o644))
	cat := newTestCatalog(t)

	ix := New(dir, cat, &recordingProcessor{}, time.Hour, 5)
	require.NoError(t, ix.scanAndUpdateStatus(context.Background()))

	got, err := cat.Get(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusPending, got.Status)
}

func TestScanAndUpdateStatus_ResetsModifiedFileToPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("aaa"), 0o644))
	cat := newTestCatalog(t)
	ix := New(dir, cat, &recordingProcessor{}, time.Hour, 5)

	ctx := context.Background()
	require.NoError(t, ix.scanAndUpdateStatus(ctx))
	require.NoError(t, cat.UpdateField(ctx, "a.pdf", "status", string(catalog.StatusIndexed)))

	require.NoError(t, os.WriteFile(path, []byte("changed content"), 0o644))
	require.NoError(t, ix.scanAndUpdateStatus(ctx))

	got, err := cat.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusPending, got.Status)
}

func TestScanAndUpdateStatus_UnchangedFileLeftAlone(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("aaa"), 0o644))
	cat := newTestCatalog(t)
	ix := New(dir, cat, &recordingProcessor{}, time.Hour, 5)

	ctx := context.Background()
	require.NoError(t, ix.scanAndUpdateStatus(ctx))
	require.NoError(t, cat.UpdateField(ctx, "a.pdf", "status", string(catalog.StatusIndexed)))

	require.NoError(t, ix.scanAndUpdateStatus(ctx))

	got, err := cat.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusIndexed, got.Status)
}

func TestProcessPendingFiles_RespectsMaxBatchSize(t *testing.T) {
	dir := t.TempDir()
	cat := newTestCatalog(t)
	ctx := context.Background()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		require.NoError(t, cat.Upsert(ctx, catalog.IndexStatus{
			FilePath: name, FileHash: "h", Status: catalog.StatusPending,
			FileSize: 1, LastModified: time.Now().UTC(),
		}))
	}
	proc := &recordingProcessor{}
	ix := New(dir, cat, proc, time.Hour, 2)

	require.NoError(t, ix.processPendingFiles(ctx))

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.Len(t, proc.processed, 2)
}

func TestProcessSingleFile_SuccessMarksIndexed(t *testing.T) {
	dir := t.TempDir()
	cat := newTestCatalog(t)
	ctx := context.Background()
	status := catalog.IndexStatus{FilePath: "a.pdf", FileHash: "h", Status: catalog.StatusPending, FileSize: 1, LastModified: time.Now().UTC()}
	require.NoError(t, cat.Upsert(ctx, status))

	ix := New(dir, cat, &recordingProcessor{}, time.Hour, 5)
	ix.processSingleFile(ctx, status)

	got, err := cat.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusIndexed, got.Status)
	assert.NotNil(t, got.IndexedAt)
	assert.Nil(t, got.ErrorMessage)
}

func TestProcessSingleFile_FailureMarksFailedWithMessage(t *testing.T) {
	dir := t.TempDir()
	cat := newTestCatalog(t)
	ctx := context.Background()
	status := catalog.IndexStatus{FilePath: "bad.pdf", FileHash: "h", Status: catalog.StatusPending, FileSize: 1, LastModified: time.Now().UTC()}
	require.NoError(t, cat.Upsert(ctx, status))

	proc := &recordingProcessor{failOn: map[string]bool{"bad.pdf": true}}
	ix := New(dir, cat, proc, time.Hour, 5)
	ix.processSingleFile(ctx, status)

	got, err := cat.Get(ctx, "bad.pdf")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "boom")
}

func TestProcessSingleFile_SkipsIfNotPending(t *testing.T) {
	dir := t.TempDir()
	cat := newTestCatalog(t)
	ctx := context.Background()
	status := catalog.IndexStatus{FilePath: "a.pdf", FileHash: "h", Status: catalog.StatusIndexed, FileSize: 1, LastModified: time.Now().UTC()}
	require.NoError(t, cat.Upsert(ctx, status))

	proc := &recordingProcessor{}
	ix := New(dir, cat, proc, time.Hour, 5)
	ix.processSingleFile(ctx, status)

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.Empty(t, proc.processed)
}

func TestIndexer_StartStop_TriggerIndexRunsIteration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("aaa"), 0o644))
	cat := newTestCatalog(t)
	proc := &recordingProcessor{}
	ix := New(dir, cat, proc, time.Hour, 5)

	ix.Start(context.Background())
	ix.TriggerIndex()

	require.Eventually(t, func() bool {
		proc.mu.Lock()
		defer proc.mu.Unlock()
		return len(proc.processed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ix.Stop()
}
