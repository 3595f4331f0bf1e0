package indexer

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/soundprediction/predicato/pkg/catalog"
	"github.com/soundprediction/predicato/pkg/scanner"
	"github.com/soundprediction/predicato/pkg/utils"
)

// DocumentProcessor runs one file through the document ingestion pipeline.
// A non-nil error marks the file failed; its message is stored verbatim on
// the catalog row.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, filePath string) error
}

// Indexer periodically reconciles the upload directory against the
// catalog and dispatches pending files to a DocumentProcessor.
type Indexer struct {
	uploadDir        string
	catalog          *catalog.Catalog
	processor        DocumentProcessor
	scanInterval     time.Duration
	maxFilesPerBatch int

	triggerC chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New constructs an Indexer. Call Start to begin the periodic loop.
func New(uploadDir string, cat *catalog.Catalog, processor DocumentProcessor, scanInterval time.Duration, maxFilesPerBatch int) *Indexer {
	if scanInterval <= 0 {
		scanInterval = 30 * time.Second
	}
	if maxFilesPerBatch <= 0 {
		maxFilesPerBatch = 5
	}
	return &Indexer{
		uploadDir:        uploadDir,
		catalog:          cat,
		processor:        processor,
		scanInterval:     scanInterval,
		maxFilesPerBatch: maxFilesPerBatch,
		triggerC:         make(chan struct{}, 1),
		done:             make(chan struct{}),
	}
}

// Start launches the background scan/process loop. It returns immediately;
// the loop runs until the parent context is cancelled or Stop is called.
func (ix *Indexer) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	ix.cancel = cancel
	utils.SafeGo(func() { ix.run(runCtx) }, func(err error) {
		slog.Error("indexer loop crashed", "error", err)
	})
}

// Stop cancels the loop and waits for it to exit.
func (ix *Indexer) Stop() {
	ix.stopOnce.Do(func() {
		if ix.cancel != nil {
			ix.cancel()
		}
		<-ix.done
	})
}

// TriggerIndex requests an out-of-band scan/process pass. It is
// non-blocking: a trigger already pending is sufficient, so a second
// concurrent call is dropped rather than queued.
func (ix *Indexer) TriggerIndex() {
	select {
	case ix.triggerC <- struct{}{}:
	default:
	}
}

func (ix *Indexer) run(ctx context.Context) {
	defer close(ix.done)
	slog.Info("background indexer started", "scan_interval", ix.scanInterval, "max_files_per_batch", ix.maxFilesPerBatch)

	ticker := time.NewTicker(ix.scanInterval)
	defer ticker.Stop()

	for {
		ix.runIteration(ctx)

		select {
		case <-ctx.Done():
			slog.Info("background indexer shutting down")
			return
		case <-ticker.C:
		case <-ix.triggerC:
		}
	}
}

// runIteration performs one scan-and-dispatch pass, isolating any failure
// with panic recovery so it cannot kill the loop.
func (ix *Indexer) runIteration(ctx context.Context) {
	defer utils.RecoverWithCallback(func(err error) {
		slog.Error("indexer iteration panicked", "error", err)
	})

	if err := ix.scanAndUpdateStatus(ctx); err != nil {
		slog.Error("error during directory scan", "error", err)
		return
	}
	if err := ix.processPendingFiles(ctx); err != nil {
		slog.Error("error during pending file processing", "error", err)
	}
}

// scanAndUpdateStatus compares the files on disk against the catalog: new
// files are inserted pending, files whose content hash changed are reset to
// pending, and unchanged files are left alone.
func (ix *Indexer) scanAndUpdateStatus(ctx context.Context) error {
	found := scanner.ScanUploadDirectory(ix.uploadDir)
	slog.Debug("upload directory scan complete", "files_found", len(found))

	existing, err := ix.catalog.List(ctx)
	if err != nil {
		return err
	}
	byPath := make(map[string]catalog.IndexStatus, len(existing))
	for _, s := range existing {
		byPath[s.FilePath] = s
	}

	for _, meta := range found {
		current, ok := byPath[meta.Path]
		switch {
		case !ok:
			slog.Info("new file detected", "path", meta.Path)
		case current.FileHash != meta.Hash:
			slog.Info("modified file detected", "path", meta.Path)
		default:
			continue
		}

		if err := ix.catalog.Upsert(ctx, catalog.IndexStatus{
			FilePath:     meta.Path,
			FileHash:     meta.Hash,
			Status:       catalog.StatusPending,
			FileSize:     meta.Size,
			LastModified: meta.LastModified,
		}); err != nil {
			slog.Error("failed to upsert index status", "path", meta.Path, "error", err)
		}
	}
	return nil
}

// processPendingFiles dispatches up to maxFilesPerBatch pending files
// through the document processor, rate-limiting each iteration's work.
func (ix *Indexer) processPendingFiles(ctx context.Context) error {
	all, err := ix.catalog.List(ctx)
	if err != nil {
		return err
	}

	var pending []catalog.IndexStatus
	for _, s := range all {
		if s.Status == catalog.StatusPending {
			pending = append(pending, s)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	batch := pending
	if len(batch) > ix.maxFilesPerBatch {
		batch = batch[:ix.maxFilesPerBatch]
	}
	slog.Info("processing pending files", "batch_size", len(batch), "total_pending", len(pending))

	for _, status := range batch {
		ix.processSingleFile(ctx, status)
	}
	return nil
}

// processSingleFile claims a pending file (pending -> processing), runs it
// through the processor, and records the indexed/failed outcome. The claim
// re-reads the row and then sets the status in a separate statement, so it
// is not atomic: another writer can claim the same file between the two.
func (ix *Indexer) processSingleFile(ctx context.Context, status catalog.IndexStatus) {
	current, err := ix.catalog.Get(ctx, status.FilePath)
	if err != nil {
		slog.Warn("file status disappeared before processing", "path", status.FilePath)
		return
	}
	if current.Status != catalog.StatusPending {
		slog.Debug("skipping file, no longer pending", "path", status.FilePath, "status", current.Status)
		return
	}

	if err := ix.catalog.UpdateField(ctx, status.FilePath, "status", string(catalog.StatusProcessing)); err != nil {
		slog.Error("failed to claim file for processing", "path", status.FilePath, "error", err)
		return
	}
	slog.Info("processing file", "path", status.FilePath)

	fullPath := filepath.Join(ix.uploadDir, status.FilePath)
	procErr := ix.processor.ProcessDocument(ctx, fullPath)

	if procErr == nil {
		now := time.Now().UTC()
		status.Status = catalog.StatusIndexed
		status.IndexedAt = &now
		status.ErrorMessage = nil
		if err := ix.catalog.Upsert(ctx, status); err != nil {
			slog.Error("failed to record indexed status", "path", status.FilePath, "error", err)
			return
		}
		slog.Info("successfully indexed", "path", status.FilePath)
		return
	}

	msg := procErr.Error()
	status.Status = catalog.StatusFailed
	status.IndexedAt = nil
	status.ErrorMessage = &msg
	if err := ix.catalog.Upsert(ctx, status); err != nil {
		slog.Error("failed to record failed status", "path", status.FilePath, "error", err)
		return
	}
	slog.Error("failed to index file", "path", status.FilePath, "error", msg)
}
