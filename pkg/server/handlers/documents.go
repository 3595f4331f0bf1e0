package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/soundprediction/predicato/pkg/catalog"
	"github.com/soundprediction/predicato/pkg/errs"
	"github.com/soundprediction/predicato/pkg/indexer"
	"github.com/soundprediction/predicato/pkg/rag"
	"github.com/soundprediction/predicato/pkg/scanner"
	"github.com/soundprediction/predicato/pkg/server/dto"
)

// DocumentsHandler serves the /api/documents/* surface: upload, process,
// listing, soft-delete, and index-status reporting.
type DocumentsHandler struct {
	uploadDir string
	catalog   *catalog.Catalog
	rag       *rag.Service
	indexer   *indexer.Indexer // nil when auto-indexing is disabled
}

// NewDocumentsHandler builds a DocumentsHandler. idx may be nil when
// auto-indexing is disabled in configuration.
func NewDocumentsHandler(uploadDir string, cat *catalog.Catalog, svc *rag.Service, idx *indexer.Indexer) *DocumentsHandler {
	return &DocumentsHandler{uploadDir: uploadDir, catalog: cat, rag: svc, indexer: idx}
}

// Upload handles POST /api/documents/upload.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, errs.NewInvalidError("parse multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, errs.NewInvalidError("missing file field: %v", err))
		return
	}
	defer file.Close()

	resp, err := h.saveUpload(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentsHandler) saveUpload(ctx context.Context, src io.Reader, filename, contentType string) (*dto.DocumentUploadResponse, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, errs.NewInternalError("create upload directory", err)
	}

	destPath := filepath.Join(h.uploadDir, filename)
	if _, err := os.Stat(destPath); err == nil {
		return nil, errs.NewConflictError("file %q already exists", filename)
	} else if !os.IsNotExist(err) {
		return nil, errs.NewInternalError("stat upload destination", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, errs.NewInternalError("create uploaded file", err)
	}
	written, copyErr := io.Copy(out, src)
	closeErr := out.Close()
	if copyErr != nil {
		return nil, errs.NewInternalError("write uploaded file", copyErr)
	}
	if closeErr != nil {
		return nil, errs.NewInternalError("finalize uploaded file", closeErr)
	}

	h.markPending(ctx, destPath, written)

	return &dto.DocumentUploadResponse{
		Filename:    filename,
		FilePath:    destPath,
		FileSize:    written,
		ContentType: contentType,
	}, nil
}

// markPending creates a PENDING catalog record for a freshly uploaded file.
// Failure is logged but never fails the upload response.
func (h *DocumentsHandler) markPending(ctx context.Context, destPath string, size int64) {
	rel, err := filepath.Rel(h.uploadDir, destPath)
	if err != nil {
		slog.Warn("failed to compute relative path for index status", "path", destPath, "error", err)
		return
	}
	hash, err := scanner.ComputeFileHash(destPath)
	if err != nil {
		slog.Warn("failed to hash uploaded file for index status", "path", destPath, "error", err)
		return
	}
	if err := h.catalog.Upsert(ctx, catalog.IndexStatus{
		FilePath:     rel,
		FileHash:     hash,
		Status:       catalog.StatusPending,
		FileSize:     size,
		LastModified: time.Now().UTC(),
	}); err != nil {
		slog.Warn("failed to create index status for upload", "path", rel, "error", err)
	}
}

// Process handles POST /api/documents/process.
func (h *DocumentsHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req dto.DocumentProcessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := os.Stat(req.FilePath); err != nil {
		writeError(w, errs.NewNotFoundError("file not found: %s", req.FilePath))
		return
	}

	resp := h.processAndMarkIndexed(r.Context(), req.FilePath, req.OutputDir)
	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentsHandler) processAndMarkIndexed(ctx context.Context, filePath, outputDir string) dto.DocumentProcessResponse {
	if err := h.rag.ProcessDocument(ctx, filePath); err != nil {
		return dto.DocumentProcessResponse{Status: "error", FilePath: filePath, OutputDir: outputDir, Error: err.Error()}
	}
	h.markIndexed(ctx, filePath)
	return dto.DocumentProcessResponse{Status: "success", FilePath: filePath, OutputDir: outputDir}
}

// markIndexed upserts the catalog row for filePath to INDEXED, preserving
// whatever hash/size it already had, or creating a fresh record if none
// exists yet. Failure is logged but never fails the processing response.
func (h *DocumentsHandler) markIndexed(ctx context.Context, filePath string) {
	rel := filePath
	if r, err := filepath.Rel(h.uploadDir, filePath); err == nil {
		rel = r
	}

	now := time.Now().UTC()
	existing, err := h.catalog.Get(ctx, rel)
	if err == nil {
		existing.Status = catalog.StatusIndexed
		existing.IndexedAt = &now
		existing.ErrorMessage = nil
		if err := h.catalog.Upsert(ctx, *existing); err != nil {
			slog.Warn("failed to update index status after processing", "path", rel, "error", err)
		}
		return
	}

	hash, hashErr := scanner.ComputeFileHash(filePath)
	if hashErr != nil {
		slog.Warn("failed to hash processed file for index status", "path", filePath, "error", hashErr)
		return
	}
	info, statErr := os.Stat(filePath)
	var size int64
	if statErr == nil {
		size = info.Size()
	}
	if err := h.catalog.Upsert(ctx, catalog.IndexStatus{
		FilePath:     rel,
		FileHash:     hash,
		Status:       catalog.StatusIndexed,
		IndexedAt:    &now,
		FileSize:     size,
		LastModified: now,
	}); err != nil {
		slog.Warn("failed to create index status after processing", "path", rel, "error", err)
	}
}

// UploadAndProcess handles POST /api/documents/upload-and-process.
func (h *DocumentsHandler) UploadAndProcess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, errs.NewInvalidError("parse multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, errs.NewInvalidError("missing file field: %v", err))
		return
	}
	defer file.Close()

	uploaded, err := h.saveUpload(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := h.processAndMarkIndexed(r.Context(), uploaded.FilePath, "")
	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /api/documents/list.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	found := scanner.ScanUploadDirectory(h.uploadDir)
	documents := make([]string, len(found))
	for i, f := range found {
		documents[i] = f.Path
	}
	writeJSON(w, http.StatusOK, dto.DocumentListResponse{Documents: documents, Total: len(documents)})
}

// Details handles GET /api/documents/details.
func (h *DocumentsHandler) Details(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	found := scanner.ScanUploadDirectory(h.uploadDir)

	details := make([]dto.DocumentDetailItem, 0, len(found))
	for _, f := range found {
		status := "uploaded"
		if s, err := h.catalog.Get(ctx, f.Path); err == nil && s.Status == catalog.StatusIndexed {
			status = "indexed"
		}
		details = append(details, dto.DocumentDetailItem{
			Filename:        f.Name,
			FilePath:        f.Path,
			FileSize:        f.Size,
			UploadDate:      f.LastModified.UTC().Format(time.RFC3339),
			Status:          status,
			StorageLocation: f.Path,
		})
	}
	writeJSON(w, http.StatusOK, dto.DocumentDetailsResponse{Documents: details, Total: len(details)})
}

// IndexStatus handles GET /api/documents/index-status.
func (h *DocumentsHandler) IndexStatus(w http.ResponseWriter, r *http.Request) {
	all, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]dto.IndexStatusResponse, len(all))
	for i, s := range all {
		resp[i] = dto.IndexStatusResponse{
			FilePath:     s.FilePath,
			FileHash:     s.FileHash,
			Status:       string(s.Status),
			FileSize:     s.FileSize,
			LastModified: s.LastModified.UTC().Format(time.RFC3339),
		}
		if s.IndexedAt != nil {
			t := s.IndexedAt.UTC().Format(time.RFC3339)
			resp[i].IndexedAt = &t
		}
		resp[i].ErrorMessage = s.ErrorMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriggerIndex handles POST /api/documents/trigger-index.
func (h *DocumentsHandler) TriggerIndex(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		writeError(w, errs.NewUnavailableError("background indexer is not enabled"))
		return
	}

	all, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var pending, processing int
	for _, s := range all {
		switch s.Status {
		case catalog.StatusPending:
			pending++
		case catalog.StatusProcessing:
			processing++
		}
	}

	h.indexer.TriggerIndex()

	msg := "Index scan triggered."
	writeJSON(w, http.StatusOK, dto.TriggerIndexResponse{
		FilesScanned:    len(all),
		FilesPending:    pending,
		FilesProcessing: processing,
		Message:         msg,
	})
}

// Delete handles DELETE /api/documents/delete/{filename}: soft-delete by
// moving the file into a sibling .trash/ directory rather than removing it.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request, filename string) {
	safeFilename := filepath.Base(filename)
	if safeFilename == "" || safeFilename != filename || strings.ContainsAny(filename, `/\`) {
		writeError(w, errs.NewInvalidError("invalid filename: must not contain path separators"))
		return
	}
	if strings.HasPrefix(safeFilename, ".") {
		writeError(w, errs.NewInvalidError("invalid filename: hidden files cannot be deleted via API"))
		return
	}

	originalPath := filepath.Join(h.uploadDir, safeFilename)
	info, err := os.Stat(originalPath)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, errs.NewNotFoundError("file not found: %s", safeFilename))
			return
		}
		writeError(w, errs.NewInternalError("stat file for deletion", err))
		return
	}
	if !info.Mode().IsRegular() {
		writeError(w, errs.NewInvalidError("not a file: %s", safeFilename))
		return
	}

	trashDir := filepath.Join(h.uploadDir, ".trash")
	if err := os.MkdirAll(trashDir, 0o755); err != nil {
		writeError(w, errs.NewInternalError("create trash directory", err))
		return
	}

	trashName := strconv.FormatInt(time.Now().Unix(), 10) + "_" + safeFilename
	trashPath := filepath.Join(trashDir, trashName)
	if err := os.Rename(originalPath, trashPath); err != nil {
		if errors.Is(err, os.ErrPermission) {
			writeError(w, errs.NewForbiddenError("permission denied: cannot delete file %q", safeFilename))
			return
		}
		writeError(w, errs.NewInternalError("move file to trash", err))
		return
	}

	if err := h.catalog.Delete(r.Context(), safeFilename); err != nil {
		slog.Warn("failed to remove index status after delete", "path", safeFilename, "error", err)
	}

	writeJSON(w, http.StatusOK, dto.DocumentDeleteResponse{
		Status:        "success",
		Message:       "file '" + safeFilename + "' moved to trash successfully",
		TrashLocation: filepath.Join(".trash", trashName),
		OriginalPath:  safeFilename,
	})
}
