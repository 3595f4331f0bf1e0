package scanner

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundprediction/predicato/pkg/errs"
)

const hashChunkSize = 64 * 1024

// FileMetadata describes one file found under the upload directory.
type FileMetadata struct {
	Path         string
	Hash         string
	Size         int64
	LastModified time.Time
	Name         string
}

// ComputeFileHash returns the MD5 digest of path, read in 64KiB chunks so
// large uploads don't require holding the whole file in memory.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", classifyFileError("open file for hashing", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", classifyFileError("read file for hashing", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// fileMetadata stats and hashes path, recording it relative to uploadDir.
func fileMetadata(path, uploadDir string) (FileMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileMetadata{}, classifyFileError("stat file", path, err)
	}

	rel, err := filepath.Rel(uploadDir, path)
	if err != nil {
		return FileMetadata{}, errs.NewInternalError("compute relative path for "+path, err)
	}

	hash, err := ComputeFileHash(path)
	if err != nil {
		return FileMetadata{}, err
	}

	return FileMetadata{
		Path:         rel,
		Hash:         hash,
		Size:         info.Size(),
		LastModified: info.ModTime(),
		Name:         info.Name(),
	}, nil
}

// isHidden reports whether any component of path starts with a dot, which
// covers both dotfiles and the .trash soft-delete directory.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// ScanUploadDirectory recursively walks uploadDir and returns metadata for
// every regular, non-hidden file found. A missing or non-directory
// uploadDir yields an empty result rather than an error. A single file's
// I/O failure is logged and skipped; it never aborts the scan.
func ScanUploadDirectory(uploadDir string) []FileMetadata {
	info, err := os.Stat(uploadDir)
	if err != nil || !info.IsDir() {
		slog.Warn("upload directory does not exist or is not a directory", "dir", uploadDir)
		return nil
	}

	var out []FileMetadata
	err = filepath.WalkDir(uploadDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("error walking upload directory", "path", path, "error", err)
			return nil
		}
		if path == uploadDir {
			return nil
		}

		rel, relErr := filepath.Rel(uploadDir, path)
		if relErr == nil && isHidden(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		meta, metaErr := fileMetadata(path, uploadDir)
		if metaErr != nil {
			slog.Warn("skipping file during scan", "path", path, "error", metaErr)
			return nil
		}
		out = append(out, meta)
		return nil
	})
	if err != nil {
		slog.Warn("scan of upload directory ended early", "dir", uploadDir, "error", err)
	}
	return out
}

func classifyFileError(action, path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return errs.NewNotFoundError("%s %q: %v", action, path, err)
	case os.IsPermission(err):
		return errs.NewForbiddenError("%s %q: %v", action, path, err)
	default:
		return errs.NewInternalError(action+" "+path, err)
	}
}
