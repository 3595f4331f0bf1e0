package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/soundprediction/predicato/pkg/errs"
)

// allowedImageExtensions is a fixed allow-list of raster formats; SVG and
// any other type is refused to keep this endpoint from becoming a general
// file oracle or an XSS vector.
var allowedImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

type fileCacheKey struct {
	name string
	root string
}

// FilesHandler serves GET /api/files: a safe, read-only resolver for image
// references scattered across uploadRoot and workingRoot.
type FilesHandler struct {
	uploadRoot  string
	workingRoot string
	cache       *lru.Cache[fileCacheKey, string]
}

// NewFilesHandler builds a FilesHandler rooted at the given absolute
// directories.
func NewFilesHandler(uploadDir, workingDir string) (*FilesHandler, error) {
	uploadRoot, err := filepath.Abs(uploadDir)
	if err != nil {
		return nil, errs.NewInternalError("resolve upload root", err)
	}
	workingRoot, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, errs.NewInternalError("resolve working root", err)
	}
	cache, err := lru.New[fileCacheKey, string](4096)
	if err != nil {
		return nil, errs.NewInternalError("create file resolution cache", err)
	}
	return &FilesHandler{uploadRoot: uploadRoot, workingRoot: workingRoot, cache: cache}, nil
}

// Get handles GET /api/files?path=...
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	requested, err := normalizeRequestedPath(raw)
	if err != nil {
		writeError(w, err)
		return
	}

	resolved, ok := h.resolveImagePath(requested)
	if !ok {
		writeError(w, errs.NewNotFoundError("file not found"))
		return
	}

	ext := strings.ToLower(filepath.Ext(resolved))
	if !allowedImageExtensions[ext] {
		writeError(w, errs.NewUnsupportedMediaError("unsupported file type: %s", ext))
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, resolved)
}

func normalizeRequestedPath(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", errs.NewInvalidError("path is required")
	}
	if strings.ContainsRune(value, 0) {
		return "", errs.NewInvalidError("invalid path")
	}
	if len(value) >= 2 && (value[0] == '"' && value[len(value)-1] == '"' || value[0] == '\'' && value[len(value)-1] == '\'') {
		value = strings.TrimSpace(value[1 : len(value)-1])
	}
	if strings.HasPrefix(strings.ToLower(value), "file://") {
		value = value[len("file://"):]
	}
	return value, nil
}

// isUnderRoot reports whether path lies at or under root.
func isUnderRoot(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

func existingFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// resolveImagePath tries each resolution strategy in order and returns the
// first match.
func (h *FilesHandler) resolveImagePath(requested string) (string, bool) {
	normalized := requested
	if strings.HasPrefix(normalized, "/") {
		parts := strings.SplitN(strings.TrimPrefix(normalized, "/"), "/", 2)
		if len(parts) > 0 {
			top := parts[0]
			if top == filepath.Base(h.uploadRoot) || top == filepath.Base(h.workingRoot) || top == "images" {
				normalized = strings.TrimPrefix(normalized, "/")
			}
		}
	}

	if !filepath.IsAbs(normalized) {
		for _, root := range []string{h.workingRoot, h.uploadRoot} {
			candidate := filepath.Join(root, normalized)
			if existingFile(candidate) && (isUnderRoot(candidate, h.workingRoot) || isUnderRoot(candidate, h.uploadRoot)) {
				return candidate, true
			}
		}
	}

	if abs, err := filepath.Abs(normalized); err == nil {
		if existingFile(abs) && (isUnderRoot(abs, h.workingRoot) || isUnderRoot(abs, h.uploadRoot)) {
			return abs, true
		}
	}

	ext := strings.ToLower(filepath.Ext(normalized))
	if allowedImageExtensions[ext] {
		name := filepath.Base(normalized)
		if found, ok := h.findUniqueParsedImagePath(name); ok && isUnderRoot(found, h.workingRoot) {
			return found, true
		}
	}

	return "", false
}

// findUniqueParsedImagePath searches workingRoot/parsed_output for a file
// named name with an "images" directory in its path, returning the
// lexicographically smallest match. Only hits are cached; a miss is not,
// since the file may appear later as processing completes.
func (h *FilesHandler) findUniqueParsedImagePath(name string) (string, bool) {
	key := fileCacheKey{name: name, root: h.workingRoot}
	if cached, ok := h.cache.Get(key); ok {
		return cached, true
	}

	searchRoot := filepath.Join(h.workingRoot, "parsed_output")
	if !existingDir(searchRoot) {
		return "", false
	}

	var matches []string
	_ = filepath.Walk(searchRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if filepath.Base(path) != name {
			return nil
		}
		if !containsPathPart(path, "images") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !allowedImageExtensions[ext] {
			return nil
		}
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			return nil
		}
		matches = append(matches, abs)
		return nil
	})
	if len(matches) == 0 {
		return "", false
	}

	sort.Strings(matches)
	best := matches[0]
	h.cache.Add(key, best)
	return best, true
}

func existingDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func containsPathPart(path, part string) bool {
	for _, p := range strings.Split(filepath.ToSlash(path), "/") {
		if p == part {
			return true
		}
	}
	return false
}
