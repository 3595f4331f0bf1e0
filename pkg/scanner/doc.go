// Package scanner walks the upload directory tree and reports metadata
// (relative path, MD5 content hash, size, mtime) for every regular file,
// skipping anything hidden or stored under a trash subdirectory. It is a
// best-effort enumeration: a single file's I/O error is logged and
// skipped rather than aborting the scan.
package scanner
