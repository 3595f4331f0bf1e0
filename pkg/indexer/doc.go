// Package indexer implements the Background Indexer: a periodic loop that
// reconciles the upload directory against the index-status catalog and
// dispatches pending files for document processing, rate-limited per
// iteration.
package indexer
