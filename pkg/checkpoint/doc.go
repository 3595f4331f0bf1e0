// Package checkpoint provides a small embedded key-value cache backed by
// Badger, used as the chat session store's read-path cache: recently read
// session histories are served from here instead of round-tripping SQLite
// on every request.
package checkpoint
