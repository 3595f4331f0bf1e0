package checkpoint

import (
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/predicato/pkg/errs"
)

// Cache is a small embedded KV store for data that's cheap to recompute but
// expensive to refetch on every request. It never holds the source of
// truth: a miss simply means the caller falls back to its durable store.
type Cache struct {
	db *badger.DB
}

// Open creates (or reopens) a Badger-backed cache rooted at dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.NewInternalError("open checkpoint cache at "+dir, err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database files.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return errs.NewInternalError("close checkpoint cache", err)
	}
	return nil
}

// Get returns the cached value for key. The second return value is false on
// a miss (including an expired entry); it is never an error condition.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	switch {
	case err == badger.ErrKeyNotFound:
		return nil, false, nil
	case err != nil:
		return nil, false, errs.NewInternalError("read checkpoint cache key "+key, err)
	}
	return value, true, nil
}

// Set stores value under key. A zero ttl means the entry never expires.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return errs.NewInternalError("write checkpoint cache key "+key, err)
	}
	return nil
}

// Delete evicts key, if present. Deleting a missing key is a no-op.
func (c *Cache) Delete(key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return errs.NewInternalError("delete checkpoint cache key "+key, err)
	}
	return nil
}
