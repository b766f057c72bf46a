package store

import (
	"go.etcd.io/bbolt"

	"github.com/halvorsen/ledger/internal/digest"
)

// existenceCache is a rebuildable accelerator in front of the object
// store's Exists/Write path, grounded on the teacher's
// internal/store/kv.go (a bbolt-backed hash-mapping table). It stores no
// object content and is never consulted for Read's correctness-critical
// decompress/verify path — only loose files under objects/ are
// authoritative (§6). Losing or deleting the cache file is always safe:
// the next Exists() call falls back to a filesystem stat and repopulates
// it.
type existenceCache struct {
	db *bbolt.DB
}

var bucketExists = []byte("exists")

func openExistenceCache(path string) (*existenceCache, error) {
	db, err := bbolt.Open(path, 0644, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketExists)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &existenceCache{db: db}, nil
}

func (c *existenceCache) Close() error {
	return c.db.Close()
}

// has reports (present, known). known is false if the cache has no
// opinion (key absent) — callers must treat that as "fall back to disk",
// never as a negative result.
func (c *existenceCache) has(d digest.Digest) (present bool, known bool) {
	_ = c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketExists).Get(d[:])
		known = v != nil
		present = known
		return nil
	})
	return present, known
}

func (c *existenceCache) put(d digest.Digest) {
	_ = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketExists).Put(d[:], []byte{1})
	})
}
