package adapters

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("rogue_snapshots")

// BoltAdapter persists a snapshot blob in a single bbolt bucket, one key
// per snapshot name. It satisfies the spec's persistence.type=embedded-kv
// option: an embedded, transactional, single-file KV store, the idiomatic
// choice in this ecosystem for "an embedded key-value backend" when a
// plain file isn't transactional enough for the caller's needs.
type BoltAdapter struct {
	db *bolt.DB
}

// NewBoltAdapter opens (creating if absent) a bbolt database at path.
func NewBoltAdapter(path string) (*BoltAdapter, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("adapters: bolt: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("adapters: bolt: init bucket: %w", err)
	}
	return &BoltAdapter{db: db}, nil
}

func (a *BoltAdapter) SaveSync(key string, data []byte) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		cp := make([]byte, len(data))
		copy(cp, data)
		return tx.Bucket(bucketName).Put([]byte(key), cp)
	})
}

func (a *BoltAdapter) LoadSync(key string) ([]byte, error) {
	var out []byte
	err := a.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return nil
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	return out, err
}

func (a *BoltAdapter) Save(_ context.Context, key string, data []byte) error {
	return a.SaveSync(key, data)
}

func (a *BoltAdapter) Load(_ context.Context, key string) ([]byte, error) {
	return a.LoadSync(key)
}

// Close closes the underlying bbolt database.
func (a *BoltAdapter) Close() error {
	return a.db.Close()
}
