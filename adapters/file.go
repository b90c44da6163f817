package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/patchbrain/rogue/util/log"
)

// FileAdapter persists a snapshot to a single file per key under dir,
// guarded by an exclusive lock file the way the pack's Bitcask Open()
// guards a store directory: one flock.Flock, TryLock'd once, held for the
// adapter's lifetime. Saves are atomic: write to a temp file, fsync, then
// os.Rename over the final path.
type FileAdapter struct {
	dir   string
	lock  *flock.Flock
	log   *logrus.Entry
}

// NewFileAdapter opens (and exclusively locks) dir as a persistence root.
func NewFileAdapter(dir string) (*FileAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("adapters: file: mkdir %s: %w", dir, err)
	}
	lock := flock.New(filepath.Join(dir, ".rogue.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("adapters: file: lock %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("adapters: file: directory %s is locked by another process", dir)
	}
	return &FileAdapter{
		dir:  dir,
		lock: lock,
		log:  logrus.WithField("component", "adapters.file"),
	}, nil
}

func (f *FileAdapter) path(key string) string {
	return filepath.Join(f.dir, key+".rogue")
}

func (f *FileAdapter) SaveSync(key string, data []byte) error {
	final := f.path(key)
	tmp := final + ".tmp"

	fh, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("adapters: file: open %s: %w", tmp, err)
	}
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		return fmt.Errorf("adapters: file: write %s: %w", tmp, err)
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		return fmt.Errorf("adapters: file: sync %s: %w", tmp, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("adapters: file: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("adapters: file: rename %s -> %s: %w", tmp, final, err)
	}
	log.Trace(f.log).Infof("saved snapshot key=%s bytes=%d", key, len(data))
	return nil
}

func (f *FileAdapter) LoadSync(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("adapters: file: read %s: %w", f.path(key), err)
	}
	return data, nil
}

func (f *FileAdapter) Save(_ context.Context, key string, data []byte) error {
	return f.SaveSync(key, data)
}

func (f *FileAdapter) Load(_ context.Context, key string) ([]byte, error) {
	return f.LoadSync(key)
}

// Close releases the directory lock.
func (f *FileAdapter) Close() error {
	return f.lock.Unlock()
}
