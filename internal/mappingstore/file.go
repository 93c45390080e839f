package mappingstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

const lockRetryDelay = 25 * time.Millisecond

// FileBackend keeps the document in a JSON file. A sibling ".lock" file
// serializes access across processes and writes go through a temp file
// renamed over the original.
type FileBackend struct {
	path     string
	lockPath string
}

// NewFileBackend returns a backend for the JSON document at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, lockPath: path + ".lock"}
}

// Load reads the document under a shared lock.
func (b *FileBackend) Load(ctx context.Context) (domain.MappingDocument, error) {
	// A fresh Flock per call: flock.Flock treats a second lock on the same
	// value as already held, which would let goroutines overlap.
	fl := flock.New(b.lockPath)
	if _, err := fl.TryRLockContext(ctx, lockRetryDelay); err != nil {
		_ = fl.Close()
		return nil, fmt.Errorf("acquire read lock on %s: %w", b.lockPath, err)
	}
	defer func() { _ = fl.Unlock() }()

	return b.read()
}

// Update runs mutate under an exclusive lock and replaces the file
// atomically with its result.
func (b *FileBackend) Update(
	ctx context.Context,
	mutate func(domain.MappingDocument) (domain.MappingDocument, error),
) error {
	fl := flock.New(b.lockPath)
	if _, err := fl.TryLockContext(ctx, lockRetryDelay); err != nil {
		_ = fl.Close()
		return fmt.Errorf("acquire write lock on %s: %w", b.lockPath, err)
	}
	defer func() { _ = fl.Unlock() }()

	doc, err := b.read()
	if err != nil {
		return err
	}

	next, err := mutate(doc)
	if err != nil {
		return err
	}

	return b.write(next)
}

// Ping checks that the document's directory is usable.
func (b *FileBackend) Ping(context.Context) error {
	info, err := os.Stat(filepath.Dir(b.path))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(b.path))
	}
	return nil
}

func (b *FileBackend) read() (domain.MappingDocument, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.MappingDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mappings file: %w", err)
	}

	doc := domain.MappingDocument{}
	if len(data) == 0 {
		return doc, nil
	}
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode mappings file %s: %w", b.path, err)
	}
	return doc, nil
}

func (b *FileBackend) write(doc domain.MappingDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mappings: %w", err)
	}

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, b.path); err != nil {
		cleanup()
		return fmt.Errorf("replace mappings file: %w", err)
	}
	return nil
}
