package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrCorrupt is returned by Load when persisted data cannot be decoded
var ErrCorrupt = errors.New("corrupt persisted data")

// Persister stores whole collections by name
type Persister interface {
	// Load decodes the named collection into v. A collection that was
	// never saved leaves v untouched and returns nil.
	Load(name string, v any) error
	Save(name string, v any) error
}

// DefaultLockTimeout bounds the wait for another process holding the file lock
const DefaultLockTimeout = 5 * time.Second

// FilePersister writes one JSON array per collection under a directory.
// Access is guarded by a lock file so several processes can share the
// directory.
type FilePersister struct {
	dir         string
	lockTimeout time.Duration
}

// NewFilePersister creates the data directory when needed
func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FilePersister{dir: dir, lockTimeout: DefaultLockTimeout}, nil
}

// Dir returns the data directory
func (p *FilePersister) Dir() string {
	return p.dir
}

// Path returns the file backing a collection
func (p *FilePersister) Path(name string) string {
	return filepath.Join(p.dir, name+".json")
}

// Load reads a collection under a shared lock
func (p *FilePersister) Load(name string, v any) error {
	lock, err := p.acquire(name, false)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	path := p.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return nil
}

// Save replaces a collection file atomically under an exclusive lock
func (p *FilePersister) Save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	lock, err := p.acquire(name, true)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(p.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p.Path(name)); err != nil {
		return fmt.Errorf("replacing %s: %w", p.Path(name), err)
	}
	return nil
}

func (p *FilePersister) acquire(name string, exclusive bool) (*flock.Flock, error) {
	lock := flock.New(p.Path(name) + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), p.lockTimeout)
	defer cancel()

	var locked bool
	var err error
	if exclusive {
		locked, err = lock.TryLockContext(ctx, 50*time.Millisecond)
	} else {
		locked, err = lock.TryRLockContext(ctx, 50*time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring lock for %s: %w", name, err)
	}
	if !locked {
		return nil, fmt.Errorf("timeout waiting for %s lock", name)
	}
	return lock, nil
}
