package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
)

const (
	// DefaultRelPath is the config location relative to $XDG_CONFIG_HOME.
	DefaultRelPath = "gmailer/gmail.json"

	lockTimeout    = 10 * time.Second
	lockRetryDelay = 50 * time.Millisecond
)

// Store loads and saves the configuration document.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// DefaultPath returns the default config file path, creating its parent
// directory if needed.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(DefaultRelPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	return path, nil
}

// FileStore persists the document as a JSON file guarded by an advisory
// lock on a sidecar "<path>.lock" file.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore returns a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the config file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document under a shared lock. A missing file is reported as
// a *ConfigurationError wrapping fs.ErrNotExist.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("configuration file %s does not exist", s.path), Err: err}
	}

	unlock, err := s.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &ConfigurationError{Reason: "failed to read configuration file", Err: err}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigurationError{Reason: "failed to decode configuration file", Err: err}
	}
	return &doc, nil
}

// Save writes the document under an exclusive lock. The file is written to a
// temporary sibling and renamed into place.
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return &ConfigurationError{Reason: "no configuration data to save"}
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	unlock, err := s.acquire(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary config file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temporary config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary config file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

func (s *FileStore) acquire(ctx context.Context, exclusive bool) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s", s.lock.Path())
	}

	return func() { _ = s.lock.Unlock() }, nil
}

// MemoryStore keeps the document in memory. Loads and saves work on copies.
type MemoryStore struct {
	mu    sync.Mutex
	doc   *Document
	saves int
}

// NewMemoryStore returns a MemoryStore seeded with doc, which may be nil.
func NewMemoryStore(doc *Document) *MemoryStore {
	return &MemoryStore{doc: doc.Clone()}
}

// Load returns a copy of the stored document.
func (s *MemoryStore) Load(_ context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, &ConfigurationError{Reason: "configuration does not exist", Err: fs.ErrNotExist}
	}
	return s.doc.Clone(), nil
}

// Save stores a copy of doc.
func (s *MemoryStore) Save(_ context.Context, doc *Document) error {
	if doc == nil {
		return &ConfigurationError{Reason: "no configuration data to save"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = doc.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Snapshot returns a copy of the stored document, or nil.
func (s *MemoryStore) Snapshot() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}
