package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Store persists profiles by ID.
type Store interface {
	// List returns every profile sorted by ID.
	List(ctx context.Context) ([]*Profile, error)

	// Get returns the profile with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Profile, error)

	// Put creates or replaces p.
	Put(ctx context.Context, p *Profile) error

	// Delete removes the profile, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// FileStore keeps profiles as <id>.json files in a directory, the layout of
// /etc/cpanel/ea4/profiles/custom.
type FileStore struct {
	mu     sync.RWMutex
	dir    string
	logger *log.Logger
}

// NewFileStore creates a store in dir, creating the directory if needed.
func NewFileStore(dir string, logger *log.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating profile dir: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the directory the store reads.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) List(ctx context.Context) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile dir: %w", err)
	}

	var out []*Profile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		p, err := s.read(id)
		if err != nil {
			s.logger.Warn("skipping unreadable profile", "file", name, "err", err)
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Profile, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

func (s *FileStore) read(id string) (*Profile, error) {
	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("profile %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("opening profile: %w", err)
	}
	defer f.Close()

	p, err := NewParser(f).Parse()
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", id, err)
	}
	p.ID = id
	return p, nil
}

func (s *FileStore) Put(ctx context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := NewEmitter(&buf).Emit(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.dir, s.path(p.ID), buf.Bytes())
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if !ValidID(id) {
		return fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("profile %q: %w", id, ErrNotFound)
		}
		return fmt.Errorf("removing profile: %w", err)
	}
	return nil
}

// writeAtomic writes data to a temp file in dir and renames it over path.
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing profile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming profile: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
