package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Bump when the on-disk layout changes; stores with another schema are
// dropped on open.
const storeSchemaVersion uint16 = 1

// diskPatterns is the on-disk form of a whole store.
type diskPatterns struct {
	Schema   uint16
	Patterns []Pattern
}

// DiskStore persists patterns to a single msgpack file. Reads come from an
// in-memory copy loaded at open; every Put rewrites the file atomically.
type DiskStore struct {
	mu       sync.RWMutex
	path     string
	patterns map[string]Pattern
}

// OpenDiskStore loads the store at path, creating parent directories as
// needed. A missing file yields an empty store.
func OpenDiskStore(path string) (*DiskStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &DiskStore{path: path, patterns: make(map[string]Pattern)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file location.
func (s *DiskStore) Path() string { return s.path }

func (s *DiskStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	var disk diskPatterns
	if err := msgpack.NewDecoder(f).Decode(&disk); err != nil {
		return err
	}
	if disk.Schema != storeSchemaVersion {
		return nil
	}
	for _, p := range disk.Patterns {
		s.patterns[p.ID] = p
	}
	return nil
}

// Put inserts or replaces a pattern and persists the store.
func (s *DiskStore) Put(p Pattern) error {
	if p.ID == "" {
		p.ID = PatternID(p.SourcePattern, p.TargetOutput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[p.ID] = p
	return s.save()
}

// save writes the whole store through a temp file and an atomic rename.
// The caller holds the write lock.
func (s *DiskStore) save() error {
	f, err := os.CreateTemp(filepath.Dir(s.path), "patterns-*")
	if err != nil {
		return err
	}
	disk := diskPatterns{Schema: storeSchemaVersion, Patterns: flatten(s.patterns)}
	if err := msgpack.NewEncoder(f).Encode(&disk); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), s.path)
}

// Get returns the pattern with the given id.
func (s *DiskStore) Get(id string) (Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[id]
	return p, ok
}

// All returns every stored pattern ordered by id.
func (s *DiskStore) All() []Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return flatten(s.patterns)
}

// Len reports the number of stored patterns.
func (s *DiskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}
