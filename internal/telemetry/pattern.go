package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
)

// Pattern is one learned rewrite: a source construct, the output accepted
// for it, and the statistics backing the pair.
type Pattern struct {
	ID             string
	SourcePattern  string
	TargetOutput   string
	Confidence     float64
	UsageCount     int
	SuccessRate    float64
	ErrorPrevented string
}

// PatternID derives a stable identifier from the rewrite pair.
func PatternID(source, target string) string {
	h := sha256.Sum256([]byte(source + "\x00" + target))
	return hex.EncodeToString(h[:6])
}

// PatternStore holds patterns for the distiller. Implementations must be
// goroutine-safe.
type PatternStore interface {
	// Put inserts or replaces a pattern. An empty ID is filled in from
	// the source/target pair.
	Put(p Pattern) error

	// Get returns the pattern with the given id.
	Get(id string) (Pattern, bool)

	// All returns every stored pattern ordered by id.
	All() []Pattern

	// Len reports the number of stored patterns.
	Len() int
}

// MemoryStore keeps patterns in memory only.
type MemoryStore struct {
	mu       sync.RWMutex
	patterns map[string]Pattern
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{patterns: make(map[string]Pattern)}
}

// Put inserts or replaces a pattern.
func (s *MemoryStore) Put(p Pattern) error {
	if p.ID == "" {
		p.ID = PatternID(p.SourcePattern, p.TargetOutput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[p.ID] = p
	return nil
}

// Get returns the pattern with the given id.
func (s *MemoryStore) Get(id string) (Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[id]
	return p, ok
}

// All returns every stored pattern ordered by id.
func (s *MemoryStore) All() []Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return flatten(s.patterns)
}

// Len reports the number of stored patterns.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

// flatten copies a pattern map into a slice ordered by id.
func flatten(m map[string]Pattern) []Pattern {
	out := make([]Pattern, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
