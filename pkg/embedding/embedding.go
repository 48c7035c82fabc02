// Package embedding provides read access to precomputed entity vectors.
// Entities without a vector are reported as absent, never as an error.
package embedding

import (
	"context"
	"sync"
)

// Store looks up the embedding of one entity. ok is false when the entity
// has no vector.
type Store interface {
	Lookup(ctx context.Context, entity string) (vec []float32, ok bool, err error)
}

// MemoryStore is a map-backed Store safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	vectors map[string][]float32
	dim     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vectors: make(map[string][]float32)}
}

// Put stores a copy of vec for entity.
func (s *MemoryStore) Put(entity string, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[entity] = append([]float32(nil), vec...)
	if s.dim == 0 {
		s.dim = len(vec)
	}
}

func (s *MemoryStore) Lookup(ctx context.Context, entity string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.vectors[entity]
	return vec, ok, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Dim is the length of the first stored vector.
func (s *MemoryStore) Dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// None is a Store without any vectors.
type None struct{}

func (None) Lookup(ctx context.Context, entity string) ([]float32, bool, error) {
	return nil, false, nil
}
