// Package kvstore is an in-process key-value store for tests and ephemeral
// sessions that must not outlive the process.
package kvstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/heartmarshall/refdict/internal/domain"
)

// Store is a mutex-guarded map. Values are copied in and out.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns the value of key or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

// PutMany stores every value at once.
func (s *Store) PutMany(ctx context.Context, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.data[k] = append([]byte(nil), v...)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// PutManyUnlessNewer stores values unless versionKey already holds a decimal
// version greater than version. It reports whether it wrote.
func (s *Store) PutManyUnlessNewer(ctx context.Context, versionKey string, version int64, values map[string][]byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw, ok := s.data[versionKey]; ok {
		if v, err := strconv.ParseInt(string(raw), 10, 64); err == nil && v > version {
			return false, nil
		}
	}
	for k, v := range values {
		s.data[k] = append([]byte(nil), v...)
	}
	return true, nil
}
