package dictcache

import (
	"context"
	"fmt"

	"github.com/heartmarshall/refdict/internal/domain"
)

// Resolve returns the cache entry for one dictionary. A fresh in-memory
// snapshot wins, then a fresh durable one, and only then the network. A code
// missing from a fresh snapshot is reported as ErrDictionaryNotFound without
// another fetch.
func (s *Store) Resolve(ctx context.Context, code string) (domain.DictionaryCacheEntry, error) {
	snap, err := s.ResolveAll(ctx)
	if err != nil {
		return domain.DictionaryCacheEntry{}, err
	}
	entry, ok := snap.Entry(code)
	if !ok {
		return domain.DictionaryCacheEntry{}, fmt.Errorf("dictionary %q: %w", code, domain.ErrDictionaryNotFound)
	}
	return entry, nil
}

// ResolveAll returns the whole snapshot following the same protocol as Resolve.
func (s *Store) ResolveAll(ctx context.Context) (*domain.Snapshot, error) {
	if s.isClosed() {
		return nil, domain.ErrStoreClosed
	}

	if snap := s.Current(); snap.IsFresh(s.now(), s.ttl) {
		s.metrics.ObserveResolve(SourceMemory)
		return snap, nil
	}

	if snap := s.loadDurable(ctx); snap != nil {
		s.metrics.ObserveResolve(SourceDurable)
		return s.adopt(snap), nil
	}

	return s.flight(ctx, false)
}

// adopt makes snap the in-memory snapshot unless a newer one is already
// there, and returns whichever snapshot is current afterwards.
func (s *Store) adopt(snap *domain.Snapshot) *domain.Snapshot {
	s.mu.Lock()
	if s.current != nil && s.current.FetchedAt.After(snap.FetchedAt) {
		cur := s.current
		s.mu.Unlock()
		return cur
	}
	if s.current != nil && s.current.Generation == snap.Generation {
		s.mu.Unlock()
		return snap
	}
	s.current = snap
	subs := make([]func(*domain.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}
