package dictcache

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/refdict/internal/domain"
)

// Subscribe registers fn to be called with every snapshot that becomes
// current. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(*domain.Snapshot)) (unsubscribe func()) {
	id := uuid.New()
	s.mu.Lock()
	if !s.closed {
		s.subs[id] = fn
	}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Invalidate drops the in-memory snapshot and the durable record so the next
// resolve goes to the network.
func (s *Store) Invalidate(ctx context.Context) error {
	if s.isClosed() {
		return domain.ErrStoreClosed
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.group.Forget(flightKey)

	if err := s.kv.Delete(ctx, s.snapshotKey, s.timestampKey); err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	s.log.InfoContext(ctx, "cache invalidated")
	return nil
}

// Dispose releases subscribers. Every later call returns ErrStoreClosed.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[uuid.UUID]func(*domain.Snapshot))
}
