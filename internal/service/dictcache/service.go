// Package dictcache keeps every reference dictionary in memory and in a
// durable key-value store, refreshing them as one snapshot when the stored
// copy is missing, corrupt or older than the TTL.
package dictcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/heartmarshall/refdict/internal/config"
	"github.com/heartmarshall/refdict/internal/domain"
)

const flightKey = "global snapshot load"

type fetcher interface {
	ListDictionariesWithItems(ctx context.Context, page, pageSize int) (*domain.DictionaryPage, error)
}

type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	PutMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}

// versionedWriter is implemented by stores that can compare the stored
// version and write in one transaction. PutManyUnlessNewer writes values
// unless versionKey holds a decimal version greater than version, and
// reports whether it wrote.
type versionedWriter interface {
	PutManyUnlessNewer(ctx context.Context, versionKey string, version int64, values map[string][]byte) (bool, error)
}

type recorder interface {
	ObserveResolve(source string)
	ObserveRefresh(outcome string, d time.Duration)
	IncPages()
	AddDuplicates(dictionary string, n int)
	IncCorrupt()
}

// Resolve sources reported to the recorder.
const (
	SourceMemory  = "memory"
	SourceDurable = "durable"
	SourceNetwork = "network"
)

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.metrics = r
		}
	}
}

// Store is the dictionary cache. The zero value is not usable; construct it
// with New.
type Store struct {
	log     *slog.Logger
	fetcher fetcher
	kv      kvStore
	metrics recorder
	now     func() time.Time

	ttl          time.Duration
	fetchTimeout time.Duration
	pageSize     int
	maxPages     int
	snapshotKey  string
	timestampKey string

	group singleflight.Group

	mu      sync.RWMutex
	current *domain.Snapshot
	subs    map[uuid.UUID]func(*domain.Snapshot)
	closed  bool
}

// New creates a Store. Call Init before the first Resolve to warm the memory
// layer from the durable store.
func New(logger *slog.Logger, f fetcher, kv kvStore, cfg config.CacheConfig, opts ...Option) *Store {
	s := &Store{
		log:          logger.With("service", "dictcache"),
		fetcher:      f,
		kv:           kv,
		metrics:      nopRecorder{},
		now:          time.Now,
		ttl:          cfg.TTL,
		fetchTimeout: cfg.FetchTimeout,
		pageSize:     cfg.PageSize,
		maxPages:     cfg.MaxPages,
		snapshotKey:  cfg.SnapshotKey,
		timestampKey: cfg.TimestampKey,
		subs:         make(map[uuid.UUID]func(*domain.Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init adopts a fresh durable snapshot, if there is one. It never touches the
// network.
func (s *Store) Init(ctx context.Context) error {
	if s.isClosed() {
		return domain.ErrStoreClosed
	}
	snap := s.loadDurable(ctx)
	if snap == nil {
		s.log.DebugContext(ctx, "no durable snapshot to warm from")
		return nil
	}
	s.adopt(snap)
	s.log.InfoContext(ctx, "warmed from durable snapshot",
		slog.Int("dictionaries", len(snap.Entries)),
		slog.Time("fetched_at", snap.FetchedAt),
	)
	return nil
}

// Current returns the in-memory snapshot without any freshness check.
func (s *Store) Current() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

type nopRecorder struct{}

func (nopRecorder) ObserveResolve(string)                {}
func (nopRecorder) ObserveRefresh(string, time.Duration) {}
func (nopRecorder) IncPages()                            {}
func (nopRecorder) AddDuplicates(string, int)            {}
func (nopRecorder) IncCorrupt()                          {}
