package dictcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/refdict/internal/domain"
	"github.com/heartmarshall/refdict/internal/treeindex"
)

// RefreshAll reloads every dictionary from the network. Overlapping calls
// share one load; a caller whose context ends stops waiting, but the load
// carries on under the fetch timeout and its result is still published.
func (s *Store) RefreshAll(ctx context.Context) (*domain.Snapshot, error) {
	if s.isClosed() {
		return nil, domain.ErrStoreClosed
	}
	return s.flight(ctx, true)
}

func (s *Store) flight(ctx context.Context, force bool) (*domain.Snapshot, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flightKey, func() (any, error) {
		if !force {
			// A load that finished while this caller was checking the
			// durable store already satisfies it.
			if snap := s.Current(); snap.IsFresh(s.now(), s.ttl) {
				return snap, nil
			}
		}
		ctx, cancel := context.WithTimeout(loadCtx, s.fetchTimeout)
		defer cancel()
		return s.load(ctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Snapshot), nil
	}
}

func (s *Store) load(ctx context.Context) (*domain.Snapshot, error) {
	started := s.now()
	fetchedAt := time.UnixMilli(started.UnixMilli()).UTC()

	dicts, err := s.fetchAll(ctx)
	if err != nil {
		s.metrics.ObserveRefresh("error", s.now().Sub(started))
		s.log.ErrorContext(ctx, "refresh failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	snap := s.build(ctx, dicts, fetchedAt)

	newer, err := s.persist(ctx, snap)
	switch {
	case err != nil:
		s.log.WarnContext(ctx, "snapshot not persisted", slog.String("error", err.Error()))
	case newer != nil:
		s.log.InfoContext(ctx, "durable snapshot is newer, discarding load",
			slog.Time("stored", newer.FetchedAt),
			slog.Time("loaded", snap.FetchedAt),
		)
		snap = newer
	}

	snap = s.adopt(snap)
	s.metrics.ObserveRefresh("ok", s.now().Sub(started))
	s.metrics.ObserveResolve(SourceNetwork)
	s.log.InfoContext(ctx, "snapshot refreshed",
		slog.Int("dictionaries", len(snap.Entries)),
		slog.String("generation", snap.Generation.String()),
	)
	return snap, nil
}

func (s *Store) fetchAll(ctx context.Context) ([]domain.DictionaryTree, error) {
	var out []domain.DictionaryTree
	for page := 1; ; page++ {
		p, err := s.fetcher.ListDictionariesWithItems(ctx, page, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		s.metrics.IncPages()
		out = append(out, p.Dictionaries...)
		if page >= p.TotalPages {
			return out, nil
		}
		// A partial listing must never replace a complete snapshot.
		if s.maxPages > 0 && page >= s.maxPages {
			s.log.WarnContext(ctx, "page limit reached before the last page",
				slog.Int("max_pages", s.maxPages),
				slog.Int("total_pages", p.TotalPages),
			)
			return nil, fmt.Errorf("page limit %d reached before total pages %d", s.maxPages, p.TotalPages)
		}
	}
}

func (s *Store) build(ctx context.Context, dicts []domain.DictionaryTree, fetchedAt time.Time) *domain.Snapshot {
	entries := make(map[string]domain.DictionaryCacheEntry, len(dicts))
	for _, d := range dicts {
		idx := treeindex.Build(d.Tree)
		if dups := idx.Duplicates(); len(dups) > 0 {
			s.metrics.AddDuplicates(d.Dictionary.Code, len(dups))
			s.log.WarnContext(ctx, "duplicate item codes, last occurrence wins",
				slog.String("dictionary", d.Dictionary.Code),
				slog.Int("duplicates", len(dups)),
			)
		}
		if _, ok := entries[d.Dictionary.Code]; ok {
			s.log.WarnContext(ctx, "dictionary listed twice, last occurrence wins",
				slog.String("dictionary", d.Dictionary.Code))
		}
		entries[d.Dictionary.Code] = domain.DictionaryCacheEntry{
			DictionaryID:   d.Dictionary.ID,
			DictionaryName: d.Dictionary.Name,
			ItemsByCode:    idx.Items(),
			Tree:           d.Tree,
			FetchedAt:      fetchedAt,
		}
	}
	return &domain.Snapshot{Generation: uuid.New(), FetchedAt: fetchedAt, Entries: entries}
}
