package dictcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/heartmarshall/refdict/internal/domain"
)

// record is the durable form of a snapshot. The timestamp lives under its
// own key as epoch milliseconds so it can be compared without decoding the
// whole record.
type record struct {
	Generation uuid.UUID                              `json:"generation"`
	Entries    map[string]domain.DictionaryCacheEntry `json:"entries"`
}

func encodeSnapshot(snap *domain.Snapshot) (payload, ts []byte, err error) {
	payload, err = json.Marshal(record{Generation: snap.Generation, Entries: snap.Entries})
	if err != nil {
		return nil, nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return payload, []byte(strconv.FormatInt(snap.FetchedAt.UnixMilli(), 10)), nil
}

func decodeTimestamp(raw []byte) (time.Time, error) {
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", raw, domain.ErrCorruptCache)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func decodeSnapshot(payload, ts []byte) (*domain.Snapshot, error) {
	fetchedAt, err := decodeTimestamp(ts)
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("snapshot: %v: %w", err, domain.ErrCorruptCache)
	}
	if rec.Entries == nil {
		return nil, fmt.Errorf("snapshot has no entries: %w", domain.ErrCorruptCache)
	}
	return &domain.Snapshot{Generation: rec.Generation, FetchedAt: fetchedAt, Entries: rec.Entries}, nil
}

// readDurable reads and validates the durable record. It returns (nil, nil)
// when nothing is stored, and an error wrapping ErrCorruptCache or
// ErrStaleCache when the record must be discarded.
func (s *Store) readDurable(ctx context.Context) (*domain.Snapshot, error) {
	ts, tsErr := s.kv.Get(ctx, s.timestampKey)
	payload, payloadErr := s.kv.Get(ctx, s.snapshotKey)

	tsMissing := errors.Is(tsErr, domain.ErrNotFound)
	payloadMissing := errors.Is(payloadErr, domain.ErrNotFound)
	switch {
	case tsMissing && payloadMissing:
		return nil, nil
	case tsErr != nil && !tsMissing:
		return nil, fmt.Errorf("read %s: %w", s.timestampKey, tsErr)
	case payloadErr != nil && !payloadMissing:
		return nil, fmt.Errorf("read %s: %w", s.snapshotKey, payloadErr)
	case tsMissing || payloadMissing:
		return nil, fmt.Errorf("incomplete record: %w", domain.ErrCorruptCache)
	}

	snap, err := decodeSnapshot(payload, ts)
	if err != nil {
		return nil, err
	}
	if !snap.IsFresh(s.now(), s.ttl) {
		return nil, fmt.Errorf("fetched at %s: %w", snap.FetchedAt.Format(time.RFC3339), domain.ErrStaleCache)
	}
	return snap, nil
}

// loadDurable returns a fresh durable snapshot or nil. Corrupt and stale
// records are deleted; storage errors are logged and treated as a miss.
func (s *Store) loadDurable(ctx context.Context) *domain.Snapshot {
	snap, err := s.readDurable(ctx)
	switch {
	case err == nil:
		return snap
	case errors.Is(err, domain.ErrCorruptCache):
		s.metrics.IncCorrupt()
		s.log.WarnContext(ctx, "discarding corrupt durable snapshot", slog.String("error", err.Error()))
		s.purgeDurable(ctx)
	case errors.Is(err, domain.ErrStaleCache):
		s.log.InfoContext(ctx, "discarding stale durable snapshot", slog.String("reason", err.Error()))
		s.purgeDurable(ctx)
	default:
		s.log.WarnContext(ctx, "durable store unavailable", slog.String("error", err.Error()))
	}
	return nil
}

func (s *Store) purgeDurable(ctx context.Context) {
	if err := s.kv.Delete(ctx, s.snapshotKey, s.timestampKey); err != nil {
		s.log.WarnContext(ctx, "delete durable snapshot", slog.String("error", err.Error()))
	}
}

// persist writes snap unless the durable store already holds a newer record,
// in which case that record is returned and nothing is written.
func (s *Store) persist(ctx context.Context, snap *domain.Snapshot) (*domain.Snapshot, error) {
	payload, ts, err := encodeSnapshot(snap)
	if err != nil {
		return nil, err
	}
	values := map[string][]byte{
		s.snapshotKey:  payload,
		s.timestampKey: ts,
	}

	if vw, ok := s.kv.(versionedWriter); ok {
		written, err := vw.PutManyUnlessNewer(ctx, s.timestampKey, snap.FetchedAt.UnixMilli(), values)
		if err != nil {
			return nil, fmt.Errorf("write snapshot: %w", err)
		}
		if written {
			return nil, nil
		}
		return s.newerDurable(ctx), nil
	}

	// Stores without a conditional write get a best-effort check; two
	// writers can still interleave between the read and PutMany.
	raw, err := s.kv.Get(ctx, s.timestampKey)
	switch {
	case err == nil:
		stored, tsErr := decodeTimestamp(raw)
		if tsErr == nil && stored.After(snap.FetchedAt) {
			if newer := s.newerDurable(ctx); newer != nil {
				return newer, nil
			}
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("read %s: %w", s.timestampKey, err)
	}

	if err := s.kv.PutMany(ctx, values); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	return nil, nil
}

// newerDurable reads the record that won over ours. A record that cannot be
// read is logged and nil is returned, so the caller keeps its own snapshot.
func (s *Store) newerDurable(ctx context.Context) *domain.Snapshot {
	newer, err := s.readDurable(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "read newer durable snapshot", slog.String("error", err.Error()))
		return nil
	}
	return newer
}
