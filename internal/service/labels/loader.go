// Package labels turns item codes into display labels. Lookups issued close
// together are batched so that each dictionary is resolved once per batch,
// which keeps table cells showing many codes cheap.
package labels

import (
	"context"
	"log/slog"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/heartmarshall/refdict/internal/domain"
)

const (
	defaultWait     = 2 * time.Millisecond
	defaultMaxBatch = 100
)

type resolver interface {
	Resolve(ctx context.Context, code string) (domain.DictionaryCacheEntry, error)
}

type batchRecorder interface {
	ObserveLabelBatch(n int)
}

// Key identifies one item of one dictionary.
type Key struct {
	Dictionary string
	Code       string
}

// Label is what a cell shows for a code. When the code is unknown, or the
// dictionary could not be resolved, Name is the raw code and Found is false.
type Label struct {
	Code    string
	Name    string
	IconRef string
	Found   bool
}

// Loader batches label lookups through a dataloader.
type Loader struct {
	loader *dataloader.Loader[Key, Label]
	log    *slog.Logger
}

// NewLoader creates a Loader. rec may be nil.
func NewLoader(logger *slog.Logger, r resolver, rec batchRecorder) *Loader {
	l := &Loader{log: logger.With("service", "labels")}
	l.loader = dataloader.NewBatchedLoader(
		l.batchFn(r, rec),
		dataloader.WithWait[Key, Label](defaultWait),
		dataloader.WithBatchCapacity[Key, Label](defaultMaxBatch),
		// The cache store already caches; a per-loader cache would pin labels
		// across refreshes.
		dataloader.WithCache[Key, Label](&dataloader.NoCache[Key, Label]{}),
	)
	return l
}

// Load returns the label of code in dictionary. It never fails.
func (l *Loader) Load(ctx context.Context, dictionary, code string) Label {
	label, err := l.loader.Load(ctx, Key{Dictionary: dictionary, Code: code})()
	if err != nil {
		return raw(code)
	}
	return label
}

// LoadMany returns labels for codes in the same order.
func (l *Loader) LoadMany(ctx context.Context, dictionary string, codes []string) []Label {
	keys := make([]Key, len(codes))
	for i, c := range codes {
		keys[i] = Key{Dictionary: dictionary, Code: c}
	}
	got, errs := l.loader.LoadMany(ctx, keys)()

	out := make([]Label, len(codes))
	for i, c := range codes {
		if i < len(got) && (len(errs) <= i || errs[i] == nil) {
			out[i] = got[i]
			continue
		}
		out[i] = raw(c)
	}
	return out
}

func (l *Loader) batchFn(r resolver, rec batchRecorder) dataloader.BatchFunc[Key, Label] {
	return func(ctx context.Context, keys []Key) []*dataloader.Result[Label] {
		if rec != nil {
			rec.ObserveLabelBatch(len(keys))
		}

		entries := make(map[string]*domain.DictionaryCacheEntry)
		for _, k := range keys {
			if _, seen := entries[k.Dictionary]; seen {
				continue
			}
			entry, err := r.Resolve(ctx, k.Dictionary)
			if err != nil {
				l.log.WarnContext(ctx, "dictionary unavailable, showing raw codes",
					slog.String("dictionary", k.Dictionary),
					slog.String("error", err.Error()),
				)
				entries[k.Dictionary] = nil
				continue
			}
			entries[k.Dictionary] = &entry
		}

		results := make([]*dataloader.Result[Label], len(keys))
		for i, k := range keys {
			results[i] = &dataloader.Result[Label]{Data: lookup(entries[k.Dictionary], k.Code)}
		}
		return results
	}
}

func lookup(entry *domain.DictionaryCacheEntry, code string) Label {
	if entry == nil {
		return raw(code)
	}
	meta, ok := entry.ItemsByCode[code]
	if !ok {
		return raw(code)
	}
	return Label{Code: code, Name: meta.Name, IconRef: meta.IconRef, Found: true}
}

func raw(code string) Label {
	return Label{Code: code, Name: code}
}
