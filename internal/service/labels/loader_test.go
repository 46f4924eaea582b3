package labels

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heartmarshall/refdict/internal/domain"
)

// ---------------------------------------------------------------------------
// Manual mocks (moq-style with func fields)
// ---------------------------------------------------------------------------

type mockResolver struct {
	ResolveFunc func(ctx context.Context, code string) (domain.DictionaryCacheEntry, error)
	calls       atomic.Int32
}

func (m *mockResolver) Resolve(ctx context.Context, code string) (domain.DictionaryCacheEntry, error) {
	m.calls.Add(1)
	return m.ResolveFunc(ctx, code)
}

type mockRecorder struct {
	mu      sync.Mutex
	batches []int
}

func (m *mockRecorder) ObserveLabelBatch(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, n)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countriesResolver() *mockResolver {
	return &mockResolver{ResolveFunc: func(_ context.Context, code string) (domain.DictionaryCacheEntry, error) {
		if code != "countries" {
			return domain.DictionaryCacheEntry{}, domain.ErrDictionaryNotFound
		}
		return domain.DictionaryCacheEntry{
			DictionaryName: "Countries",
			ItemsByCode: map[string]domain.ItemMeta{
				"US": {Name: "United States", IconRef: "us.svg"},
				"NY": {Name: "New York", Level: 1},
			},
		}, nil
	}}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestLoader_Load(t *testing.T) {
	t.Parallel()
	l := NewLoader(newTestLogger(), countriesResolver(), nil)

	got := l.Load(context.Background(), "countries", "US")

	assert.Equal(t, Label{Code: "US", Name: "United States", IconRef: "us.svg", Found: true}, got)
}

func TestLoader_UnknownCodeShowsRawCode(t *testing.T) {
	t.Parallel()
	l := NewLoader(newTestLogger(), countriesResolver(), nil)

	got := l.Load(context.Background(), "countries", "XX")

	assert.Equal(t, Label{Code: "XX", Name: "XX"}, got)
}

func TestLoader_ResolveFailureShowsRawCodes(t *testing.T) {
	t.Parallel()
	r := &mockResolver{ResolveFunc: func(context.Context, string) (domain.DictionaryCacheEntry, error) {
		return domain.DictionaryCacheEntry{}, errors.New("offline")
	}}
	l := NewLoader(newTestLogger(), r, nil)

	got := l.LoadMany(context.Background(), "countries", []string{"US", "NY"})

	assert.Equal(t, []Label{{Code: "US", Name: "US"}, {Code: "NY", Name: "NY"}}, got)
}

func TestLoader_LoadManyKeepsOrder(t *testing.T) {
	t.Parallel()
	l := NewLoader(newTestLogger(), countriesResolver(), nil)

	got := l.LoadMany(context.Background(), "countries", []string{"NY", "XX", "US"})

	names := []string{got[0].Name, got[1].Name, got[2].Name}
	assert.Equal(t, []string{"New York", "XX", "United States"}, names)
	assert.False(t, got[1].Found)
}

func TestLoader_ConcurrentLookupsShareOneResolve(t *testing.T) {
	t.Parallel()
	r := countriesResolver()
	rec := &mockRecorder{}
	l := NewLoader(newTestLogger(), r, rec)

	codes := []string{"US", "NY", "US", "NY", "XX", "US", "NY", "US"}
	var wg sync.WaitGroup
	got := make([]Label, len(codes))
	for i, c := range codes {
		wg.Add(1)
		go func(i int, c string) {
			defer wg.Done()
			got[i] = l.Load(context.Background(), "countries", c)
		}(i, c)
	}
	wg.Wait()

	total := 0
	for _, n := range rec.batches {
		total += n
	}
	assert.Equal(t, len(codes), total)
	assert.LessOrEqual(t, int(r.calls.Load()), len(rec.batches), "one resolve per dictionary per batch")
	assert.Equal(t, "New York", got[1].Name)
}
