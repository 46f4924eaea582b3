package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/refdict/internal/domain"
)

func TestStore_GetPutDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.PutMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, s.Delete(ctx, "a", "nope"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ValuesAreCopied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	in := []byte("abc")
	require.NoError(t, s.PutMany(ctx, map[string][]byte{"k": in}))
	in[0] = 'X'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	out[1] = 'Y'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestStore_PutManyRespectsCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New()
	require.ErrorIs(t, s.PutMany(ctx, map[string][]byte{"k": nil}), context.Canceled)
	assert.Zero(t, s.Len())
}

func TestStore_PutManyUnlessNewer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		stored      string
		version     int64
		wantWritten bool
	}{
		{name: "nothing stored", stored: "", version: 100, wantWritten: true},
		{name: "older stored", stored: "50", version: 100, wantWritten: true},
		{name: "same version", stored: "100", version: 100, wantWritten: true},
		{name: "newer stored", stored: "200", version: 100, wantWritten: false},
		{name: "unreadable stored", stored: "soon", version: 100, wantWritten: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := New()
			if tt.stored != "" {
				require.NoError(t, s.PutMany(ctx, map[string][]byte{"ts": []byte(tt.stored), "snap": []byte("old")}))
			}

			written, err := s.PutManyUnlessNewer(ctx, "ts", tt.version, map[string][]byte{
				"ts":   []byte("100"),
				"snap": []byte("new"),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantWritten, written)

			snap, err := s.Get(ctx, "snap")
			require.NoError(t, err)
			if tt.wantWritten {
				assert.Equal(t, "new", string(snap))
			} else {
				assert.Equal(t, "old", string(snap))
			}
		})
	}
}
