package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushAll(t *testing.T, m *Memory, key string, values ...string) {
	t.Helper()
	for _, v := range values {
		_, err := m.LPush(context.Background(), key, v)
		require.NoError(t, err)
	}
}

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNil))

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	now = now.Add(59 * time.Second)
	_, err := m.Get(ctx, "k")
	assert.NoError(t, err)

	now = now.Add(time.Second)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNil)

	ok, err := m.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "expire on a missing key reports false")
}

func TestMemory_Incr(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	n, err := m.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, _ = m.Incr(ctx, "counter")
	assert.Equal(t, int64(2), n)

	require.NoError(t, m.Set(ctx, "text", "abc", 0))
	_, err = m.Incr(ctx, "text")
	assert.Error(t, err)
}

func TestMemory_LPushLRange(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	pushAll(t, m, "q", "a", "b", "c") // list is c, b, a

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{name: "all", start: 0, stop: -1, want: []string{"c", "b", "a"}},
		{name: "head", start: 0, stop: 0, want: []string{"c"}},
		{name: "tail two", start: -2, stop: -1, want: []string{"b", "a"}},
		{name: "tail larger than list", start: -50, stop: -1, want: []string{"c", "b", "a"}},
		{name: "stop beyond end", start: 1, stop: 10, want: []string{"b", "a"}},
		{name: "empty range", start: 2, stop: 1, want: []string{}},
		{name: "start beyond end", start: 5, stop: 10, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.LRange(ctx, "q", tt.start, tt.stop)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	n, err := m.LLen(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMemory_LRem(t *testing.T) {
	ctx := context.Background()

	t.Run("count from head", func(t *testing.T) {
		m := NewMemory()
		pushAll(t, m, "q", "x", "y", "x", "x") // x, x, y, x
		removed, err := m.LRem(ctx, "q", 2, "x")
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)
		got, _ := m.LRange(ctx, "q", 0, -1)
		assert.Equal(t, []string{"y", "x"}, got)
	})

	t.Run("count from tail", func(t *testing.T) {
		m := NewMemory()
		pushAll(t, m, "q", "x", "y", "x") // x, y, x
		removed, err := m.LRem(ctx, "q", -1, "x")
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
		got, _ := m.LRange(ctx, "q", 0, -1)
		assert.Equal(t, []string{"x", "y"}, got)
	})

	t.Run("zero removes all", func(t *testing.T) {
		m := NewMemory()
		pushAll(t, m, "q", "x", "x", "x")
		removed, err := m.LRem(ctx, "q", 0, "x")
		require.NoError(t, err)
		assert.Equal(t, int64(3), removed)
		n, _ := m.LLen(ctx, "q")
		assert.Equal(t, int64(0), n)
	})

	t.Run("missing value", func(t *testing.T) {
		m := NewMemory()
		pushAll(t, m, "q", "a")
		removed, err := m.LRem(ctx, "q", 1, "zzz")
		require.NoError(t, err)
		assert.Equal(t, int64(0), removed)
	})
}

func TestMemory_LTrim(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	pushAll(t, m, "q", "1", "2", "3", "4", "5") // 5, 4, 3, 2, 1

	require.NoError(t, m.LTrim(ctx, "q", 0, 2))
	got, _ := m.LRange(ctx, "q", 0, -1)
	assert.Equal(t, []string{"5", "4", "3"}, got)

	require.NoError(t, m.LTrim(ctx, "q", 5, 10))
	n, _ := m.LLen(ctx, "q")
	assert.Equal(t, int64(0), n)
}
