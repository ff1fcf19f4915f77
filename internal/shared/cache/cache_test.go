package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire at its deadline")
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	src := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", src, 0))
	src[0] = 'z'

	got, _, _ := m.Get(ctx, "k")
	got[1] = 'y'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r := NewRedis(RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Ping(ctx))

	_, ok, err := r.Get(ctx, "placeholders:x")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "placeholders:x", []byte(`["a"]`), time.Hour))
	got, ok, err := r.Get(ctx, "placeholders:x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["a"]`, string(got))
	assert.Equal(t, time.Hour, mr.TTL("placeholders:x"))

	mr.FastForward(2 * time.Hour)
	_, ok, err = r.Get(ctx, "placeholders:x")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "k2", []byte("v"), 0))
	require.NoError(t, r.Delete(ctx, "k2"))
	assert.False(t, mr.Exists("k2"))
}

func TestRedisSurfacesBackendErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { _ = r.Close() })
	mr.Close()

	_, _, err := r.Get(context.Background(), "k")
	assert.Error(t, err)
}
