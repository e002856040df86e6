package discovery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache := discovery.NewMemoryCache(10)
	ctx := context.Background()

	entry := &discovery.CacheEntry{
		Data:      []byte(`{"kind":"discovery#restDescription"}`),
		ExpiresAt: time.Now().Add(1 * time.Hour),
		ETag:      `"plus-v1"`,
	}

	require.NoError(t, cache.Set(ctx, "plus:v1", entry))

	retrieved, err := cache.Get(ctx, "plus:v1")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)
	assert.Equal(t, entry.ETag, retrieved.ETag)
	assert.False(t, retrieved.StoredAt.IsZero())
}

func TestMemoryCache_GetMissingAndExpired(t *testing.T) {
	t.Parallel()

	cache := discovery.NewMemoryCache(10)
	ctx := context.Background()

	_, err := cache.Get(ctx, "nonexistent")
	require.ErrorIs(t, err, discovery.ErrCacheKeyNotFound)

	require.NoError(t, cache.Set(ctx, "stale", &discovery.CacheEntry{
		Data:      []byte("old"),
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}))

	assert.False(t, cache.Has(ctx, "stale"))

	_, err = cache.Get(ctx, "stale")
	require.ErrorIs(t, err, discovery.ErrCacheEntryExpired)
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_NoExpiry(t *testing.T) {
	t.Parallel()

	cache := discovery.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "forever", &discovery.CacheEntry{Data: []byte("x")}))
	assert.True(t, cache.Has(ctx, "forever"))

	cache.Cleanup()
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	cache := discovery.NewMemoryCache(10)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(ctx, key, &discovery.CacheEntry{Data: []byte(key)}))
	}

	require.NoError(t, cache.Delete(ctx, "a"))
	assert.False(t, cache.Has(ctx, "a"))
	assert.True(t, cache.Has(ctx, "b"))

	require.NoError(t, cache.Clear(ctx))
	assert.False(t, cache.Has(ctx, "b"))
	assert.False(t, cache.Has(ctx, "c"))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	t.Parallel()

	cache := discovery.NewMemoryCache(2)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, cache.Set(ctx, "first", &discovery.CacheEntry{Data: []byte("1"), StoredAt: base}))
	require.NoError(t, cache.Set(ctx, "second", &discovery.CacheEntry{Data: []byte("2"), StoredAt: base.Add(time.Second)}))
	require.NoError(t, cache.Set(ctx, "third", &discovery.CacheEntry{Data: []byte("3"), StoredAt: base.Add(2 * time.Second)}))

	assert.Equal(t, 2, cache.Len())
	assert.False(t, cache.Has(ctx, "first"))
	assert.True(t, cache.Has(ctx, "second"))
	assert.True(t, cache.Has(ctx, "third"))

	// Overwriting an existing key does not evict.
	require.NoError(t, cache.Set(ctx, "third", &discovery.CacheEntry{Data: []byte("3b")}))
	assert.True(t, cache.Has(ctx, "second"))
}

func TestCacheManager(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("keys are deterministic", func(t *testing.T) {
		t.Parallel()

		manager := discovery.NewCacheManager(discovery.NewMemoryCache(10), nil)

		key := manager.GetCacheKey("discovery", "plus:v1", map[string]string{"root": "https://example.com", "a": "b"})
		assert.Equal(t, "discovery:plus:v1:a=b&root=https://example.com", key)
		assert.Equal(t, "directory:all", manager.GetCacheKey("directory", "all", nil))
	})

	t.Run("stats and ttl", func(t *testing.T) {
		t.Parallel()

		backend := discovery.NewMemoryCache(10)
		manager := discovery.NewCacheManager(backend, &discovery.CacheOptions{TTL: time.Hour, EnableETags: true})

		_, err := manager.Get(ctx, "missing")
		require.Error(t, err)

		require.NoError(t, manager.SetWithETag(ctx, "doc", []byte("body"), `"etag"`, 0))

		data, err := manager.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, []byte("body"), data)

		entry, err := backend.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, `"etag"`, entry.ETag)
		assert.WithinDuration(t, time.Now().Add(time.Hour), entry.ExpiresAt, time.Minute)

		stats := manager.GetStats()
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, int64(1), stats.Sets)
		assert.InDelta(t, 0.5, stats.GetHitRate(), 0.001)

		require.NoError(t, manager.Invalidate(ctx, "doc"))
		_, err = manager.Get(ctx, "doc")
		require.ErrorIs(t, err, discovery.ErrCacheKeyNotFound)
	})

	t.Run("etags disabled", func(t *testing.T) {
		t.Parallel()

		backend := discovery.NewMemoryCache(10)
		manager := discovery.NewCacheManager(backend, &discovery.CacheOptions{})

		require.NoError(t, manager.SetWithETag(ctx, "doc", []byte("body"), `"etag"`, 0))

		entry, err := backend.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Empty(t, entry.ETag)
		assert.True(t, entry.ExpiresAt.IsZero())
	})

	t.Run("nil cache disables caching", func(t *testing.T) {
		t.Parallel()

		manager := discovery.NewCacheManager(nil, nil)

		require.NoError(t, manager.Set(ctx, "doc", []byte("body"), 0))

		_, err := manager.Get(ctx, "doc")
		require.ErrorIs(t, err, discovery.ErrCacheDisabled)
	})

	t.Run("hit rate without lookups", func(t *testing.T) {
		t.Parallel()

		assert.Zero(t, (&discovery.CacheStats{}).GetHitRate())
	})
}

func TestNewCacheFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *discovery.CacheConfig
		want    interface{}
		wantErr error
	}{
		{name: "nil config", config: nil, want: &discovery.MemoryCache{}},
		{name: "memory", config: &discovery.CacheConfig{Type: discovery.CacheTypeMemory, Memory: &discovery.MemoryCacheConfig{MaxSize: 5}}, want: &discovery.MemoryCache{}},
		{name: "empty type", config: &discovery.CacheConfig{}, want: &discovery.MemoryCache{}},
		{name: "none", config: &discovery.CacheConfig{Type: discovery.CacheTypeNone}, want: &discovery.NoOpCache{}},
		{name: "nats without config", config: &discovery.CacheConfig{Type: discovery.CacheTypeNATS}, wantErr: discovery.ErrNATSConfigRequired},
		{name: "unknown", config: &discovery.CacheConfig{Type: "redis"}, wantErr: discovery.ErrUnsupportedCacheType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cache, err := discovery.NewCacheFromConfig(tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.IsType(t, tt.want, cache)
		})
	}
}

func TestCacheBuilder(t *testing.T) {
	t.Parallel()

	options := &discovery.CacheOptions{TTL: time.Minute}

	builder := discovery.NewCacheBuilder().
		WithType(discovery.CacheTypeMemory).
		WithMemoryConfig(3).
		WithOptions(options)

	assert.Equal(t, 3, builder.Config().Memory.MaxSize)
	assert.Same(t, options, builder.Config().Options)

	cache, err := builder.Build()
	require.NoError(t, err)
	assert.IsType(t, &discovery.MemoryCache{}, cache)

	_, err = discovery.NewCacheBuilder().WithType(discovery.CacheTypeNATS).Build()
	require.ErrorIs(t, err, discovery.ErrNATSConfigRequired)
}

type failingCache struct {
	*discovery.NoOpCache
}

var errBackendDown = errors.New("backend down")

func (failingCache) Set(context.Context, string, *discovery.CacheEntry) error {
	return errBackendDown
}

func TestCacheChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("back-fills earlier levels", func(t *testing.T) {
		t.Parallel()

		l1 := discovery.NewMemoryCache(10)
		l2 := discovery.NewMemoryCache(10)
		chain := discovery.NewCacheChain(l1, l2)

		require.NoError(t, l2.Set(ctx, "doc", &discovery.CacheEntry{Data: []byte("body")}))
		assert.False(t, l1.Has(ctx, "doc"))
		assert.True(t, chain.Has(ctx, "doc"))

		entry, err := chain.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, []byte("body"), entry.Data)
		assert.True(t, l1.Has(ctx, "doc"))

		require.NoError(t, chain.Delete(ctx, "doc"))
		assert.False(t, chain.Has(ctx, "doc"))

		_, err = chain.Get(ctx, "doc")
		require.ErrorIs(t, err, discovery.ErrKeyNotFoundInAnyCache)
	})

	t.Run("set joins errors", func(t *testing.T) {
		t.Parallel()

		l1 := discovery.NewMemoryCache(10)
		chain := discovery.NewCacheChain(l1, failingCache{discovery.NewNoOpCache()})

		err := chain.Set(ctx, "doc", &discovery.CacheEntry{Data: []byte("body")})
		require.ErrorIs(t, err, errBackendDown)
		assert.True(t, l1.Has(ctx, "doc"))

		require.NoError(t, chain.Clear(ctx))
		assert.False(t, l1.Has(ctx, "doc"))
	})
}
