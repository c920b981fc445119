package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "org|HERA.SALON.SALE.SERVICE.v1|ORD-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first, "first mark should succeed")

	second, err := store.MarkProcessed(ctx, "org|HERA.SALON.SALE.SERVICE.v1|ORD-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second, "repeated mark should report the key as taken")
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	seen, err := store.IsProcessed(ctx, "unknown-key")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = store.MarkProcessed(ctx, "known-key", time.Hour)
	require.NoError(t, err)

	seen, err = store.IsProcessed(ctx, "known-key")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "short-lived", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	seen, err := store.IsProcessed(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, seen, "expired key should not count as processed")

	again, err := store.MarkProcessed(ctx, "short-lived", time.Hour)
	require.NoError(t, err)
	assert.True(t, again, "expired key can be marked again")
}

func TestInMemoryIdempotencyStore_Size(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	assert.Equal(t, 0, store.Size())

	for _, key := range []string{"a", "b", "c"} {
		_, err := store.MarkProcessed(ctx, key, time.Hour)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
