package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCachePutGet(t *testing.T) {
	cache := NewMemory(time.Minute)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Put(ctx, "k1", []byte(`{"status":"paid"}`)))

	body, found, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte(`{"status":"paid"}`), body)

	// Keys are independent.
	_, found, err = cache.Get(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemory(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "k1", []byte("body")))
	time.Sleep(25 * time.Millisecond)

	_, found, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheOverwrite(t *testing.T) {
	cache := NewMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "k1", []byte("first")))
	require.NoError(t, cache.Put(ctx, "k1", []byte("second")))

	body, found, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("second"), body)
}
