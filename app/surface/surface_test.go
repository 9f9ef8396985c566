package surface

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseRegistry(t *testing.T, reg Registry) {
	t.Helper()
	ctx := context.Background()

	assert.False(t, reg.IsClosed(ctx, nil), "nil handle must never read as closed")

	h, err := reg.Open(ctx, " https://pay.example/abc ")
	require.NoError(t, err)
	require.NotEmpty(t, h.ID)
	assert.Equal(t, "https://pay.example/abc", h.URL)
	assert.False(t, reg.IsClosed(ctx, h))

	found, err := reg.Lookup(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.URL, found.URL)

	require.NoError(t, reg.MarkClosed(ctx, h.ID))
	assert.True(t, reg.IsClosed(ctx, h))

	require.NoError(t, reg.Close(ctx, h))
	assert.True(t, reg.IsClosed(ctx, h), "closed surface must stay closed")
	assert.ErrorIs(t, reg.MarkClosed(ctx, h.ID), ErrSurfaceNotFound)

	_, err = reg.Lookup(ctx, h.ID)
	assert.ErrorIs(t, err, ErrSurfaceNotFound)

	assert.True(t, reg.IsClosed(ctx, &Handle{ID: "unknown"}))
	assert.NoError(t, reg.Close(ctx, nil))
}

func TestMemoryRegistry(t *testing.T) {
	exerciseRegistry(t, NewMemoryRegistry())
}

func TestRedisRegistry(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	exerciseRegistry(t, NewRedisRegistry(client, time.Minute))
}

func TestNewRedisRegistryDefaults(t *testing.T) {
	reg := NewRedisRegistry(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), 0)
	assert.Equal(t, 15*time.Minute, reg.ttl)
	assert.Equal(t, "checkout:surface:", reg.prefix)

	entry, ok := reg.logger.(*logrus.Entry)
	require.True(t, ok)
	assert.Equal(t, "surface_registry", entry.Data["module"])
}
