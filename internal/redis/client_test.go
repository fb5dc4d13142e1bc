package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisx "github.com/jonesrussell/syndicate/internal/redis"
)

func TestNewClientVerifiesConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redisx.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "ping-key", "ok", 0).Err())
	stored, err := mr.Get("ping-key")
	require.NoError(t, err)
	assert.Equal(t, "ok", stored)
}

func TestNewClientFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := redisx.NewClient(addr, "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestCheckConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ok, err := redisx.CheckConnection(context.Background(), client)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.Close()
	ok, err = redisx.CheckConnection(context.Background(), client)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestCheckConnectionNilClient(t *testing.T) {
	ok, err := redisx.CheckConnection(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, ok)
}
