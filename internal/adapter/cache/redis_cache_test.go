package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandstudio/internal/domain"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, WithPrefix("test:")), mr
}

func TestPutGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	artifact := &domain.ImageArtifact{
		Data:             []byte{0x89, 'P', 'N', 'G'},
		Format:           "image/png",
		Model:            domain.BackendQwen,
		CostUSD:          0.005,
		GenerationTimeMs: 900,
		Width:            1024,
		Height:           1024,
	}

	require.NoError(t, c.Put(ctx, "abc", artifact, time.Minute))
	assert.True(t, mr.Exists("test:abc"))

	got, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, artifact.Data, got.Data)
	assert.Equal(t, domain.BackendQwen, got.Model)
	assert.Equal(t, 1024, got.Width)
	assert.Zero(t, got.CostUSD)
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)
	got, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestPutExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "ttl", &domain.ImageArtifact{Data: []byte("x")}, time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := c.Get(ctx, "ttl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutSkipsEmptyArtifact(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, c.Put(context.Background(), "empty", &domain.ImageArtifact{}, time.Minute))
	assert.False(t, mr.Exists("test:empty"))
}

func TestGetCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("test:bad", "{not json"))
	_, ok, err := c.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewParsesURL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))

	_, err = New("://nope")
	assert.Error(t, err)
}
