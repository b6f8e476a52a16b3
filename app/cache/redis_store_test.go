package cache

import (
	"context"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	store := NewRedisStore(client, "mediumplus-test:")
	t.Cleanup(func() { store.Close() })
	return store, srv
}

func TestRedisStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store, srv := newTestRedisStore(t)

	_, err := store.Get(ctx, "post:missing")
	assert.ErrorIs(t, err, ErrMiss)

	page := NewPage(http.StatusOK, "text/html", []byte("<p>shared</p>"))
	require.NoError(t, store.Put(ctx, "post:shared", page))

	got, err := store.Get(ctx, "post:shared")
	require.NoError(t, err)
	assert.Equal(t, page.ETag, got.ETag)
	assert.Equal(t, page.Body, got.Body)
	assert.True(t, srv.Exists("mediumplus-test:post:shared"))
	assert.Zero(t, srv.TTL("mediumplus-test:post:shared"), "pages are stored without expiry")

	require.NoError(t, srv.Set("other:post:x", "not ours"))
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"post:shared"}, keys)

	require.NoError(t, store.Delete(ctx, "post:shared"))
	_, err = store.Get(ctx, "post:shared")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	store, srv := newTestRedisStore(t)
	require.NoError(t, srv.Set("mediumplus-test:post:bad", "{not json"))

	_, err := store.Get(context.Background(), "post:bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	store := NewRedisStore(client, "")
	defer store.Close()

	assert.Equal(t, DefaultRedisPrefix, store.prefix)
	_, err := store.Get(context.Background(), "post:x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
