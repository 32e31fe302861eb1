package registry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/longrun/errors"
	lrtest "github.com/teranos/longrun/internal/testing"
)

// newRedisBackend starts an in-process Redis and returns a backend over it.
func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisBackend(client, "test:"), mr
}

func backends(t *testing.T) map[string]Backend {
	redisBackend, _ := newRedisBackend(t)
	return map[string]Backend{
		BackendMemory: NewMemoryBackend(),
		BackendSQLite: NewSQLiteBackend(lrtest.CreateRegistryTestDB(t)),
		BackendRedis:  redisBackend,
	}
}

func TestBackendContract(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.Equal(t, name, b.Name())

			a, c := uuid.New(), uuid.New()

			_, err := b.Get(ctx, a)
			assert.True(t, errors.IsNotFoundError(err), "missing record: got %v", err)

			keys, err := b.Keys(ctx)
			require.NoError(t, err)
			assert.Empty(t, keys)

			require.NoError(t, b.Put(ctx, a, []byte("first\x00")))
			require.NoError(t, b.Put(ctx, c, []byte("other\x00")))

			got, err := b.Get(ctx, a)
			require.NoError(t, err)
			assert.Equal(t, []byte("first\x00"), got, "terminator byte survives storage")

			// Put replaces
			require.NoError(t, b.Put(ctx, a, []byte("second\x00")))
			got, err = b.Get(ctx, a)
			require.NoError(t, err)
			assert.Equal(t, []byte("second\x00"), got)

			keys, err = b.Keys(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []uuid.UUID{a, c}, keys)

			require.NoError(t, b.Remove(ctx, a))
			_, err = b.Get(ctx, a)
			assert.True(t, errors.IsNotFoundError(err))

			require.NoError(t, b.Remove(ctx, a), "removing a missing record is not an error")

			keys, err = b.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{c}, keys)
		})
	}
}

func TestMemoryBackendCopiesData(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	id := uuid.New()

	data := []byte("abc")
	require.NoError(t, b.Put(ctx, id, data))
	data[0] = 'x'

	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'y'
	again, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestRedisBackendKeys(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)
	id := uuid.New()

	require.NoError(t, b.Put(ctx, id, []byte("rec")))
	assert.True(t, mr.Exists("test:job:"+id.String()))
	ok, err := mr.SIsMember("test:job_ids", id.String())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.Remove(ctx, id))
	assert.False(t, mr.Exists("test:job:"+id.String()))
}

func TestRedisBackendDefaultPrefix(t *testing.T) {
	b := NewRedisBackend(nil, "")
	assert.Equal(t, "longrun:job_ids", b.idsKey())
}

func TestRedisBackendRejectsForeignKeys(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBackend(t)

	_, err := mr.SAdd("test:job_ids", "not-a-uuid")
	require.NoError(t, err)

	_, err = b.Keys(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedRecord))
}

func TestRedisBackendUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	b := NewRedisBackend(client, "")
	mr.Close()

	assert.Error(t, b.Ping(ctx))
	assert.Error(t, b.Put(ctx, uuid.New(), []byte("rec")))

	_, err = b.Get(ctx, uuid.New())
	require.Error(t, err)
	assert.False(t, errors.IsNotFoundError(err), "connection failures are not misses")
}
