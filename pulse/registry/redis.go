package registry

import (
	"context"
	"sort"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/teranos/longrun/errors"
)

// DefaultRedisKeyPrefix namespaces registry keys in a shared Redis.
const DefaultRedisKeyPrefix = "longrun:"

// RedisBackend stores records as plain string values, with a set tracking all
// identities for enumeration. Writes that touch both go through a MULTI/EXEC
// pipeline so the value and the set never disagree.
//
// Keys:
//
//	<prefix>job:<id>   encoded record
//	<prefix>job_ids    set of every stored id
type RedisBackend struct {
	client goredis.Cmdable
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend creates a registry over client. The caller owns the client
// lifecycle. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisBackend(client goredis.Cmdable, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) Name() string { return BackendRedis }

func (r *RedisBackend) jobKey(id uuid.UUID) string { return r.prefix + "job:" + id.String() }
func (r *RedisBackend) idsKey() string            { return r.prefix + "job_ids" }

// Ping verifies the Redis connection is alive.
func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "failed to ping redis")
	}
	return nil
}

func (r *RedisBackend) Put(ctx context.Context, id uuid.UUID, data []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.jobKey(id), data, 0)
	pipe.SAdd(ctx, r.idsKey(), id.String())

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to put job %s", id)
	}
	return nil
}

func (r *RedisBackend) Get(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, err := r.client.Get(ctx, r.jobKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, errors.NewNotFoundError("job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get job %s", id)
	}
	return data, nil
}

func (r *RedisBackend) Remove(ctx context.Context, id uuid.UUID) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.jobKey(id))
	pipe.SRem(ctx, r.idsKey(), id.String())

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to remove job %s", id)
	}
	return nil
}

// Keys lists stored identities in string order.
func (r *RedisBackend) Keys(ctx context.Context) ([]uuid.UUID, error) {
	members, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	sort.Strings(members)

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			return nil, errors.Wrapf(errors.Mark(err, errors.ErrMalformedRecord), "registry key %q", m)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
