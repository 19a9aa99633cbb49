package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps values under a key namespace in Redis.
// Lists map onto Redis lists (RPUSH / LPUSH+LTRIM / LRANGE).
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisStore connects to a single node, or a cluster when more than one address is given
func NewRedisStore(addrs []string, password, namespace string) (*RedisStore, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("at least one redis address is required")
	}

	var rdb redis.UniversalClient
	if len(addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addrs[0],
			Password: password,
			DB:       0,
		})
	}

	return NewRedisStoreWithClient(rdb, namespace), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

// Ping checks connectivity
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Append(ctx context.Context, key string, value []byte) error {
	if err := r.client.RPush(ctx, r.key(key), value).Err(); err != nil {
		return fmt.Errorf("failed to append to list %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Prepend(ctx context.Context, key string, value []byte, max int) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key(key), value)
	if max > 0 {
		pipe.LTrim(ctx, r.key(key), 0, int64(max-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to prepend to list %s: %w", key, err)
	}
	return nil
}

// Apply queues the batch inside one MULTI/EXEC
func (r *RedisStore) Apply(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	for _, op := range ops {
		if op.Kind < OpSet || op.Kind > OpPrepend {
			return fmt.Errorf("unsupported op %s on key %s", op.Kind, op.Key)
		}
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			key := r.key(op.Key)
			switch op.Kind {
			case OpSet:
				pipe.Set(ctx, key, op.Value, 0)
			case OpRemove:
				pipe.Del(ctx, key)
			case OpAppend:
				pipe.RPush(ctx, key, op.Value)
			case OpPrepend:
				pipe.LPush(ctx, key, op.Value)
				if op.Max > 0 {
					pipe.LTrim(ctx, key, 0, int64(op.Max-1))
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply %d ops: %w", len(ops), err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context, key string) ([][]byte, error) {
	values, err := r.client.LRange(ctx, r.key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read list %s: %w", key, err)
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
