package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKVPrefix namespaces every key the key-value backend writes.
const DefaultKVPrefix = "ecofinds"

// kvCollection stores one record kind as JSON values in a single Redis hash,
// keyed by record ID. Owner filters run in process over the whole hash.
type kvCollection[T any] struct {
	rdb *redis.Client
	key string
}

func newKVCollection[T any](rdb *redis.Client, prefix, name string) kvCollection[T] {
	if prefix == "" {
		prefix = DefaultKVPrefix
	}
	return kvCollection[T]{rdb: rdb, key: prefix + ":" + name}
}

func (c kvCollection[T]) get(ctx context.Context, id string) (*T, error) {
	raw, err := c.rdb.HGet(ctx, c.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGET %s: %w", c.key, err)
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c.key, id, err)
	}
	return &v, nil
}

func (c kvCollection[T]) all(ctx context.Context) ([]T, error) {
	raws, err := c.rdb.HVals(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HVALS %s: %w", c.key, err)
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c kvCollection[T]) filter(ctx context.Context, keep func(T) bool) ([]T, error) {
	records, err := c.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c kvCollection[T]) exists(ctx context.Context, id string) (bool, error) {
	ok, err := c.rdb.HExists(ctx, c.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("redis HEXISTS %s: %w", c.key, err)
	}
	return ok, nil
}

// put overwrites the record stored under id.
func (c kvCollection[T]) put(ctx context.Context, id string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.key, id, err)
	}
	if err := c.rdb.HSet(ctx, c.key, id, b).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", c.key, err)
	}
	return nil
}

// putNew stores v only if id is unused.
func (c kvCollection[T]) putNew(ctx context.Context, id string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.key, id, err)
	}
	ok, err := c.rdb.HSetNX(ctx, c.key, id, b).Result()
	if err != nil {
		return fmt.Errorf("redis HSETNX %s: %w", c.key, err)
	}
	if !ok {
		return fmt.Errorf("%s/%s already exists: %w", c.key, id, ErrConstraintViolation)
	}
	return nil
}

// putMany writes all records with a single HSET, which Redis applies atomically.
func (c kvCollection[T]) putMany(ctx context.Context, ids []string, values []T) error {
	args := make([]interface{}, 0, 2*len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", c.key, ids[i], err)
		}
		args = append(args, ids[i], b)
	}
	if len(args) == 0 {
		return nil
	}
	if err := c.rdb.HSet(ctx, c.key, args...).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", c.key, err)
	}
	return nil
}

// del removes ids and reports how many existed.
func (c kvCollection[T]) del(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := c.rdb.HDel(ctx, c.key, ids...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis HDEL %s: %w", c.key, err)
	}
	return int(n), nil
}
