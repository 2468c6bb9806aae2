package storage

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/redis"
)

type redisClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Apply(ctx context.Context, writes []redis.Write, ttl time.Duration) error
}

// Redis stores values as plain strings; Apply runs in MULTI/EXEC. Every key
// except persistent ones gets the configured ttl.
type Redis struct {
	client redisClient
	ttl    time.Duration
	logg   *logger.Logger
}

// NewRedis wraps a redis client. A zero ttl keeps keys forever.
func NewRedis(client redisClient, ttl time.Duration, logg *logger.Logger) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Redis{client: client, ttl: ttl, logg: logg}, nil
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := r.client.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "redis read "+key)
	}
	return decodeInto(ctx, r.logg, key, raw, dest), nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	return r.Apply(ctx, SetOp(key, value))
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.Apply(ctx, RemoveOp(key))
}

func (r *Redis) Apply(ctx context.Context, ops ...Op) error {
	encoded, err := encodeOps(ops)
	if err != nil {
		return err
	}
	writes := make([]redis.Write, 0, len(encoded))
	for _, op := range encoded {
		writes = append(writes, redis.Write{Key: op.key, Value: op.data, Persistent: op.persistent})
	}
	if err := r.client.Apply(ctx, writes, r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "redis write batch")
	}
	return nil
}
