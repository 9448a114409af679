package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
)

const defaultPrefix = "waiwahost:availability:"

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Redis shares cached reads between instances. Every key embeds the current
// generation; Invalidate bumps it, so stale entries are never read again and
// expire on their TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(client *redis.Client, ttl time.Duration, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, ttl: ttl, prefix: prefix}
}

func (r *Redis) generationKey() string { return r.prefix + "gen" }

func (r *Redis) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s%d:%s", r.prefix, gen, key)
}

func (r *Redis) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, r.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) Get(ctx context.Context, key string, out any) (bool, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return false, err
	}
	raw, err := r.client.Get(ctx, r.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	gen, err := r.generation(ctx)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.entryKey(gen, key), payload, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context) error {
	return r.client.Incr(ctx, r.generationKey()).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ middleware.QueryCache = (*Redis)(nil)
