package middleware

import (
	"context"
	"log/slog"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/queries"
)

// QueryCache stores read results. Invalidate drops every entry at once;
// writes are rare next to calendar reads.
type QueryCache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) error
}

// CacheableQuery results are safe to share between callers with the same key.
type CacheableQuery interface {
	queries.Query
	CacheKey() string
	ResultPrototype() any
}

// QueryCaching answers cacheable queries from cache. Cache failures are
// logged and the query runs normally.
func QueryCaching(cache QueryCache, logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		if cache == nil {
			return nextFn
		}
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			cq, ok := q.(CacheableQuery)
			if !ok || cq.CacheKey() == "" {
				return nextFn(ctx, q)
			}
			key := q.Key() + ":" + cq.CacheKey()
			if proto := cq.ResultPrototype(); proto != nil {
				hit, err := cache.Get(ctx, key, proto)
				if err != nil {
					logCache(logger, "query cache read failed", key, err)
				} else if hit {
					return normalizePrototype(proto), nil
				}
			}
			res, err := nextFn(ctx, q)
			if err != nil {
				return nil, err
			}
			if err := cache.Set(ctx, key, res); err != nil {
				logCache(logger, "query cache write failed", key, err)
			}
			return res, nil
		})
	}
}

// CacheInvalidation drops cached reads after every successful command.
func CacheInvalidation(cache QueryCache, logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		if cache == nil {
			return nextFn
		}
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := cache.Invalidate(ctx); err != nil {
				logCache(logger, "query cache invalidation failed", cmd.Key(), err)
			}
			return res, nil
		})
	}
}

func logCache(logger *slog.Logger, msg, key string, err error) {
	if logger == nil {
		return
	}
	logger.Warn(msg, "key", key, "error", err)
}
