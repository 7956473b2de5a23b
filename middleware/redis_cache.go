package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/query"
)

const versionPrefix = "jdao:ver:"

// RedisCacheMiddleware caches read results in Redis. Table versions live in
// Redis too, so every process sharing the server sees the same invalidations.
type RedisCacheMiddleware struct {
	Client redis.UniversalClient
	db     *core.DB
}

func NewRedisCache(opt *redis.Options) *RedisCacheMiddleware {
	return &RedisCacheMiddleware{
		Client: redis.NewClient(opt),
	}
}

func (m *RedisCacheMiddleware) Name() string {
	return "RedisCache"
}

func (m *RedisCacheMiddleware) Init(db *core.DB) error {
	m.db = db
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx).Err()
}

func (m *RedisCacheMiddleware) Shutdown() error {
	return m.Client.Close()
}

func (m *RedisCacheMiddleware) version(ctx context.Context, table string) (int64, error) {
	v, err := m.Client.Get(ctx, versionPrefix+table).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (m *RedisCacheMiddleware) Process(ctx context.Context, call *core.Call, next core.Handler) (*core.Result, error) {
	if call.Kind == query.KindExec {
		res, err := next(ctx, call)
		if err == nil {
			if ierr := m.Client.Incr(ctx, versionPrefix+call.Statement.Table).Err(); ierr != nil {
				m.db.Logger().Error("redis cache: invalidate %s: %v", call.Statement.Table, ierr)
			}
		}
		return res, err
	}

	ttl, ok := cacheable(ctx, call)
	if !ok {
		return next(ctx, call)
	}
	if ttl == core.CacheForever {
		ttl = 0 // no expiration
	}

	version, err := m.version(ctx, call.Statement.Table)
	if err != nil {
		m.db.Logger().Warn("redis cache: %v", err)
		return next(ctx, call)
	}
	key, err := entryKey(version, call)
	if err != nil {
		m.db.Logger().Warn("redis cache: %v", err)
		return next(ctx, call)
	}

	data, err := m.Client.Get(ctx, key).Bytes()
	if err == nil {
		if res, derr := decodeResult(data, call); derr == nil {
			return res, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		m.db.Logger().Warn("redis cache: get %s: %v", key, err)
	}

	res, err := next(ctx, call)
	if err != nil {
		return res, err
	}
	if data, err := encodeResult(res); err == nil {
		if err := m.Client.Set(ctx, key, data, ttl).Err(); err != nil {
			m.db.Logger().Warn("redis cache: set %s: %v", key, err)
		}
	}
	return res, nil
}
