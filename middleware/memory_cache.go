package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/query"
)

// MemoryCacheMiddleware caches read results in process with sturdyc. Entries
// live for the configured TTL; the per-call ttl of core.WithCache only turns
// caching on. Concurrent misses on the same key run the statement once.
type MemoryCacheMiddleware struct {
	DefaultTTL time.Duration
	Capacity   int

	client   *sturdyc.Client[[]byte]
	versions sync.Map // table -> *atomic.Int64
	db       *core.DB
}

func NewMemoryCache(defaultTTL ...time.Duration) *MemoryCacheMiddleware {
	ttl := 5 * time.Minute
	if len(defaultTTL) > 0 {
		ttl = defaultTTL[0]
	}
	return &MemoryCacheMiddleware{
		DefaultTTL: ttl,
		Capacity:   10000,
	}
}

func (m *MemoryCacheMiddleware) Name() string {
	return "MemoryCache"
}

func (m *MemoryCacheMiddleware) Init(db *core.DB) error {
	m.db = db
	m.client = sturdyc.New[[]byte](m.Capacity, 10, m.DefaultTTL, 10)
	return nil
}

func (m *MemoryCacheMiddleware) Shutdown() error {
	return nil
}

// Size returns the number of cached entries.
func (m *MemoryCacheMiddleware) Size() int {
	return m.client.Size()
}

func (m *MemoryCacheMiddleware) version(table string) *atomic.Int64 {
	v, _ := m.versions.LoadOrStore(table, new(atomic.Int64))
	return v.(*atomic.Int64)
}

func (m *MemoryCacheMiddleware) Process(ctx context.Context, call *core.Call, next core.Handler) (*core.Result, error) {
	if call.Kind == query.KindExec {
		res, err := next(ctx, call)
		if err == nil {
			m.version(call.Statement.Table).Add(1)
		}
		return res, err
	}

	if _, ok := cacheable(ctx, call); !ok {
		return next(ctx, call)
	}
	key, err := entryKey(m.version(call.Statement.Table).Load(), call)
	if err != nil {
		m.db.Logger().Warn("memory cache: %v", err)
		return next(ctx, call)
	}

	var fetched *core.Result
	data, err := m.client.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		res, err := next(ctx, call)
		if err != nil {
			return nil, err
		}
		fetched = res
		return encodeResult(res)
	})
	if fetched != nil {
		return fetched, nil
	}
	if err != nil {
		return nil, err
	}

	res, err := decodeResult(data, call)
	if err != nil {
		m.db.Logger().Warn("memory cache: decode %s: %v", key, err)
		m.client.Delete(key)
		return next(ctx, call)
	}
	return res, nil
}
