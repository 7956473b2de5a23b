package core

import (
	"context"
	"time"

	"github.com/shrek82/jdao/query"
	"github.com/shrek82/jdao/stmt"
)

// Component is the base interface for all jdao components/middleware.
type Component interface {
	Name() string
	Init(db *DB) error
	Shutdown() error
}

// Call is one statement execution travelling through the middleware chain.
type Call struct {
	Statement *stmt.Statement
	Param     any
	Args      []any
	Kind      query.Kind
	Dest      any    // pointer to a slice for KindRows, pointer to a value for KindScalar
	SessionID string // set for calls made in a transaction or a batched session
	Fields    map[string]any
}

// WithFields attaches log fields to the call.
func (c *Call) WithFields(fields map[string]any) {
	if c.Fields == nil {
		c.Fields = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		c.Fields[k] = v
	}
}

// Result represents the result of a statement execution.
type Result struct {
	RowsAffected int64 // rows written for KindExec, rows read otherwise
	Data         any   // the call's destination once filled
	Cached       bool
}

// Handler is the function type for the next step in the middleware chain.
type Handler func(ctx context.Context, call *Call) (*Result, error)

// Middleware intercepts statement executions.
type Middleware interface {
	Component
	Process(ctx context.Context, call *Call, next Handler) (*Result, error)
}

// chain wraps final so that mws[0] runs first.
func chain(mws []Middleware, final Handler) Handler {
	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], h
		h = func(ctx context.Context, call *Call) (*Result, error) {
			return mw.Process(ctx, call, next)
		}
	}
	return h
}

type cacheKey struct{}

// CacheForever asks result caches to keep an entry until the table changes.
const CacheForever time.Duration = -1

// WithCache marks reads made with ctx as cacheable for ttl. A zero ttl
// disables caching for the call.
func WithCache(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheKey{}, ttl)
}

// CacheTTL returns the ttl requested with WithCache.
func CacheTTL(ctx context.Context) (time.Duration, bool) {
	ttl, ok := ctx.Value(cacheKey{}).(time.Duration)
	if !ok || ttl == 0 {
		return 0, false
	}
	return ttl, true
}
