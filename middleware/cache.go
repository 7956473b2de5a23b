package middleware

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/query"
)

// Result caches key entries by table version: every successful write on a
// table bumps its version, so entries read before the write are never served
// again. Writes queued on a batched session invalidate when queued. Reads
// inside a transaction or batch may see uncommitted rows and are never cached.

const keyPrefix = "jdao:cache:"

// cacheable reports whether a call is a read asked to be cached, and its ttl.
func cacheable(ctx context.Context, call *core.Call) (time.Duration, bool) {
	if call.Kind == query.KindExec || call.SessionID != "" || call.Dest == nil {
		return 0, false
	}
	return core.CacheTTL(ctx)
}

// entryKey derives the cache key of a read from the table version, the
// statement and its arguments.
func entryKey(version int64, call *core.Call) (string, error) {
	args, err := msgpack.Marshal(call.Args)
	if err != nil {
		return "", fmt.Errorf("encode args: %w", err)
	}
	return fmt.Sprintf("%s%s:v%d:%016x:%016x", keyPrefix, call.Statement.Table, version,
		xxhash.Sum64String(call.Statement.ID), xxhash.Sum64(args)), nil
}

func encodeResult(res *core.Result) ([]byte, error) {
	return msgpack.Marshal(res.Data)
}

// decodeResult fills the call's destination from a cached payload. On failure
// the destination is reset so the caller can fall back to the database.
func decodeResult(data []byte, call *core.Call) (*core.Result, error) {
	if err := msgpack.Unmarshal(data, call.Dest); err != nil {
		dv := reflect.ValueOf(call.Dest).Elem()
		dv.Set(reflect.Zero(dv.Type()))
		return nil, err
	}
	return &core.Result{Data: call.Dest, Cached: true}, nil
}
