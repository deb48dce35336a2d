package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/histatlas/pkg/cache"
	"github.com/matzehuels/histatlas/pkg/observability"
)

const cacheKeyType = "trace"

// CachingTracer memoizes Inner by the SHA-256 of the encoded mask.
// Cache failures degrade to a plain trace and are logged at debug level.
type CachingTracer struct {
	Inner  Tracer
	Cache  cache.Cache
	Keyer  cache.Keyer
	Opts   cache.TraceKeyOpts
	Logger *log.Logger
}

// NewCachingTracer wraps inner. A nil cache disables memoization.
func NewCachingTracer(inner Tracer, c cache.Cache, opts cache.TraceKeyOpts, logger *log.Logger) *CachingTracer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachingTracer{Inner: inner, Cache: c, Keyer: cache.NewDefaultKeyer(), Opts: opts, Logger: logger}
}

// Trace implements Tracer.
func (t *CachingTracer) Trace(ctx context.Context, r io.Reader) (Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Fragment{}, err
	}
	key := t.Keyer.TraceKey(cache.Hash(data), t.Opts)
	hooks := observability.Cache()

	if raw, ok, err := t.Cache.Get(ctx, key); err != nil {
		t.Logger.Debug("trace cache read failed", "error", err)
	} else if ok {
		var f Fragment
		if err := json.Unmarshal(raw, &f); err == nil {
			hooks.OnCacheHit(ctx, cacheKeyType)
			return f, nil
		}
	}
	hooks.OnCacheMiss(ctx, cacheKeyType)

	f, err := t.Inner.Trace(ctx, bytes.NewReader(data))
	if err != nil {
		return Fragment{}, err
	}
	if raw, err := json.Marshal(f); err == nil {
		if err := t.Cache.Set(ctx, key, raw, cache.TTLTrace); err != nil {
			t.Logger.Debug("trace cache write failed", "error", err)
		} else {
			hooks.OnCacheSet(ctx, cacheKeyType, len(raw))
		}
	}
	return f, nil
}

var _ Tracer = (*CachingTracer)(nil)
