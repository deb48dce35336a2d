package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Counters is an in-process implementation of both hook interfaces.
// All methods are safe for concurrent use.
type Counters struct {
	Layers       atomic.Int64
	LayerErrors  atomic.Int64
	Traces       atomic.Int64
	TraceErrors  atomic.Int64
	TraceNanos   atomic.Int64
	Writes       atomic.Int64
	WriteErrors  atomic.Int64
	BytesWritten atomic.Int64
	CacheHits    atomic.Int64
	CacheMisses  atomic.Int64
	CacheSets    atomic.Int64
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Layers       int64
	LayerErrors  int64
	Traces       int64
	TraceErrors  int64
	TraceTime    time.Duration
	Writes       int64
	WriteErrors  int64
	BytesWritten int64
	CacheHits    int64
	CacheMisses  int64
	CacheSets    int64
}

// Snapshot copies the current values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Layers:       c.Layers.Load(),
		LayerErrors:  c.LayerErrors.Load(),
		Traces:       c.Traces.Load(),
		TraceErrors:  c.TraceErrors.Load(),
		TraceTime:    time.Duration(c.TraceNanos.Load()),
		Writes:       c.Writes.Load(),
		WriteErrors:  c.WriteErrors.Load(),
		BytesWritten: c.BytesWritten.Load(),
		CacheHits:    c.CacheHits.Load(),
		CacheMisses:  c.CacheMisses.Load(),
		CacheSets:    c.CacheSets.Load(),
	}
}

func (c *Counters) OnLayerStart(context.Context, string, int) {}

func (c *Counters) OnLayerComplete(_ context.Context, _ string, _ int, _ int, _ time.Duration, err error) {
	c.Layers.Add(1)
	if err != nil {
		c.LayerErrors.Add(1)
	}
}

func (c *Counters) OnTrace(_ context.Context, _ string, d time.Duration, err error) {
	c.Traces.Add(1)
	c.TraceNanos.Add(int64(d))
	if err != nil {
		c.TraceErrors.Add(1)
	}
}

func (c *Counters) OnWrite(_ context.Context, _ string, size int, err error) {
	c.Writes.Add(1)
	if err != nil {
		c.WriteErrors.Add(1)
		return
	}
	c.BytesWritten.Add(int64(size))
}

func (c *Counters) OnCacheHit(context.Context, string)  { c.CacheHits.Add(1) }
func (c *Counters) OnCacheMiss(context.Context, string) { c.CacheMisses.Add(1) }
func (c *Counters) OnCacheSet(context.Context, string, int) {
	c.CacheSets.Add(1)
}

var (
	_ PipelineHooks = (*Counters)(nil)
	_ CacheHooks    = (*Counters)(nil)
)
