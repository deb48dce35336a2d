package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnLayerStart(ctx, "coronal", 0)
	p.OnLayerComplete(ctx, "coronal", 0, 3, time.Second, nil)
	p.OnTrace(ctx, "Xl", time.Millisecond, nil)
	p.OnWrite(ctx, "coronal/svgs/00.svg", 1024, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "trace")
	c.OnCacheMiss(ctx, "trace")
	c.OnCacheSet(ctx, "trace", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	counters := &Counters{}
	SetPipelineHooks(counters)
	SetCacheHooks(counters)
	if Pipeline() != counters {
		t.Error("SetPipelineHooks should set custom hooks")
	}
	if Cache() != counters {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &Counters{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)
	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should not replace existing hooks")
	}
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	c := &Counters{}
	boom := errors.New("boom")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%5 == 0 {
				err = boom
			}
			c.OnTrace(ctx, "X", time.Millisecond, err)
			c.OnWrite(ctx, "k", 100, err)
			c.OnLayerComplete(ctx, "coronal", i, 1, time.Millisecond, nil)
			c.OnCacheMiss(ctx, "trace")
		}(i)
	}
	wg.Wait()
	c.OnCacheHit(ctx, "trace")
	c.OnCacheSet(ctx, "trace", 10)

	s := c.Snapshot()
	if s.Traces != 10 || s.TraceErrors != 2 {
		t.Errorf("traces = %d/%d, want 10/2", s.Traces, s.TraceErrors)
	}
	if s.TraceTime != 10*time.Millisecond {
		t.Errorf("trace time = %v, want 10ms", s.TraceTime)
	}
	if s.Writes != 10 || s.WriteErrors != 2 || s.BytesWritten != 800 {
		t.Errorf("writes = %d/%d/%d, want 10/2/800", s.Writes, s.WriteErrors, s.BytesWritten)
	}
	if s.Layers != 10 || s.LayerErrors != 0 {
		t.Errorf("layers = %d/%d, want 10/0", s.Layers, s.LayerErrors)
	}
	if s.CacheHits != 1 || s.CacheMisses != 10 || s.CacheSets != 1 {
		t.Errorf("cache = %d/%d/%d, want 1/10/1", s.CacheHits, s.CacheMisses, s.CacheSets)
	}
}
