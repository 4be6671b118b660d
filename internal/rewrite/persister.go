package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Persister runs detached persistence work after the rewrite response has
// already been delivered. Failures are logged, never surfaced to the caller.
// A weighted semaphore bounds how many writes run at once so a burst of
// rewrites cannot exhaust the store's connection pool.
type Persister struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPersister creates a Persister allowing up to maxConcurrent writes.
func NewPersister(maxConcurrent int64) *Persister {
	ctx, cancel := context.WithCancel(context.Background())
	return &Persister{
		sem:    semaphore.NewWeighted(maxConcurrent),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit schedules fn without blocking the caller. fn receives the
// persister's own context, detached from the request that spawned it, so the
// write survives the response being delivered first. op names the work in
// failure logs.
func (p *Persister) Submit(op string, fn func(context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("detached persistence panicked", "op", op, "panic", r)
			}
		}()

		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			slog.Warn("detached persistence skipped, persister closed", "op", op)
			return
		}
		defer p.sem.Release(1)

		if err := fn(p.ctx); err != nil {
			slog.Error("detached persistence failed", "op", op, "error", err)
		}
	}()
}

// Close waits for in-flight writes to finish, bounded by ctx, then stops
// accepting work. Call during graceful shutdown.
func (p *Persister) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return fmt.Errorf("persister close: %w", ctx.Err())
	}
}
