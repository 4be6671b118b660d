package rewrite

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPersisterRunsSubmittedWork(t *testing.T) {
	p := NewPersister(4)
	var ran atomic.Int32

	for i := 0; i < 10; i++ {
		p.Submit("test write", func(context.Context) error {
			ran.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := ran.Load(); got != 10 {
		t.Errorf("expected 10 writes, got %d", got)
	}
}

func TestPersisterSwallowsFailures(t *testing.T) {
	p := NewPersister(1)

	p.Submit("failing write", func(context.Context) error {
		return errors.New("disk on fire")
	})
	p.Submit("panicking write", func(context.Context) error {
		panic("boom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close failed after failing work: %v", err)
	}
}

func TestPersisterSubmitDoesNotBlockCaller(t *testing.T) {
	p := NewPersister(1)
	release := make(chan struct{})

	p.Submit("slow write", func(context.Context) error {
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		p.Submit("queued write", func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked the caller")
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestPersisterCloseTimesOut(t *testing.T) {
	p := NewPersister(1)
	release := make(chan struct{})
	defer close(release)

	p.Submit("stuck write", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Close(ctx); err == nil {
		t.Fatal("expected Close to report timeout with work still in flight")
	}
}
