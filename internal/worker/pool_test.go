package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubResult struct {
	err error
}

func (r *stubResult) GetError() error { return r.err }

// countJob increments a shared counter when executed, optionally holding the
// worker for a moment so concurrency can be observed.
type countJob struct {
	ran     *int32
	active  *int32
	peak    *int32
	hold    time.Duration
	failure error
}

func (j *countJob) Execute(ctx context.Context) Result {
	if j.ran != nil {
		atomic.AddInt32(j.ran, 1)
	}
	if j.active != nil {
		n := atomic.AddInt32(j.active, 1)
		for {
			cur := atomic.LoadInt32(j.peak)
			if n <= cur || atomic.CompareAndSwapInt32(j.peak, cur, n) {
				break
			}
		}
		defer atomic.AddInt32(j.active, -1)
	}
	if j.hold > 0 {
		select {
		case <-time.After(j.hold):
		case <-ctx.Done():
		}
	}
	return &stubResult{err: j.failure}
}

func TestNewPoolClampsWorkerCount(t *testing.T) {
	for _, n := range []int{-3, 0, 1} {
		p := NewPool(n)
		if p.workers != 1 && n < 1 {
			t.Errorf("NewPool(%d): workers = %d, want 1", n, p.workers)
		}
	}
	if p := NewPool(8); p.workers != 8 {
		t.Errorf("NewPool(8): workers = %d, want 8", p.workers)
	}
}

func TestPoolRunsEveryJob(t *testing.T) {
	var ran int32
	p := NewPool(4)
	p.Start(context.Background())

	const jobs = 20
	for i := 0; i < jobs; i++ {
		if err := p.Submit(context.Background(), &countJob{ran: &ran}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	results := p.Wait()
	if len(results) != jobs {
		t.Fatalf("got %d results, want %d", len(results), jobs)
	}
	if got := atomic.LoadInt32(&ran); got != jobs {
		t.Errorf("ran %d jobs, want %d", got, jobs)
	}
	for _, res := range results {
		if res.GetError() != nil {
			t.Errorf("unexpected job error: %v", res.GetError())
		}
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var active, peak int32
	p := NewPool(2)
	p.Start(context.Background())

	for i := 0; i < 10; i++ {
		job := &countJob{active: &active, peak: &peak, hold: 10 * time.Millisecond}
		if err := p.Submit(context.Background(), job); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Wait()

	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Errorf("peak concurrency %d exceeds 2 workers", got)
	}
}

func TestPoolPropagatesJobErrors(t *testing.T) {
	wantErr := errors.New("verification exploded")
	p := NewPool(2)
	p.Start(context.Background())

	if err := p.Submit(context.Background(), &countJob{failure: wantErr}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := p.Submit(context.Background(), &countJob{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	results := p.Wait()
	var failed int
	for _, res := range results {
		if errors.Is(res.GetError(), wantErr) {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("got %d failed results, want 1", failed)
	}
}

func TestPoolSubmitAfterCancel(t *testing.T) {
	p := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	// Fill the queue so Submit would block without the ctx check. Workers may
	// already be gone, so nothing drains it.
	deadline := time.After(time.Second)
	for {
		err := p.Submit(ctx, &countJob{})
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("Submit error = %v, want context.Canceled", err)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("Submit never returned an error after cancel")
		default:
		}
	}

	p.Wait()
}

func TestPoolCancelStopsRun(t *testing.T) {
	var ran int32
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(1)
	p.Start(ctx)

	if err := p.Submit(ctx, &countJob{ran: &ran, hold: 5 * time.Millisecond}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}
