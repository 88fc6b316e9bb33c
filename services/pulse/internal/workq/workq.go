// services/pulse/internal/workq/workq.go

// Package workq runs deferred work handed off from interrupt context.
// Submit does a fast non-blocking enqueue (safe from an ISR); a single
// worker goroutine executes the functions in order, outside interrupt
// context.
package workq

import (
	"context"
	"sync/atomic"
)

type Worker struct {
	// Written by ISR; MUST NOT block the ISR:
	q       chan func()
	stopped chan struct{}

	drops uint32 // ISR-side drop counter
}

func New(depth int) *Worker {
	if depth <= 0 {
		depth = 16
	}
	return &Worker{
		q:       make(chan func(), depth),
		stopped: make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case fn := <-w.q:
				fn()
			}
		}
	}()
}

// Schedule enqueues fn without blocking. Returns false and counts a drop
// when the queue is full.
func (w *Worker) Schedule(fn func()) bool {
	select {
	case w.q <- fn:
		return true
	default:
		atomic.AddUint32(&w.drops, 1) // protect ISR path
		return false
	}
}

func (w *Worker) Drops() uint32 { return atomic.LoadUint32(&w.drops) }

// Stopped closes once the worker loop has exited.
func (w *Worker) Stopped() <-chan struct{} { return w.stopped }
