package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/logging"
)

// DefaultQueueSize is the queue depth used when New is given a size < 1
const DefaultQueueSize = 32

// ErrNotRunning is returned by Flush when the worker is not running
var ErrNotRunning = errors.New("scheduler is not running")

// Callback is a deferred call; arg is the value passed to Schedule
type Callback func(arg any)

type item struct {
	fn     Callback
	arg    any
	marker bool
}

// Scheduler runs callbacks on a single worker goroutine, in the order they
// were scheduled. Schedule never blocks: when the queue is full the new item
// is dropped and counted.
type Scheduler struct {
	queue chan item

	mu      sync.RWMutex
	started bool
	closed  bool
	done    chan struct{}

	// set while the worker is inside a callback
	inCallback atomic.Bool

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// New creates a scheduler with room for size pending callbacks. The worker
// is not started until Start is called; callbacks scheduled before that are
// queued.
func New(size int) *Scheduler {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Scheduler{
		queue: make(chan item, size),
		done:  make(chan struct{}),
	}
}

// Start launches the worker goroutine. It is safe to call more than once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	go s.run()
}

// Schedule queues fn(arg) for execution on the worker. It reports false if
// the item was dropped because the queue is full or the scheduler is closed.
func (s *Scheduler) Schedule(fn Callback, arg any) bool {
	if fn == nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return false
	}

	select {
	case s.queue <- item{fn: fn, arg: arg}:
		return true
	default:
		n := s.dropped.Add(1)
		logging.Debug("Scheduler queue full, dropping callback",
			zap.Int("capacity", cap(s.queue)),
			zap.Uint64("dropped_total", n),
		)
		return false
	}
}

// Flush blocks until every callback scheduled before the call has run, or
// ctx is done. It must not be called from a callback: the worker would wait
// on itself until ctx is done.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.RLock()
	if !s.started || s.closed {
		s.mu.RUnlock()
		return ErrNotRunning
	}

	reached := make(chan struct{})
	marker := item{fn: func(any) { close(reached) }, marker: true}
	select {
	case s.queue <- marker:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting callbacks, runs the ones already queued and waits
// for the worker to exit. Callbacks still queued on a never-started
// scheduler are discarded.
//
// When a callback is running, Close only closes the queue and returns; the
// worker finishes the queued callbacks after the running one returns. This
// lets a callback close its own scheduler.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wait()
		return
	}
	s.closed = true
	started := s.started
	close(s.queue)
	s.mu.Unlock()

	if !started {
		for range s.queue {
			s.dropped.Add(1)
		}
		close(s.done)
		return
	}
	s.wait()
}

func (s *Scheduler) wait() {
	if s.inCallback.Load() {
		return
	}
	<-s.done
}

// Pending returns the number of queued callbacks
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Dropped returns how many callbacks were discarded
func (s *Scheduler) Dropped() uint64 {
	return s.dropped.Load()
}

// Delivered returns how many callbacks have run
func (s *Scheduler) Delivered() uint64 {
	return s.delivered.Load()
}

func (s *Scheduler) run() {
	defer close(s.done)
	for it := range s.queue {
		s.invoke(it)
	}
}

func (s *Scheduler) invoke(it item) {
	s.inCallback.Store(true)
	defer func() {
		s.inCallback.Store(false)
		if r := recover(); r != nil {
			logging.Error("Scheduled callback panicked",
				zap.Any("panic", r),
			)
		}
	}()
	it.fn(it.arg)
	if !it.marker {
		s.delivered.Add(1)
	}
}
