// Package poll keeps dashboard figures approximately live by refetching them on fixed
// intervals.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

// Snapshot is what a task knows after its latest tick. Previous holds the value that Value
// replaced on the last successful fetch.
type Snapshot[T any] struct {
	Value         T
	Previous      T
	HasValue      bool
	HasPrevious   bool
	LastFetchedAt time.Time
	Fetching      bool
}

// Task refetches one data source. Ticks of the same task never overlap.
type Task[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	logger   *slog.Logger
	now      func() time.Time

	// OnSuccess runs after each successful fetch with the new value.
	OnSuccess func(T)

	tickMu      sync.Mutex
	mu          sync.RWMutex
	snap        Snapshot[T]
	subscribers []chan<- string
}

func NewTask[T any](name string, interval time.Duration, fetch FetchFunc[T], logger *slog.Logger) *Task[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Task[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		logger:   logger,
		now:      time.Now,
	}
}

func (t *Task[T]) Name() string {
	return t.name
}

func (t *Task[T]) Interval() time.Duration {
	return t.interval
}

// Subscribe registers ch to receive the task name after every successful fetch. Sends never
// block; a full channel misses the notification.
func (t *Task[T]) Subscribe(ch chan<- string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, ch)
}

func (t *Task[T]) Snapshot() Snapshot[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Tick performs one fetch and reports whether it succeeded. A failure keeps the last good
// value.
func (t *Task[T]) Tick(ctx context.Context) bool {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()

	t.setFetching(true)
	defer t.setFetching(false)

	value, err := t.safeFetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			t.logger.Warn("poll fetch failed", "task", t.name, "error", err)
		}
		return false
	}

	t.mu.Lock()
	if t.snap.HasValue {
		t.snap.Previous = t.snap.Value
		t.snap.HasPrevious = true
	}
	t.snap.Value = value
	t.snap.HasValue = true
	t.snap.LastFetchedAt = t.now()
	subscribers := make([]chan<- string, len(t.subscribers))
	copy(subscribers, t.subscribers)
	t.mu.Unlock()

	if t.OnSuccess != nil {
		t.OnSuccess(value)
	}

	for _, sub := range subscribers {
		select {
		case sub <- t.name:
		default:
		}
	}
	return true
}

func (t *Task[T]) safeFetch(ctx context.Context) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return t.fetch(ctx)
}

func (t *Task[T]) setFetching(v bool) {
	t.mu.Lock()
	t.snap.Fetching = v
	t.mu.Unlock()
}

// Start ticks once immediately and then every interval until ctx is done or the returned
// handle is stopped.
func (t *Task[T]) Start(ctx context.Context) *Handle {
	return start(ctx, t.interval, t.Tick)
}

// Handle stops a running task.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func start(parent context.Context, interval time.Duration, tick func(context.Context) bool) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)

		tick(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				tick(ctx)
			}
		}
	}()

	return h
}

// Stop cancels the loop and waits for an in-flight tick to return. It is safe to call more
// than once.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

type panicError struct {
	value interface{}
}

func (e panicError) Error() string {
	return fmt.Sprintf("fetch panicked: %v", e.value)
}
