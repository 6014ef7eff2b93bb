package synq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrQueueClosed   = errors.New("queue closed")
	ErrQueueDraining = errors.New("queue draining")
)

type node[T any] struct {
	value T
	next  *node[T]
}

// Queue is an unbounded FIFO queue that is safe for concurrent use.
// Consumers block on Next until an item arrives, the queue is closed,
// or the context is canceled.
type Queue[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc

	head     *node[T]
	tail     *node[T]
	mu       sync.Mutex
	closed   atomic.Bool
	draining atomic.Bool
	count    int64

	notify chan struct{}
}

func NewQueue[T any](ctx context.Context) *Queue[T] {
	qCtx, cancel := context.WithCancel(ctx)
	return &Queue[T]{
		ctx:    qCtx,
		cancel: cancel,
		notify: make(chan struct{}, 1),
	}
}

func (q *Queue[T]) Push(values ...T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.draining.Load() {
		return ErrQueueDraining
	}

	if q.closed.Load() {
		return ErrQueueClosed
	}

	for _, v := range values {
		q.append(v)
	}

	// Signal waiting consumers
	select {
	case q.notify <- struct{}{}:
	default:
	}

	return nil
}

func (q *Queue[T]) append(value T) {
	newNode := &node[T]{value: value}
	if q.tail == nil {
		q.head = newNode
		q.tail = newNode
	} else {
		q.tail.next = newNode
		q.tail = newNode
	}
	atomic.AddInt64(&q.count, 1)
}

func (q *Queue[T]) pop() (T, bool) {
	var zero T
	if q.head == nil {
		return zero, false
	}

	value := q.head.value
	q.head = q.head.next
	if q.head == nil {
		q.tail = nil
	}
	atomic.AddInt64(&q.count, -1)

	return value, true
}

func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.pop()
}

// PopN pops up to n items from the queue.
func (q *Queue[T]) PopN(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.Len() < n {
		n = q.Len()
	}

	values := make([]T, n)
	for i := range values {
		values[i], _ = q.pop()
	}
	return values
}

// Next will block while the queue is empty and not closed.
func (q *Queue[T]) Next() (T, bool) {
	var zero T
	for {
		q.mu.Lock()
		if value, ok := q.pop(); ok {
			q.mu.Unlock()
			return value, true
		}
		if q.closed.Load() {
			q.mu.Unlock()
			return zero, false
		}
		q.mu.Unlock()

		// Wait for new items or context cancellation
		select {
		case <-q.notify:
			continue
		case <-q.ctx.Done():
			return zero, false
		}
	}
}

func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	remainingCount := q.Len()

	q.closed.Store(true)
	q.head = nil
	q.tail = nil
	atomic.StoreInt64(&q.count, 0)
	q.cancel() // Cancel the context

	// Signal blocked consumers so they observe the close
	select {
	case q.notify <- struct{}{}:
	default:
	}

	if remainingCount > 0 {
		return fmt.Errorf("queue was not empty when closed: %d", remainingCount)
	}

	return nil
}

// Drain drains the queue and returns when the queue is empty or
// the timeout expires. Drain is permanent.
func (q *Queue[T]) Drain(d time.Duration) error {
	q.draining.Store(true)

	ctx, cancel := context.WithTimeout(q.ctx, d)
	defer cancel()

	for {
		q.mu.Lock()
		if q.head == nil || q.closed.Load() {
			q.mu.Unlock()
			return nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			time.Sleep(10 * time.Millisecond) // Small delay to avoid busy-waiting
		}
	}
}

func (q *Queue[T]) IsClosed() bool {
	return q.closed.Load()
}

func (q *Queue[T]) IsDraining() bool {
	return q.draining.Load()
}

func (q *Queue[T]) Len() int {
	return int(atomic.LoadInt64(&q.count))
}
