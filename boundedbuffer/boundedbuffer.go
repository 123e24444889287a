package boundedbuffer

import (
	"context"
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrInvalidCapacity is returned by constructors when capacity is not positive.
var ErrInvalidCapacity = errors.New("boundedbuffer: capacity must be positive")

// Buffer is the surface shared by the condition-variable implementation and
// the channel-backed one. Put and Take block unconditionally; the Context
// variants return the context error instead of blocking forever.
type Buffer[T any] interface {
	Put(item T)
	Take() T
	PutContext(ctx context.Context, item T) error
	TakeContext(ctx context.Context) (T, error)
	Size() int
	Capacity() int
}

// Stats holds occupancy counters for a buffer.
type Stats struct {
	Puts    uint64
	Takes   uint64
	MaxSize int
}

// BoundedBuffer is a fixed-capacity FIFO buffer for the producer-consumer
// pattern. All state is guarded by one mutex with two condition variables,
// one per wait predicate (space available, item available).
type BoundedBuffer[T any] struct {
	capacity int
	items    *queue.Queue
	mutex    sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	stats    Stats
}

var _ Buffer[int] = (*BoundedBuffer[int])(nil)

// New creates a bounded buffer with the given capacity.
func New[T any](capacity int) (*BoundedBuffer[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	bb := &BoundedBuffer[T]{
		capacity: capacity,
		items:    queue.New(),
	}
	bb.notFull = sync.NewCond(&bb.mutex)
	bb.notEmpty = sync.NewCond(&bb.mutex)
	return bb, nil
}

// Put adds an item to the tail, blocking while the buffer is full.
func (bb *BoundedBuffer[T]) Put(item T) {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()

	// Re-check on every wake: another producer may have taken the freed slot.
	for bb.items.Length() == bb.capacity {
		bb.notFull.Wait()
	}
	bb.append(item)
}

// PutContext is Put with cancellation: it returns the context error instead
// of inserting once ctx is done.
func (bb *BoundedBuffer[T]) PutContext(ctx context.Context, item T) error {
	stop := context.AfterFunc(ctx, func() {
		bb.mutex.Lock()
		bb.notFull.Broadcast()
		bb.mutex.Unlock()
	})
	defer stop()

	bb.mutex.Lock()
	defer bb.mutex.Unlock()

	for bb.items.Length() == bb.capacity {
		if err := ctx.Err(); err != nil {
			return err
		}
		bb.notFull.Wait()
	}
	if err := ctx.Err(); err != nil {
		// A Take may have signalled this waiter; pass the wakeup along so a
		// sibling producer does not miss the freed slot.
		bb.notFull.Signal()
		return err
	}
	bb.append(item)
	return nil
}

// Take removes and returns the head item, blocking while the buffer is empty.
func (bb *BoundedBuffer[T]) Take() T {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()

	for bb.items.Length() == 0 {
		bb.notEmpty.Wait()
	}
	return bb.remove()
}

// TakeContext is Take with cancellation.
func (bb *BoundedBuffer[T]) TakeContext(ctx context.Context) (T, error) {
	stop := context.AfterFunc(ctx, func() {
		bb.mutex.Lock()
		bb.notEmpty.Broadcast()
		bb.mutex.Unlock()
	})
	defer stop()

	bb.mutex.Lock()
	defer bb.mutex.Unlock()

	var zero T
	for bb.items.Length() == 0 {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		bb.notEmpty.Wait()
	}
	if err := ctx.Err(); err != nil {
		// Pass along a wakeup this waiter may have consumed.
		bb.notEmpty.Signal()
		return zero, err
	}
	return bb.remove(), nil
}

// Size returns the current number of buffered items.
func (bb *BoundedBuffer[T]) Size() int {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()
	return bb.items.Length()
}

// Capacity returns the fixed capacity set at construction.
func (bb *BoundedBuffer[T]) Capacity() int {
	return bb.capacity
}

// Stats returns a snapshot of the occupancy counters.
func (bb *BoundedBuffer[T]) Stats() Stats {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()
	return bb.stats
}

// append inserts at the tail and wakes one waiting consumer. Occupancy
// changes by exactly one, so a single Signal is sufficient for progress.
// Caller must hold the mutex.
func (bb *BoundedBuffer[T]) append(item T) {
	bb.items.Add(item)
	bb.stats.Puts++
	if n := bb.items.Length(); n > bb.stats.MaxSize {
		bb.stats.MaxSize = n
	}
	bb.notEmpty.Signal()
}

// remove pops the head and wakes one waiting producer. Caller must hold the
// mutex and have checked the buffer is non-empty.
func (bb *BoundedBuffer[T]) remove() T {
	item := bb.items.Remove().(T)
	bb.stats.Takes++
	bb.notFull.Signal()
	return item
}
