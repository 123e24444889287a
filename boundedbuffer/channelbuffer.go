package boundedbuffer

import "context"

// ChannelBuffer implements Buffer on top of a buffered channel, the
// language-provided bounded queue. It is behaviorally interchangeable with
// BoundedBuffer from the tasks' point of view.
type ChannelBuffer[T any] struct {
	ch chan T
}

var _ Buffer[int] = (*ChannelBuffer[int])(nil)

// NewChannelBuffer creates a channel-backed buffer with the given capacity.
func NewChannelBuffer[T any](capacity int) (*ChannelBuffer[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &ChannelBuffer[T]{ch: make(chan T, capacity)}, nil
}

// Put sends the item, blocking while the channel is full.
func (cb *ChannelBuffer[T]) Put(item T) {
	cb.ch <- item
}

// PutContext sends the item or gives up when ctx is done.
func (cb *ChannelBuffer[T]) PutContext(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case cb.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take receives the next item, blocking while the channel is empty.
func (cb *ChannelBuffer[T]) Take() T {
	return <-cb.ch
}

// TakeContext receives the next item or gives up when ctx is done.
func (cb *ChannelBuffer[T]) TakeContext(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	select {
	case item := <-cb.ch:
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Size returns the number of items currently buffered in the channel.
func (cb *ChannelBuffer[T]) Size() int {
	return len(cb.ch)
}

// Capacity returns the channel's buffer capacity.
func (cb *ChannelBuffer[T]) Capacity() int {
	return cap(cb.ch)
}
