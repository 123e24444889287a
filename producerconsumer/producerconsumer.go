// Package producerconsumer wires producer and consumer tasks to a shared
// bounded buffer. Tasks are plain structs launched as goroutines; both
// report completion through an explicit error from Wait instead of
// swallowing failures inside the loop.
package producerconsumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/concurrency-patterns/producer-consumer-go/boundedbuffer"
)

// Producer drains a finite source slice into a shared buffer, in order.
// A producer is single-use: Start spawns its goroutine exactly once.
type Producer[T any] struct {
	buffer boundedbuffer.Buffer[T]
	source []T
	delay  time.Duration

	done     chan struct{}
	err      error
	produced int
}

// NewProducer creates a producer over source. delay, if positive, is slept
// after each accepted item to influence scheduling.
func NewProducer[T any](buffer boundedbuffer.Buffer[T], source []T, delay time.Duration) *Producer[T] {
	return &Producer[T]{
		buffer: buffer,
		source: source,
		delay:  delay,
		done:   make(chan struct{}),
	}
}

// Start launches the producer goroutine.
func (p *Producer[T]) Start(ctx context.Context) {
	go p.run(ctx)
}

// Wait blocks until the producer finishes and returns its result.
func (p *Producer[T]) Wait() error {
	<-p.done
	return p.err
}

// Produced reports how many items were accepted by the buffer. Valid after
// Wait returns.
func (p *Producer[T]) Produced() int {
	return p.produced
}

func (p *Producer[T]) run(ctx context.Context) {
	defer close(p.done)

	for i, item := range p.source {
		if err := p.buffer.PutContext(ctx, item); err != nil {
			p.err = fmt.Errorf("produce item %d/%d: %w", i+1, len(p.source), err)
			slog.Error("producer stopped early", "produced", p.produced, "total", len(p.source), "error", err)
			return
		}
		p.produced++

		if p.delay > 0 {
			if err := sleep(ctx, p.delay); err != nil {
				p.err = fmt.Errorf("produce item %d/%d: %w", i+1, len(p.source), err)
				return
			}
		}
	}
	slog.Debug("producer finished", "produced", p.produced)
}

// Consumer pulls a known number of items out of a shared buffer into its
// private destination slice.
type Consumer[T any] struct {
	buffer    boundedbuffer.Buffer[T]
	itemCount int
	delay     time.Duration

	done chan struct{}
	err  error
	dest []T
}

// NewConsumer creates a consumer expecting exactly itemCount items. The
// buffer has no end-of-stream signal, so the count must be known up front.
func NewConsumer[T any](buffer boundedbuffer.Buffer[T], itemCount int, delay time.Duration) *Consumer[T] {
	return &Consumer[T]{
		buffer:    buffer,
		itemCount: itemCount,
		delay:     delay,
		done:      make(chan struct{}),
	}
}

// Start launches the consumer goroutine.
func (c *Consumer[T]) Start(ctx context.Context) {
	go c.run(ctx)
}

// Wait blocks until the consumer finishes and returns its result.
func (c *Consumer[T]) Wait() error {
	<-c.done
	return c.err
}

// Items returns the consumed items in arrival order. Valid after Wait
// returns.
func (c *Consumer[T]) Items() []T {
	return c.dest
}

func (c *Consumer[T]) run(ctx context.Context) {
	defer close(c.done)

	for i := 0; i < c.itemCount; i++ {
		item, err := c.buffer.TakeContext(ctx)
		if err != nil {
			c.err = fmt.Errorf("consume item %d/%d: %w", i+1, c.itemCount, err)
			slog.Error("consumer stopped early", "consumed", len(c.dest), "expected", c.itemCount, "error", err)
			return
		}
		c.dest = append(c.dest, item)

		if c.delay > 0 {
			if err := sleep(ctx, c.delay); err != nil {
				c.err = fmt.Errorf("consume item %d/%d: %w", i+1, c.itemCount, err)
				return
			}
		}
	}
	slog.Debug("consumer finished", "consumed", len(c.dest))
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
