package producerconsumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/concurrency-patterns/producer-consumer-go/boundedbuffer"
)

// ErrOrderMismatch is returned by Run when the consumer's destination does
// not equal the source sequence.
var ErrOrderMismatch = errors.New("producerconsumer: destination does not match source")

// Config holds a harness run's settings.
type Config struct {
	Capacity      int
	ProducerDelay time.Duration
	ConsumerDelay time.Duration
	// UseChannelBuffer selects the channel-backed buffer instead of the
	// condition-variable one.
	UseChannelBuffer bool
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return boundedbuffer.ErrInvalidCapacity
	}
	if c.ProducerDelay < 0 {
		return fmt.Errorf("producerconsumer: negative producer delay %v", c.ProducerDelay)
	}
	if c.ConsumerDelay < 0 {
		return fmt.Errorf("producerconsumer: negative consumer delay %v", c.ConsumerDelay)
	}
	return nil
}

// Report summarizes a harness run.
type Report struct {
	RunID       string
	SourceLen   int
	Produced    int
	Consumed    int
	OrderMatch  bool
	MaxBufSize  int
	Duration    time.Duration
	ProducerErr error
	ConsumerErr error
}

// Run builds one buffer, one producer over source, and one consumer
// expecting len(source) items, starts both, and waits for both. When either
// task fails the sibling's context is cancelled so it cannot block forever
// on a counterpart that will never arrive. The returned error is non-nil if
// a task failed or the destination does not equal the source.
func Run[T comparable](ctx context.Context, cfg Config, source []T) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var buffer boundedbuffer.Buffer[T]
	if cfg.UseChannelBuffer {
		cb, err := boundedbuffer.NewChannelBuffer[T](cfg.Capacity)
		if err != nil {
			return nil, err
		}
		buffer = cb
	} else {
		bb, err := boundedbuffer.New[T](cfg.Capacity)
		if err != nil {
			return nil, err
		}
		buffer = bb
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	producer := NewProducer(buffer, source, cfg.ProducerDelay)
	consumer := NewConsumer(buffer, len(source), cfg.ConsumerDelay)

	report := &Report{
		RunID:     uuid.NewString(),
		SourceLen: len(source),
	}
	slog.Debug("starting run", "run_id", report.RunID, "items", len(source), "capacity", cfg.Capacity)

	start := time.Now()
	producer.Start(runCtx)
	consumer.Start(runCtx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if report.ProducerErr = producer.Wait(); report.ProducerErr != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if report.ConsumerErr = consumer.Wait(); report.ConsumerErr != nil {
			cancel()
		}
	}()
	wg.Wait()

	report.Duration = time.Since(start)
	report.Produced = producer.Produced()
	report.Consumed = len(consumer.Items())
	report.OrderMatch = slices.Equal(source, consumer.Items())
	if s, ok := buffer.(interface{ Stats() boundedbuffer.Stats }); ok {
		report.MaxBufSize = s.Stats().MaxSize
	}

	switch {
	case report.ProducerErr != nil:
		return report, fmt.Errorf("run %s: producer: %w", report.RunID, report.ProducerErr)
	case report.ConsumerErr != nil:
		return report, fmt.Errorf("run %s: consumer: %w", report.RunID, report.ConsumerErr)
	case !report.OrderMatch:
		return report, fmt.Errorf("run %s: %w", report.RunID, ErrOrderMismatch)
	}
	return report, nil
}
