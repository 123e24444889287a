package boundedbuffer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedBufferBasic(t *testing.T) {
	buffer, err := New[int](3)
	require.NoError(t, err)

	buffer.Put(1)
	buffer.Put(2)
	buffer.Put(3)

	assert.Equal(t, 3, buffer.Size())

	assert.Equal(t, 1, buffer.Take())
	assert.Equal(t, 2, buffer.Take())
	assert.Equal(t, 3, buffer.Take())

	assert.Equal(t, 0, buffer.Size())
}

func TestInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -100} {
		buffer, err := New[int](capacity)
		require.ErrorIs(t, err, ErrInvalidCapacity)
		assert.Nil(t, buffer)
	}
}

func TestFIFOOrder(t *testing.T) {
	buffer, err := New[string](5)
	require.NoError(t, err)

	items := []string{"a", "b", "c", "d", "e"}
	for _, item := range items {
		buffer.Put(item)
	}

	for _, want := range items {
		assert.Equal(t, want, buffer.Take())
	}
}

func TestBoundedBufferConcurrent(t *testing.T) {
	buffer, err := New[int](10)
	require.NoError(t, err)

	numProducers := 5
	numConsumers := 3
	itemsPerProducer := 20

	var wg sync.WaitGroup
	consumed := make(map[int]int)
	var consMutex sync.Mutex

	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				buffer.Put(producerID*1000 + i)
			}
		}(p)
	}

	totalItems := numProducers * itemsPerProducer
	itemsPerConsumer := totalItems / numConsumers
	remainingItems := totalItems % numConsumers

	for c := 0; c < numConsumers; c++ {
		items := itemsPerConsumer
		if c < remainingItems {
			items++
		}
		wg.Add(1)
		go func(itemCount int) {
			defer wg.Done()
			for i := 0; i < itemCount; i++ {
				item := buffer.Take()
				consMutex.Lock()
				consumed[item]++
				consMutex.Unlock()
			}
		}(items)
	}

	wg.Wait()

	// Every produced item must be consumed exactly once.
	assert.Len(t, consumed, totalItems)
	for p := 0; p < numProducers; p++ {
		for i := 0; i < itemsPerProducer; i++ {
			item := p*1000 + i
			assert.Equal(t, 1, consumed[item], "item %d", item)
		}
	}

	stats := buffer.Stats()
	assert.Equal(t, uint64(totalItems), stats.Puts)
	assert.Equal(t, uint64(totalItems), stats.Takes)
	assert.LessOrEqual(t, stats.MaxSize, buffer.Capacity())
}

func TestPutBlocksWhenFull(t *testing.T) {
	buffer, err := New[int](2)
	require.NoError(t, err)

	buffer.Put(1)
	buffer.Put(2)

	blocked := make(chan bool, 1)
	go func() {
		blocked <- true
		buffer.Put(3)
		blocked <- false
	}()

	<-blocked
	time.Sleep(100 * time.Millisecond)

	select {
	case <-blocked:
		t.Fatal("Put should have blocked on a full buffer")
	default:
	}

	// Freeing one slot unblocks the producer.
	assert.Equal(t, 1, buffer.Take())
	assert.False(t, <-blocked)
	assert.Equal(t, 2, buffer.Take())
	assert.Equal(t, 3, buffer.Take())
}

func TestTakeBlocksWhenEmpty(t *testing.T) {
	buffer, err := New[int](2)
	require.NoError(t, err)

	got := make(chan int, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		got <- buffer.Take()
	}()

	<-started
	time.Sleep(100 * time.Millisecond)

	select {
	case <-got:
		t.Fatal("Take should have blocked on an empty buffer")
	default:
	}

	buffer.Put(42)
	assert.Equal(t, 42, <-got)
}

func TestPutContextCancel(t *testing.T) {
	buffer, err := New[int](1)
	require.NoError(t, err)
	buffer.Put(1)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- buffer.PutContext(ctx, 2)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("PutContext did not unblock after cancellation")
	}

	// The buffered item is untouched and no phantom insert happened.
	assert.Equal(t, 1, buffer.Size())
	assert.Equal(t, 1, buffer.Take())
}

func TestTakeContextCancel(t *testing.T) {
	buffer, err := New[int](1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = buffer.TakeContext(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, buffer.Size())
}

func TestContextAlreadyCancelled(t *testing.T) {
	buffer, err := New[int](1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, buffer.PutContext(ctx, 1), context.Canceled)
	_, err = buffer.TakeContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, buffer.Size())
}

func TestStatsHighWaterMark(t *testing.T) {
	buffer, err := New[int](4)
	require.NoError(t, err)

	buffer.Put(1)
	buffer.Put(2)
	buffer.Put(3)
	buffer.Take()
	buffer.Put(4)

	stats := buffer.Stats()
	assert.Equal(t, uint64(4), stats.Puts)
	assert.Equal(t, uint64(1), stats.Takes)
	assert.Equal(t, 3, stats.MaxSize)
}

func BenchmarkBoundedBuffer(b *testing.B) {
	buffer, err := New[int](100)
	if err != nil {
		b.Fatal(err)
	}

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%2 == 0 {
				buffer.Put(i)
			} else {
				buffer.Take()
			}
			i++
		}
	})
}
