package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/basis/internal/adapters/telemetry"
)

// collector records flushed chunks.
type collector struct {
	mu     sync.Mutex
	chunks []string
}

func (c *collector) flush(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, string(data))
}

func (c *collector) joined() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out string
	for _, chunk := range c.chunks {
		out += chunk
	}
	return out
}

func TestBatchProcessor_FlushOnSize(t *testing.T) {
	c := &collector{}
	bp := telemetry.NewBatchProcessor(5, time.Hour, c.flush)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("123"))
	require.NoError(t, err)
	assert.Empty(t, c.joined())

	_, err = bp.Write([]byte("456"))
	require.NoError(t, err)
	assert.Equal(t, "123456", c.joined())
}

func TestBatchProcessor_FlushOnTime(t *testing.T) {
	c := &collector{}
	bp := telemetry.NewBatchProcessor(100, 20*time.Millisecond, c.flush)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("sass: compiled"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.joined() == "sass: compiled"
	}, time.Second, 5*time.Millisecond)
}

func TestBatchProcessor_ManualFlush(t *testing.T) {
	c := &collector{}
	bp := telemetry.NewBatchProcessor(100, time.Hour, c.flush)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Empty(t, c.joined())

	bp.Flush()
	assert.Equal(t, "hello", c.joined())

	bp.Flush()
	assert.Len(t, c.chunks, 1, "an empty buffer is not flushed")
}

func TestBatchProcessor_CloseFlushes(t *testing.T) {
	c := &collector{}
	bp := telemetry.NewBatchProcessor(100, time.Hour, c.flush)

	_, err := bp.Write([]byte("pending"))
	require.NoError(t, err)

	require.NoError(t, bp.Close())
	assert.Equal(t, "pending", c.joined())
	require.NoError(t, bp.Close())

	_, err = bp.Write([]byte("late"))
	require.Error(t, err)
}

func TestBatchProcessor_ConcurrentWrites(t *testing.T) {
	c := &collector{}
	bp := telemetry.NewBatchProcessor(20, 5*time.Millisecond, c.flush)

	const workers, iterations = 8, 100
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for j := range iterations {
				_, _ = bp.Write([]byte("a"))
				if j%10 == 0 {
					bp.Flush()
				}
			}
		})
	}
	wg.Wait()
	require.NoError(t, bp.Close())

	assert.Len(t, c.joined(), workers*iterations)
}
