// Package telemetry records task executions as OpenTelemetry spans and
// forwards their lifecycle and log output to a renderer.
package telemetry

import (
	"bytes"
	"sync"
	"time"

	"go.trai.ch/zerr"
)

const (
	// DefaultSizeLimit is the number of buffered bytes that forces a flush.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit is the longest time output stays buffered.
	DefaultTimeLimit = 50 * time.Millisecond
)

var errBatcherClosed = zerr.New("log batcher is closed")

// BatchProcessor coalesces small writes into larger chunks. A chunk is
// delivered once sizeLimit bytes are buffered, every timeLimit, on Flush and
// on Close. It is safe for concurrent use.
type BatchProcessor struct {
	sizeLimit int
	timeLimit time.Duration
	onFlush   func([]byte)

	mu     sync.Mutex
	buffer bytes.Buffer
	timer  *time.Ticker
	done   chan struct{}
	closed bool
}

// NewBatchProcessor starts a BatchProcessor. Non-positive limits select the
// defaults. Close must be called to stop the background flusher.
func NewBatchProcessor(sizeLimit int, timeLimit time.Duration, onFlush func([]byte)) *BatchProcessor {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	bp := &BatchProcessor{
		sizeLimit: sizeLimit,
		timeLimit: timeLimit,
		onFlush:   onFlush,
		timer:     time.NewTicker(timeLimit),
		done:      make(chan struct{}),
	}
	go bp.loop()
	return bp
}

// Write buffers p and flushes when the size limit is reached.
func (bp *BatchProcessor) Write(p []byte) (int, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return 0, errBatcherClosed
	}

	n, _ := bp.buffer.Write(p)
	if bp.buffer.Len() >= bp.sizeLimit {
		bp.flushLocked()
		bp.timer.Reset(bp.timeLimit)
	}
	return n, nil
}

// Flush delivers the buffered bytes immediately.
func (bp *BatchProcessor) Flush() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if !bp.closed {
		bp.flushLocked()
	}
}

// Close delivers the remaining bytes and stops the flusher.
// Later writes fail.
func (bp *BatchProcessor) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil
	}
	bp.closed = true
	close(bp.done)
	bp.flushLocked()
	return nil
}

func (bp *BatchProcessor) loop() {
	defer bp.timer.Stop()
	for {
		select {
		case <-bp.timer.C:
			bp.Flush()
		case <-bp.done:
			return
		}
	}
}

// flushLocked hands a copy of the buffer to onFlush. Callers hold mu, which
// keeps chunks in write order.
func (bp *BatchProcessor) flushLocked() {
	if bp.buffer.Len() == 0 {
		return
	}
	chunk := bytes.Clone(bp.buffer.Bytes())
	bp.buffer.Reset()
	if bp.onFlush != nil {
		bp.onFlush(chunk)
	}
}
