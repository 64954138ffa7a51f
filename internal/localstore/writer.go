package localstore

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const writeTimeout = 5 * time.Second

type writeOp struct {
	name string
	fn   func(ctx context.Context) error
}

// Writer applies store writes in submission order on a single goroutine.
// Submit never blocks on the database; failures are logged and dropped.
type Writer struct {
	logger *slog.Logger

	mu      sync.Mutex
	buffer  []writeOp
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Submit queues fn. Writes submitted after Close are dropped.
func (w *Writer) Submit(name string, fn func(ctx context.Context) error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("local store writer closed, dropping write", "op", name)
		return
	}
	w.buffer = append(w.buffer, writeOp{name: name, fn: fn})
	w.mu.Unlock()
	w.signal()
}

// Flush blocks until every write submitted before the call has been applied.
func (w *Writer) Flush() {
	barrier := make(chan struct{})
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.stopped
		return
	}
	w.buffer = append(w.buffer, writeOp{name: "flush", fn: func(context.Context) error {
		close(barrier)
		return nil
	}})
	w.mu.Unlock()
	w.signal()
	<-barrier
}

// Close applies the remaining writes and stops the writer.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.stopped
		return
	}
	w.closed = true
	w.mu.Unlock()
	close(w.done)
	<-w.stopped
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) loop() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.done:
			w.drain()
			return
		}
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		batch := w.buffer
		w.buffer = nil
		w.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, op := range batch {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			if err := op.fn(ctx); err != nil {
				w.logger.Warn("local store write failed", "op", op.name, "error", err)
			}
			cancel()
		}
	}
}
