package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/models"
)

const dbBatchSize = 50

// DBHandler is an slog.Handler that batches ERROR+ logs into system_logs.
type DBHandler struct {
	db     *gorm.DB
	attrs  []slog.Attr
	state  *batchState
	ticker *time.Ticker
}

type batchState struct {
	mu     sync.Mutex
	buffer []models.SystemLog
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewDBHandler(db *gorm.DB, interval time.Duration) *DBHandler {
	h := &DBHandler{
		db:     db,
		state:  &batchState{buffer: make([]models.SystemLog, 0, dbBatchSize), done: make(chan struct{})},
		ticker: time.NewTicker(interval),
	}
	h.state.wg.Add(1)
	go h.flushLoop()
	return h
}

func (h *DBHandler) flushLoop() {
	defer h.state.wg.Done()
	for {
		select {
		case <-h.ticker.C:
			h.Flush()
		case <-h.state.done:
			h.Flush()
			return
		}
	}
}

// Flush writes the buffered records now.
func (h *DBHandler) Flush() {
	h.state.mu.Lock()
	if len(h.state.buffer) == 0 {
		h.state.mu.Unlock()
		return
	}
	batch := h.state.buffer
	h.state.buffer = make([]models.SystemLog, 0, dbBatchSize)
	h.state.mu.Unlock()

	if err := h.db.CreateInBatches(batch, dbBatchSize).Error; err != nil {
		// stdout only; logging through slog here would loop back into h
		slog.New(slog.NewJSONHandler(stdout, nil)).Error("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// Stop flushes what is left and ends the background loop.
func (h *DBHandler) Stop() {
	h.ticker.Stop()
	close(h.state.done)
	h.state.wg.Wait()
}

// Enabled only handles ERROR and above.
func (h *DBHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *DBHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]any)
	visit := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "user_id":
			s := a.Value.String()
			entry.UserID = &s
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		case "latency_ms":
			switch v := a.Value.Any().(type) {
			case float64:
				entry.LatencyMs = int(math.Round(v))
			case int64:
				entry.LatencyMs = int(v)
			}
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		visit(a)
	}
	record.Attrs(visit)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.state.mu.Lock()
	h.state.buffer = append(h.state.buffer, entry)
	needFlush := len(h.state.buffer) >= dbBatchSize
	h.state.mu.Unlock()

	if needFlush {
		go h.Flush()
	}
	return nil
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *DBHandler) WithGroup(string) slog.Handler {
	return h
}
