package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LogRecord is one captured log entry.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogRecorder is a slog.Handler that keeps every record for assertions.
type LogRecorder struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewLogger returns a logger writing to a fresh recorder.
func NewLogger() (*slog.Logger, *LogRecorder) {
	r := &LogRecorder{}
	return slog.New(r), r
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]string, rec.NumAttrs())
	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, LogRecord{Level: rec.Level, Message: rec.Message, Attrs: attrs})
	return nil
}

// WithAttrs and WithGroup are not used by the code under test.
func (r *LogRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *LogRecorder) WithGroup(string) slog.Handler      { return r }

// Records returns a copy of the captured records.
func (r *LogRecorder) Records() []LogRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Contains reports whether any record at level or above mentions substr.
func (r *LogRecorder) Contains(level slog.Level, substr string) bool {
	for _, rec := range r.Records() {
		if rec.Level >= level && strings.Contains(rec.Message, substr) {
			return true
		}
	}
	return false
}
