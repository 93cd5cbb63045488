package logger

import (
	"encoding/json"
	"sync"
	"time"
)

// LogEntry represents a single log entry in the ring
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Logger    string
	Message   string
}

// Ring is a fixed-size, thread-safe buffer of the most recent log entries.
// It is a zapcore.WriteSyncer fed by the JSON encoder.
type Ring struct {
	mu           sync.Mutex
	entries      []LogEntry
	next         int
	wrapped      bool
	totalEntries uint64
}

// NewRing creates a ring holding up to size entries.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 100
	}
	return &Ring{entries: make([]LogEntry, size)}
}

// Write decodes one JSON log line. Lines that are not valid JSON are kept
// verbatim as the message.
func (r *Ring) Write(p []byte) (int, error) {
	var raw struct {
		Timestamp string `json:"timestamp"`
		Level     string `json:"level"`
		Logger    string `json:"logger"`
		Message   string `json:"msg"`
	}
	entry := LogEntry{Timestamp: time.Now()}
	if err := json.Unmarshal(p, &raw); err == nil {
		entry.Level = raw.Level
		entry.Logger = raw.Logger
		entry.Message = raw.Message
	} else {
		entry.Message = string(p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.wrapped = true
	}
	r.totalEntries++
	return len(p), nil
}

// Sync is a no-op.
func (r *Ring) Sync() error { return nil }

// Recent returns up to limit entries, oldest first. A limit <= 0 returns all.
func (r *Ring) Recent(limit int) []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.next
	start := 0
	if r.wrapped {
		count = len(r.entries)
		start = r.next
	}
	if limit > 0 && limit < count {
		start += count - limit
		count = limit
	}

	out := make([]LogEntry, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out
}

// Total returns how many entries were ever written.
func (r *Ring) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalEntries
}
