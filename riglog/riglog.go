// Package riglog keeps the most recent log entries of the daemon in memory
// so they can be served to clients.
package riglog

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultSize = 200

// check RigLog compliance to the logrus hook interface during compile time
var _ log.Hook = (*RigLog)(nil)

type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	System  string    `json:"system,omitempty"`
	Message string    `json:"message"`
}

// RigLog is a logrus hook retaining the last entries in a ring buffer.
type RigLog struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func New() *RigLog {
	return NewWithSize(defaultSize)
}

func NewWithSize(size int) *RigLog {
	if size <= 0 {
		size = defaultSize
	}

	return &RigLog{
		entries: make([]Entry, size),
	}
}

func (l *RigLog) Levels() []log.Level {
	return log.AllLevels
}

func (l *RigLog) Fire(e *log.Entry) error {
	entry := Entry{
		Time:    e.Time,
		Level:   e.Level.String(),
		Message: e.Message,
	}

	if system, ok := e.Data["system"].(string); ok {
		entry.System = system
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}

	return nil
}

// Entries returns the retained entries, oldest first.
func (l *RigLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		return append([]Entry(nil), l.entries[:l.next]...)
	}

	entries := make([]Entry, 0, len(l.entries))
	entries = append(entries, l.entries[l.next:]...)
	entries = append(entries, l.entries[:l.next]...)

	return entries
}
