// Package history keeps the in-memory, append-only log of answered questions.
// It is reset on restart.
package history

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salesqa/salesqa/internal/query"
)

var ErrNotFound = errors.New("history entry not found")

type Entry struct {
	ID       string        `json:"id"`
	Question string        `json:"question"`
	Query    string        `json:"sql"`
	Outcome  query.Outcome `json:"outcome"`
	AskedAt  time.Time     `json:"asked_at"`
}

type Log struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
	now     func() time.Time
	newID   func() string
}

func New() *Log {
	return &Log{
		index: map[string]int{},
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

// Append stamps the entry with an ID and time and records a private copy of
// the outcome. A copy of the stored entry is returned.
func (l *Log) Append(question, sqlText string, outcome query.Outcome) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		ID:       l.newID(),
		Question: question,
		Query:    sqlText,
		Outcome:  cloneOutcome(outcome),
		AskedAt:  l.now(),
	}
	l.index[entry.ID] = len(l.entries)
	l.entries = append(l.entries, entry)
	return cloneEntry(entry)
}

// List returns deep copies of all entries in arrival order.
func (l *Log) List() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	for i, entry := range l.entries {
		out[i] = cloneEntry(entry)
	}
	return out
}

func (l *Log) Get(id string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	position, ok := l.index[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return cloneEntry(l.entries[position]), nil
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.index = map[string]int{}
}

func cloneEntry(entry Entry) Entry {
	entry.Outcome = cloneOutcome(entry.Outcome)
	return entry
}

// cloneOutcome copies the column and row slices. Cell values are scalars
// after store normalization, so rows are copied one level deep.
func cloneOutcome(outcome query.Outcome) query.Outcome {
	if outcome.Columns != nil {
		outcome.Columns = append([]string(nil), outcome.Columns...)
	}
	if outcome.Rows != nil {
		rows := make([][]any, len(outcome.Rows))
		for i, row := range outcome.Rows {
			if row != nil {
				rows[i] = append([]any(nil), row...)
			}
		}
		outcome.Rows = rows
	}
	return outcome
}
