package history

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/salesqa/salesqa/internal/query"
)

func TestAppendKeepsArrivalOrder(t *testing.T) {
	log := New()
	first := log.Append("q1", "SELECT 1", query.Outcome{Columns: []string{"1"}, Rows: [][]any{{int64(1)}}})
	second := log.Append("q2", "SELEC", query.Outcome{Error: "query failed: syntax error"})

	entries := log.List()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].ID != first.ID || entries[1].ID != second.ID {
		t.Fatalf("order = %q, %q", entries[0].ID, entries[1].ID)
	}
	if _, err := uuid.Parse(first.ID); err != nil {
		t.Fatalf("ID %q is not a uuid: %v", first.ID, err)
	}
	if first.AskedAt.IsZero() {
		t.Fatal("AskedAt was not set")
	}
	if !entries[1].Outcome.Failed() {
		t.Fatal("second entry should keep its failed outcome")
	}
}

func TestListReturnsCopy(t *testing.T) {
	log := New()
	log.Append("q1", "SELECT 1", query.Outcome{})

	entries := log.List()
	entries[0].Question = "mutated"
	if got := log.List()[0].Question; got != "q1" {
		t.Fatalf("stored question = %q", got)
	}
}

func TestReturnedEntriesDoNotShareOutcomeSlices(t *testing.T) {
	log := New()
	outcome := query.Outcome{Columns: []string{"CustomerID"}, Rows: [][]any{{int64(1)}}}
	entry := log.Append("q1", "SELECT CustomerID FROM CustomerTable", outcome)

	outcome.Rows[0][0] = int64(99)
	entry.Outcome.Columns[0] = "appended"
	listed := log.List()
	listed[0].Outcome.Rows[0][0] = "listed"
	listed[0].Outcome.Columns[0] = "listed"
	got, err := log.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got.Outcome.Rows[0][0] = "got"

	stored, err := log.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Outcome.Columns[0] != "CustomerID" {
		t.Fatalf("stored column = %q", stored.Outcome.Columns[0])
	}
	if stored.Outcome.Rows[0][0] != int64(1) {
		t.Fatalf("stored cell = %v", stored.Outcome.Rows[0][0])
	}
}

func TestGet(t *testing.T) {
	log := New()
	entry := log.Append("q1", "SELECT 1", query.Outcome{})

	got, err := log.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Query != "SELECT 1" {
		t.Fatalf("Query = %q", got.Query)
	}
	if _, err := log.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v", err)
	}
}

func TestClearResetsEverything(t *testing.T) {
	log := New()
	entry := log.Append("q1", "SELECT 1", query.Outcome{})
	log.Clear()

	if log.Len() != 0 || len(log.List()) != 0 {
		t.Fatalf("entries after Clear = %d", log.Len())
	}
	if _, err := log.Get(entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after Clear error = %v", err)
	}
}

func TestConcurrentAppend(t *testing.T) {
	log := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Append(fmt.Sprintf("q%d", i), "SELECT 1", query.Outcome{})
			_ = log.List()
		}(i)
	}
	wg.Wait()
	if log.Len() != 50 {
		t.Fatalf("Len() = %d", log.Len())
	}
}
