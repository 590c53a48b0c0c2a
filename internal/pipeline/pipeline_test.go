package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/salesqa/salesqa/internal/history"
	"github.com/salesqa/salesqa/internal/nl2sql"
	"github.com/salesqa/salesqa/internal/query"
	"github.com/salesqa/salesqa/internal/sampler"
	"github.com/salesqa/salesqa/internal/store"
)

func TestAnswerEndToEndAgainstSQLite(t *testing.T) {
	connector := newSeededConnector(t)
	generator := &stubGenerator{raw: "```sql\nSELECT CustomerID, COUNT(*) FROM SalesTable GROUP BY CustomerID\n```"}
	log := history.New()

	service, err := New(Dependencies{
		Samples:   sampler.New(connector, sampler.Tables{Customer: "CustomerTable", Sales: "SalesTable", Transaction: "TransactionLog"}, 3),
		Generator: generator,
		Executor:  query.NewExecutor(connector, query.Options{}),
		History:   log,
		Dialect:   connector.Dialect().Name,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	question := "How many sales did each customer make?"
	answer, err := service.Answer(context.Background(), question)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	for _, want := range []string{"CustomerTable", "SalesTable", "TransactionLog", "One customer has many sales", question} {
		if !strings.Contains(generator.prompts[0], want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if answer.Entry.Query != "SELECT CustomerID, COUNT(*) FROM SalesTable GROUP BY CustomerID" {
		t.Fatalf("Query = %q", answer.Entry.Query)
	}
	outcome := answer.Entry.Outcome
	if outcome.Failed() {
		t.Fatalf("outcome failed: %s", outcome.Error)
	}
	if len(outcome.Columns) != 2 || outcome.Columns[0] != "CustomerID" {
		t.Fatalf("columns = %v", outcome.Columns)
	}
	got := make([]string, 0, len(outcome.Rows))
	for _, row := range outcome.Rows {
		got = append(got, fmt.Sprintf("%v:%v", row[0], row[1]))
	}
	sort.Strings(got)
	if strings.Join(got, ",") != "1:2,2:1" {
		t.Fatalf("rows = %v", got)
	}
	if entries := log.List(); len(entries) != 1 || entries[0].ID != answer.Entry.ID {
		t.Fatalf("history = %#v", entries)
	}
}

func TestAnswerExecutesEveryTime(t *testing.T) {
	executor := &countingExecutor{outcome: query.Outcome{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}}}
	log := history.New()
	service := newService(t, &stubSamples{}, &stubGenerator{raw: "SELECT 1"}, executor, log)

	for i := 0; i < 2; i++ {
		if _, err := service.Answer(context.Background(), "same question"); err != nil {
			t.Fatalf("Answer() #%d error = %v", i, err)
		}
	}
	if executor.calls != 2 {
		t.Fatalf("executor calls = %d, want 2", executor.calls)
	}
	if log.Len() != 2 {
		t.Fatalf("history entries = %d, want 2", log.Len())
	}
}

func TestAnswerRejectsBlankQuestion(t *testing.T) {
	samples := &stubSamples{}
	executor := &countingExecutor{}
	log := history.New()
	service := newService(t, samples, &stubGenerator{raw: "SELECT 1"}, executor, log)

	for _, question := range []string{"", "  \t\n"} {
		if _, err := service.Answer(context.Background(), question); !errors.Is(err, ErrQuestionRequired) {
			t.Fatalf("Answer(%q) error = %v, want ErrQuestionRequired", question, err)
		}
	}
	if samples.calls != 0 || executor.calls != 0 || log.Len() != 0 {
		t.Fatalf("stages ran for blank question: samples=%d executor=%d history=%d", samples.calls, executor.calls, log.Len())
	}
}

func TestAnswerWithoutGenerator(t *testing.T) {
	service := newService(t, &stubSamples{}, nil, &countingExecutor{}, history.New())
	if service.GeneratorConfigured() {
		t.Fatal("GeneratorConfigured() = true")
	}
	if _, err := service.Answer(context.Background(), "q"); !errors.Is(err, nl2sql.ErrNotConfigured) {
		t.Fatalf("Answer() error = %v, want ErrNotConfigured", err)
	}
}

func TestAnswerPropagatesSamplingFailure(t *testing.T) {
	generator := &stubGenerator{raw: "SELECT 1"}
	log := history.New()
	samples := &stubSamples{err: fmt.Errorf("%w: ping sqlserver: login failed", store.ErrConnection)}
	service := newService(t, samples, generator, &countingExecutor{}, log)

	_, err := service.Answer(context.Background(), "q")
	if !errors.Is(err, ErrStoreConnection) || !errors.Is(err, store.ErrConnection) {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(generator.prompts) != 0 || log.Len() != 0 {
		t.Fatalf("generator prompts=%d history=%d", len(generator.prompts), log.Len())
	}
}

func TestAnswerPropagatesCompletionFailure(t *testing.T) {
	executor := &countingExecutor{}
	log := history.New()
	service := newService(t, &stubSamples{}, &stubGenerator{err: errors.New("status=429 quota exceeded")}, executor, log)

	_, err := service.Answer(context.Background(), "q")
	if !errors.Is(err, ErrCompletion) || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("Answer() error = %v", err)
	}
	if executor.calls != 0 || log.Len() != 0 {
		t.Fatalf("executor calls=%d history=%d", executor.calls, log.Len())
	}
}

func TestAnswerRecordsExecutionFailure(t *testing.T) {
	executor := &countingExecutor{outcome: query.Outcome{Error: "query failed: near \"SELEC\": syntax error"}}
	log := history.New()
	service := newService(t, &stubSamples{}, &stubGenerator{raw: "SELEC * FROM x"}, executor, log)

	answer, err := service.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !answer.Entry.Outcome.Failed() || answer.Entry.Query != "SELEC * FROM x" {
		t.Fatalf("entry = %#v", answer.Entry)
	}
	if log.Len() != 1 {
		t.Fatalf("history entries = %d", log.Len())
	}
	if _, err := service.Answer(context.Background(), "again"); err != nil {
		t.Fatalf("Answer() after failure error = %v", err)
	}
}

func TestAnswerPassesProseThroughToExecutor(t *testing.T) {
	executor := &countingExecutor{}
	service := newService(t, &stubSamples{}, &stubGenerator{raw: "Here is your query:\n```sql\nSELECT 1\n```"}, executor, history.New())

	if _, err := service.Answer(context.Background(), "q"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if executor.last != "Here is your query:\n\nSELECT 1" {
		t.Fatalf("executed %q", executor.last)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Dependencies{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func newService(t *testing.T, samples SampleSource, generator nl2sql.Generator, executor QueryRunner, recorder Recorder) *Service {
	t.Helper()
	service, err := New(Dependencies{
		Samples:   samples,
		Generator: generator,
		Executor:  executor,
		History:   recorder,
		Dialect:   "SQL Server",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return service
}

type stubSamples struct {
	err   error
	calls int
}

func (s *stubSamples) Samples(context.Context) (sampler.Samples, error) {
	s.calls++
	if s.err != nil {
		return sampler.Samples{}, s.err
	}
	return sampler.Samples{
		Customer:    sampler.TableSample{Table: "CustomerTable", Columns: []string{"CustomerID"}, Rows: [][]any{{int64(1)}}},
		Sales:       sampler.TableSample{Table: "SalesTable", Columns: []string{"SaleID", "CustomerID"}, Rows: [][]any{{int64(10), int64(1)}}},
		Transaction: sampler.TableSample{Table: "TransactionLog", Columns: []string{"TransactionID", "SaleID"}, Rows: [][]any{}},
	}, nil
}

type stubGenerator struct {
	raw     string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.raw, g.err
}

type countingExecutor struct {
	outcome query.Outcome
	calls   int
	last    string
}

func (e *countingExecutor) Execute(_ context.Context, sqlText string) query.Outcome {
	e.calls++
	e.last = sqlText
	return e.outcome
}

func newSeededConnector(t *testing.T) *store.Connector {
	t.Helper()
	connector, err := store.New(store.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "pipeline.db")})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	db, err := connector.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	statements := []string{
		"CREATE TABLE CustomerTable (CustomerID INTEGER PRIMARY KEY, Name TEXT NOT NULL)",
		"CREATE TABLE SalesTable (SaleID INTEGER PRIMARY KEY, CustomerID INTEGER NOT NULL)",
		"CREATE TABLE TransactionLog (TransactionID INTEGER PRIMARY KEY, SaleID INTEGER NOT NULL, Amount REAL NOT NULL)",
		"INSERT INTO CustomerTable (CustomerID, Name) VALUES (1, 'Asha'), (2, 'Ben')",
		"INSERT INTO SalesTable (SaleID, CustomerID) VALUES (10, 1), (11, 1), (12, 2)",
		"INSERT INTO TransactionLog (TransactionID, SaleID, Amount) VALUES (100, 10, 20.5)",
	}
	for _, statement := range statements {
		if _, err := db.Exec(statement); err != nil {
			t.Fatalf("Exec(%q) error = %v", statement, err)
		}
	}
	return connector
}
