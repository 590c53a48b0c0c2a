package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/salesqa/salesqa/internal/store"
)

func TestExecutePreservesColumnOrderAndRowCount(t *testing.T) {
	connector := newSQLiteConnector(t)
	seedSales(t, connector)

	executor := NewExecutor(connector, Options{})
	outcome := executor.Execute(context.Background(), "SELECT Amount, SaleID, CustomerID FROM SalesTable")
	if outcome.Failed() {
		t.Fatalf("Execute() failed: %s", outcome.Error)
	}
	if strings.Join(outcome.Columns, ",") != "Amount,SaleID,CustomerID" {
		t.Fatalf("columns = %v", outcome.Columns)
	}

	count := executor.Execute(context.Background(), "SELECT COUNT(*) FROM SalesTable")
	if count.Failed() {
		t.Fatalf("count failed: %s", count.Error)
	}
	if want := count.Rows[0][0].(int64); int64(len(outcome.Rows)) != want {
		t.Fatalf("rows = %d, want %d", len(outcome.Rows), want)
	}
}

func TestExecuteEmptyResultIsSuccess(t *testing.T) {
	connector := newSQLiteConnector(t)
	seedSales(t, connector)

	outcome := NewExecutor(connector, Options{}).Execute(context.Background(), "SELECT SaleID FROM SalesTable WHERE CustomerID = 99")
	if outcome.Failed() {
		t.Fatalf("Execute() failed: %s", outcome.Error)
	}
	if outcome.Rows == nil || len(outcome.Rows) != 0 {
		t.Fatalf("rows = %#v, want empty non-nil", outcome.Rows)
	}
}

func TestExecuteRecoversSyntaxError(t *testing.T) {
	connector := newSQLiteConnector(t)

	outcome := NewExecutor(connector, Options{}).Execute(context.Background(), "SELEC * FROM x")
	if !outcome.Failed() {
		t.Fatal("expected failed outcome")
	}
	if !strings.HasPrefix(outcome.Error, "query failed: ") || len(outcome.Error) <= len("query failed: ") {
		t.Fatalf("Error = %q", outcome.Error)
	}
	if outcome.Columns != nil || outcome.Rows != nil {
		t.Fatalf("failed outcome carries rows: %#v", outcome)
	}
}

func TestExecuteReleasesConnectionOnQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missing")).WillReturnError(errors.New("invalid object name 'missing'"))
	mock.ExpectClose()

	outcome := NewExecutor(fixedOpener{db: db}, Options{}).Execute(context.Background(), "SELECT * FROM missing")
	if !strings.Contains(outcome.Error, "invalid object name") {
		t.Fatalf("Error = %q", outcome.Error)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestExecuteReleasesConnectionOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	mock.ExpectQuery("SELECT CustomerID").WillReturnRows(sqlmock.NewRows([]string{"CustomerID", "count"}).AddRow(int64(1), int64(2)))
	mock.ExpectClose()

	outcome := NewExecutor(fixedOpener{db: db}, Options{}).Execute(context.Background(), "SELECT CustomerID, COUNT(*) FROM SalesTable GROUP BY CustomerID")
	if outcome.Failed() {
		t.Fatalf("Execute() failed: %s", outcome.Error)
	}
	records := outcome.Records()
	if len(records) != 1 || records[0]["count"] != int64(2) {
		t.Fatalf("records = %#v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestExecuteRecoversConnectionFailure(t *testing.T) {
	opener := fixedOpener{err: fmt.Errorf("%w: ping sqlserver: login failed", store.ErrConnection)}

	outcome := NewExecutor(opener, Options{}).Execute(context.Background(), "SELECT 1")
	if !outcome.Failed() || !strings.Contains(outcome.Error, "login failed") {
		t.Fatalf("outcome = %#v", outcome)
	}
}

func TestExecuteReadOnlyRejectsBeforeOpening(t *testing.T) {
	opener := &countingOpener{}

	outcome := NewExecutor(opener, Options{ReadOnly: true}).Execute(context.Background(), "DROP TABLE SalesTable")
	if !outcome.Failed() || !strings.Contains(outcome.Error, ErrNotSelectQuery.Error()) {
		t.Fatalf("outcome = %#v", outcome)
	}
	if opener.opens != 0 {
		t.Fatalf("opens = %d, want 0", opener.opens)
	}
}

func TestExecuteWithoutReadOnlyRunsAnyStatement(t *testing.T) {
	connector := newSQLiteConnector(t)
	seedSales(t, connector)

	outcome := NewExecutor(connector, Options{}).Execute(context.Background(), "DELETE FROM SalesTable WHERE SaleID = 12")
	if outcome.Failed() {
		t.Fatalf("Execute() failed: %s", outcome.Error)
	}
	remaining := NewExecutor(connector, Options{}).Execute(context.Background(), "SELECT SaleID FROM SalesTable")
	if len(remaining.Rows) != 2 {
		t.Fatalf("rows after delete = %d", len(remaining.Rows))
	}
}

type fixedOpener struct {
	db  *sql.DB
	err error
}

func (f fixedOpener) Open(context.Context) (*sql.DB, error) {
	return f.db, f.err
}

type countingOpener struct {
	opens int
}

func (c *countingOpener) Open(context.Context) (*sql.DB, error) {
	c.opens++
	return nil, errors.New("unexpected open")
}

func newSQLiteConnector(t *testing.T) *store.Connector {
	t.Helper()
	connector, err := store.New(store.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "sales.db")})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return connector
}

func seedSales(t *testing.T, connector *store.Connector) {
	t.Helper()
	db, err := connector.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	statements := []string{
		"CREATE TABLE SalesTable (SaleID INTEGER PRIMARY KEY, CustomerID INTEGER NOT NULL, Amount REAL NOT NULL)",
		"INSERT INTO SalesTable (SaleID, CustomerID, Amount) VALUES (10, 1, 20.5), (11, 1, 30), (12, 2, 12.25)",
	}
	for _, statement := range statements {
		if _, err := db.Exec(statement); err != nil {
			t.Fatalf("Exec(%q) error = %v", statement, err)
		}
	}
}
