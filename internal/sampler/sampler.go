// Package sampler reads a handful of rows from each of the three sales tables
// so the prompt can describe their shape.
package sampler

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/salesqa/salesqa/internal/store"
)

const (
	CustomerRole    = "Customers who buy from the business. One row per customer, keyed by CustomerID."
	SalesRole       = "Sales made to customers. One row per sale, keyed by SaleID and linked to a customer by CustomerID."
	TransactionRole = "Payment transactions recorded against sales. Linked to a sale by SaleID."
)

// TableSample is a small, read-only slice of one table.
type TableSample struct {
	Table   string   `json:"table"`
	Role    string   `json:"role"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Records returns the rows keyed by column name.
func (s TableSample) Records() []map[string]any {
	records := make([]map[string]any, 0, len(s.Rows))
	for _, row := range s.Rows {
		record := make(map[string]any, len(s.Columns))
		for i, column := range s.Columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}

type Samples struct {
	Customer    TableSample `json:"customer"`
	Sales       TableSample `json:"sales"`
	Transaction TableSample `json:"transaction"`
}

// All returns the samples in customer, sales, transaction order.
func (s Samples) All() []TableSample {
	return []TableSample{s.Customer, s.Sales, s.Transaction}
}

type Tables struct {
	Customer    string
	Sales       string
	Transaction string
}

type Opener interface {
	Open(ctx context.Context) (*sql.DB, error)
	Dialect() store.Dialect
}

type Sampler struct {
	opener Opener
	tables Tables
	rows   int
}

func New(opener Opener, tables Tables, rows int) *Sampler {
	if rows <= 0 {
		rows = 3
	}
	return &Sampler{opener: opener, tables: tables, rows: rows}
}

func (s *Sampler) Tables() Tables {
	return s.tables
}

// Samples opens one connection, reads the three tables and releases the
// connection before returning. Errors are returned unrecovered.
func (s *Sampler) Samples(ctx context.Context) (Samples, error) {
	if s.opener == nil {
		return Samples{}, fmt.Errorf("store opener is required")
	}
	db, err := s.opener.Open(ctx)
	if err != nil {
		return Samples{}, err
	}
	defer func() { _ = db.Close() }()

	dialect := s.opener.Dialect()
	customer, err := s.sampleTable(ctx, db, dialect, s.tables.Customer, CustomerRole)
	if err != nil {
		return Samples{}, err
	}
	sales, err := s.sampleTable(ctx, db, dialect, s.tables.Sales, SalesRole)
	if err != nil {
		return Samples{}, err
	}
	transaction, err := s.sampleTable(ctx, db, dialect, s.tables.Transaction, TransactionRole)
	if err != nil {
		return Samples{}, err
	}
	return Samples{Customer: customer, Sales: sales, Transaction: transaction}, nil
}

func (s *Sampler) sampleTable(ctx context.Context, db *sql.DB, dialect store.Dialect, table, role string) (TableSample, error) {
	rows, err := db.QueryContext(ctx, dialect.SampleQuery(table, s.rows))
	if err != nil {
		return TableSample{}, fmt.Errorf("%w: sample table %q: %w", store.ErrConnection, table, err)
	}
	defer func() { _ = rows.Close() }()

	columns, values, err := store.ScanAll(rows)
	if err != nil {
		return TableSample{}, fmt.Errorf("%w: read sample of %q: %w", store.ErrConnection, table, err)
	}
	return TableSample{Table: table, Role: role, Columns: columns, Rows: values}, nil
}
