package store

import (
	"fmt"
	"strings"
)

// Dialect captures the per-engine differences the sampler and prompt need.
type Dialect struct {
	// Name is the human readable engine name, used in prompts.
	Name       string
	DriverName string
	quoteOpen  string
	quoteClose string
	topN       bool
}

var dialects = map[string]Dialect{
	"sqlserver": {Name: "SQL Server", DriverName: "sqlserver", quoteOpen: "[", quoteClose: "]", topN: true},
	"pgx":       {Name: "PostgreSQL", DriverName: "pgx", quoteOpen: `"`, quoteClose: `"`},
	"postgres":  {Name: "PostgreSQL", DriverName: "postgres", quoteOpen: `"`, quoteClose: `"`},
	"mysql":     {Name: "MySQL", DriverName: "mysql", quoteOpen: "`", quoteClose: "`"},
	"sqlite":    {Name: "SQLite", DriverName: "sqlite", quoteOpen: `"`, quoteClose: `"`},
	"duckdb":    {Name: "DuckDB", DriverName: "duckdb", quoteOpen: `"`, quoteClose: `"`},
}

func DialectFor(driver string) (Dialect, error) {
	key := strings.ToLower(strings.TrimSpace(driver))
	if key == "mssql" {
		key = "sqlserver"
	}
	dialect, ok := dialects[key]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported store driver: %q (supported: sqlserver, pgx, postgres, mysql, sqlite, duckdb)", driver)
	}
	return dialect, nil
}

// QuoteIdent quotes each dot separated part, so "dbo.Sales" becomes [dbo].[Sales].
func (d Dialect) QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	quoted := make([]string, 0, len(parts))
	for _, part := range parts {
		escaped := strings.ReplaceAll(part, d.quoteClose, d.quoteClose+d.quoteClose)
		quoted = append(quoted, d.quoteOpen+escaped+d.quoteClose)
	}
	return strings.Join(quoted, ".")
}

func (d Dialect) SampleQuery(table string, rows int) string {
	if d.topN {
		return fmt.Sprintf("SELECT TOP %d * FROM %s", rows, d.QuoteIdent(table))
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.QuoteIdent(table), rows)
}
