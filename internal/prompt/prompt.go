// Package prompt renders the completion prompt from a question and the three
// table samples. Build is pure: the same inputs always give the same text.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/salesqa/salesqa/internal/sampler"
)

const closingRules = `Rules:
- Use JOINs between the tables where the question needs data from more than one of them.
- Use GROUP BY, ORDER BY, aggregate functions and subqueries as the question requires.
- Use fully qualified table and column names.
- Do not use markdown formatting and do not add explanations.
- Return only the SQL query.`

type Options struct {
	// Dialect names the target engine, for example "SQL Server".
	Dialect string
}

func Build(question string, samples sampler.Samples, opts Options) string {
	dialect := strings.TrimSpace(opts.Dialect)
	if dialect == "" {
		dialect = "SQL"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert %s assistant. Write one %s query that answers the user's question using the tables described below.\n\n", dialect, dialect)

	b.WriteString("Table relationships:\n")
	fmt.Fprintf(&b, "- %s.CustomerID links to %s.CustomerID. One customer has many sales.\n", samples.Customer.Table, samples.Sales.Table)
	fmt.Fprintf(&b, "- %s.SaleID links to %s.SaleID. One sale has many transactions.\n\n", samples.Sales.Table, samples.Transaction.Table)

	for _, sample := range samples.All() {
		writeTable(&b, sample)
	}

	b.WriteString("User question:\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(closingRules)
	b.WriteString("\n")
	return b.String()
}

func writeTable(b *strings.Builder, sample sampler.TableSample) {
	fmt.Fprintf(b, "Table %s\n", sample.Table)
	if sample.Role != "" {
		fmt.Fprintf(b, "Role: %s\n", sample.Role)
	}
	fmt.Fprintf(b, "Columns: %s\n", strings.Join(sample.Columns, ", "))
	b.WriteString("Sample rows:\n")
	if len(sample.Rows) == 0 {
		b.WriteString("(no rows)\n")
	}
	for _, row := range sample.Rows {
		b.WriteString("{")
		for i, column := range sample.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			var value any
			if i < len(row) {
				value = row[i]
			}
			b.WriteString(column)
			b.WriteString(": ")
			b.WriteString(formatValue(value))
		}
		b.WriteString("}\n")
	}
	b.WriteString("\n")
}

// formatValue renders strings inside single quotes without escaping so the
// sampled text appears in the prompt exactly as stored.
func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + typed + "'"
	case []byte:
		return "'" + string(typed) + "'"
	case time.Time:
		return "'" + typed.Format(time.RFC3339) + "'"
	case bool:
		return strconv.FormatBool(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}
