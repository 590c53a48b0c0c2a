// Package query runs generated SQL against the store and folds every failure
// into a displayable Outcome.
package query

import "time"

// Outcome is either a result set or a failure message, never both. Columns
// and Rows are nil when Error is set.
type Outcome struct {
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

func (o Outcome) Failed() bool {
	return o.Error != ""
}

// Records returns the rows keyed by column name. Column order is only
// available from Columns.
func (o Outcome) Records() []map[string]any {
	if o.Failed() {
		return nil
	}
	records := make([]map[string]any, 0, len(o.Rows))
	for _, row := range o.Rows {
		record := make(map[string]any, len(o.Columns))
		for i, column := range o.Columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}

func failure(err error, took time.Duration) Outcome {
	return Outcome{Error: "query failed: " + err.Error(), Duration: took}
}
