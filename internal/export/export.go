// Package export renders successful query outcomes as downloadable files and
// archives them to the object store.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/salesqa/salesqa/internal/query"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

var ErrFailedOutcome = errors.New("cannot export a failed query")

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", raw)
	}
}

func (f Format) Extension() string {
	return string(f)
}

func (f Format) ContentType() string {
	if f == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv"
}

// Render writes the outcome in the requested format. Columns keep the order
// the store reported them in.
func Render(w io.Writer, format Format, outcome query.Outcome) error {
	if outcome.Failed() {
		return ErrFailedOutcome
	}
	switch format {
	case FormatCSV:
		return writeCSV(w, outcome)
	case FormatParquet:
		return writeParquet(w, outcome)
	default:
		return fmt.Errorf("unsupported export format: %q", format)
	}
}

// Bytes renders into memory, for uploads that need the size up front.
func Bytes(format Format, outcome query.Outcome) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, format, outcome); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSV(w io.Writer, outcome query.Outcome) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(outcome.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(outcome.Columns))
	for _, row := range outcome.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) && row[i] != nil {
				record[i] = formatCell(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	case time.Time:
		return typed.Format(time.RFC3339Nano)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}
