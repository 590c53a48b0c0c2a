package export

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/salesqa/salesqa/internal/query"
)

// writeParquet stores every column as an optional string. Generated queries
// have no declared schema, so cell values are stringified the same way as CSV.
func writeParquet(w io.Writer, outcome query.Outcome) error {
	names := parquetColumnNames(outcome.Columns)
	if len(names) == 0 {
		return fmt.Errorf("parquet export needs at least one column")
	}
	schema := parquet.SchemaOf(reflect.Zero(resultRowType(names)).Interface())

	// Leaves follow struct field order; Lookup keeps the mapping explicit.
	leafIndex := make([]int, len(names))
	for i, name := range names {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return fmt.Errorf("parquet column %q missing from schema", name)
		}
		leafIndex[i] = leaf.ColumnIndex
	}

	writer := parquet.NewWriter(w, schema)
	rows := make([]parquet.Row, 0, len(outcome.Rows))
	for _, source := range outcome.Rows {
		row := make(parquet.Row, len(names))
		for i := range names {
			var value any
			if i < len(source) {
				value = source[i]
			}
			if value == nil {
				row[leafIndex[i]] = parquet.NullValue().Level(0, 0, leafIndex[i])
				continue
			}
			row[leafIndex[i]] = parquet.ValueOf(formatCell(value)).Level(0, 1, leafIndex[i])
		}
		rows = append(rows, row)
	}
	if _, err := writer.WriteRows(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// resultRowType builds a struct with one optional string field per column.
// parquet.Group sorts its fields by name, a struct keeps declaration order.
func resultRowType(names []string) reflect.Type {
	fields := make([]reflect.StructField, len(names))
	for i, name := range names {
		fields[i] = reflect.StructField{
			Name: "Col" + strconv.Itoa(i),
			Type: reflect.TypeOf(""),
			Tag:  reflect.StructTag(`parquet:"` + name + `,optional"`),
		}
	}
	return reflect.StructOf(fields)
}

// parquetColumnNames fills blank and duplicate names, which engines happily
// return for expressions like COUNT(*) joined across tables.
func parquetColumnNames(columns []string) []string {
	names := make([]string, len(columns))
	seen := make(map[string]bool, len(columns))
	for i, column := range columns {
		name := strings.Map(tagSafe, strings.TrimSpace(column))
		if name == "" || name == "-" || seen[name] {
			name = "col_" + strconv.Itoa(i+1)
		}
		for seen[name] {
			name += "_"
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// tagSafe replaces the characters a parquet struct tag cannot carry in a name.
func tagSafe(r rune) rune {
	switch r {
	case ',', '"', '\\', '`':
		return '_'
	}
	return r
}
