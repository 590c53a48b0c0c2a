package store

import (
	"database/sql"
	"math"
	"strconv"
)

// ScanAll drains rows in engine order. The returned slice is never nil.
func ScanAll(rows *sql.Rows) ([]string, [][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	result := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, err
		}
		result = append(result, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, result, nil
}

// normalizeValues turns []byte into string and NaN/±Inf into "NaN", "+Inf"
// and "-Inf" so every value can be JSON encoded.
func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case float64:
			normalized[i] = finiteOrString(typed)
		case float32:
			normalized[i] = finiteOrString(float64(typed))
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func finiteOrString(value float64) any {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'g', -1, 64)
	}
	return value
}
