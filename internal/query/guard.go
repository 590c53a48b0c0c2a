package query

import (
	"errors"
	"strings"
)

var (
	ErrEmptyQuery      = errors.New("query is empty")
	ErrNotSelectQuery  = errors.New("only SELECT or WITH queries are allowed")
	ErrMultipleQueries = errors.New("only a single statement is allowed")
)

// CheckReadOnly accepts one SELECT or WITH statement with optional trailing
// semicolons. Semicolons inside string literals are rejected too.
func CheckReadOnly(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	if trimmed == "" {
		return ErrEmptyQuery
	}
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return ErrNotSelectQuery
	}
	if strings.Contains(trimmed, ";") {
		return ErrMultipleQueries
	}
	return nil
}
