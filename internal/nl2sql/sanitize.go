package nl2sql

import "strings"

// Sanitize removes surrounding whitespace and both markdown fence forms. Any
// prose around a fenced block is left in place.
func Sanitize(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```sql", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
