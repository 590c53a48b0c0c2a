package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var (
	entryIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,63}$`)
	extensionPattern = regexp.MustCompile(`^[a-z0-9]{1,16}$`)
)

// BuildExportKey lays archived results out by the day the question was asked:
// results/date=2026-02-19/<entry-id>.csv
func BuildExportKey(entryID string, askedAt time.Time, extension string) (string, error) {
	if !entryIDPattern.MatchString(entryID) {
		return "", fmt.Errorf("invalid entry id: %q", entryID)
	}
	if !extensionPattern.MatchString(extension) {
		return "", fmt.Errorf("invalid extension: %q", extension)
	}
	ts := askedAt.UTC()
	return path.Join(
		"results",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		entryID+"."+extension,
	), nil
}
