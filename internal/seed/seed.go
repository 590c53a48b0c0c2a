// Package seed creates the three sales tables and fills them with a small,
// fixed demo data set. Scripts are plain SQL that every supported engine
// accepts, run one statement at a time.
package seed

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

var scriptNamePattern = regexp.MustCompile(`^([0-9]+)_.+\.(up|down)\.sql$`)

type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

type script struct {
	Version int64
	Name    string
	Up      []string
	Down    []string
}

// Up applies every script in version order and returns how many ran.
func (r *Runner) Up(ctx context.Context, db *sql.DB) (int, error) {
	scripts, err := loadScripts(r.fsys)
	if err != nil {
		return 0, err
	}
	for i, item := range scripts {
		if err := runStatements(ctx, db, item.Up); err != nil {
			return i, fmt.Errorf("apply seed %s: %w", item.Name, err)
		}
	}
	return len(scripts), nil
}

// Down reverts every script in reverse version order.
func (r *Runner) Down(ctx context.Context, db *sql.DB) (int, error) {
	scripts, err := loadScripts(r.fsys)
	if err != nil {
		return 0, err
	}
	ran := 0
	for i := len(scripts) - 1; i >= 0; i-- {
		item := scripts[i]
		if err := runStatements(ctx, db, item.Down); err != nil {
			return ran, fmt.Errorf("revert seed %s: %w", item.Name, err)
		}
		ran++
	}
	return ran, nil
}

// Reset drops the tables if they exist and seeds from scratch.
func (r *Runner) Reset(ctx context.Context, db *sql.DB) (int, error) {
	scripts, err := loadScripts(r.fsys)
	if err != nil {
		return 0, err
	}
	if len(scripts) > 0 {
		if err := runStatements(ctx, db, scripts[0].Down); err != nil {
			return 0, fmt.Errorf("revert seed %s: %w", scripts[0].Name, err)
		}
	}
	return r.Up(ctx, db)
}

func runStatements(ctx context.Context, db *sql.DB, statements []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, statement := range statements {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(statement), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func loadScripts(fsys fs.FS) ([]script, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read seed dir: %w", err)
	}

	items := map[int64]script{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := path.Base(entry.Name())
		matches := scriptNamePattern.FindStringSubmatch(base)
		if len(matches) != 3 {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse seed version for %q: %w", base, err)
		}
		body, err := fs.ReadFile(fsys, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read seed %q: %w", entry.Name(), err)
		}

		item := items[version]
		item.Version = version
		item.Name = strings.TrimSuffix(strings.TrimSuffix(base, ".up.sql"), ".down.sql")
		if matches[2] == "up" {
			item.Up = splitStatements(string(body))
		} else {
			item.Down = splitStatements(string(body))
		}
		items[version] = item
	}

	scripts := make([]script, 0, len(items))
	for _, item := range items {
		if len(item.Up) == 0 {
			return nil, fmt.Errorf("seed %d missing up SQL", item.Version)
		}
		if len(item.Down) == 0 {
			return nil, fmt.Errorf("seed %d missing down SQL", item.Version)
		}
		scripts = append(scripts, item)
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version < scripts[j].Version })
	return scripts, nil
}

// splitStatements cuts a script at semicolons that end a line. Full-line
// "--" comments are dropped.
func splitStatements(body string) []string {
	var statements []string
	var current strings.Builder
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if strings.HasSuffix(trimmed, ";") {
			current.WriteString(strings.TrimSuffix(strings.TrimRight(line, " \t\r"), ";"))
			if statement := strings.TrimSpace(current.String()); statement != "" {
				statements = append(statements, statement)
			}
			current.Reset()
			continue
		}
		current.WriteString(strings.TrimRight(line, "\r"))
		current.WriteString("\n")
	}
	if statement := strings.TrimSpace(current.String()); statement != "" {
		statements = append(statements, statement)
	}
	return statements
}

func firstLine(statement string) string {
	line, _, _ := strings.Cut(statement, "\n")
	return line
}
