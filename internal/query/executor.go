package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/salesqa/salesqa/internal/store"
)

type Opener interface {
	Open(ctx context.Context) (*sql.DB, error)
}

type Options struct {
	// ReadOnly rejects anything other than a single SELECT or WITH statement
	// before it reaches the store.
	ReadOnly bool
}

type Executor struct {
	opener   Opener
	readOnly bool
}

func NewExecutor(opener Opener, opts Options) *Executor {
	return &Executor{opener: opener, readOnly: opts.ReadOnly}
}

// Execute opens a fresh connection, runs sqlText as-is and closes the
// connection before returning. It never returns an error: connection,
// execution and scan failures all become a failed Outcome.
func (e *Executor) Execute(ctx context.Context, sqlText string) Outcome {
	start := time.Now()
	if e.readOnly {
		if err := CheckReadOnly(sqlText); err != nil {
			return failure(err, time.Since(start))
		}
	}
	if e.opener == nil {
		return failure(fmt.Errorf("store opener is required"), time.Since(start))
	}

	db, err := e.opener.Open(ctx)
	if err != nil {
		return failure(err, time.Since(start))
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return failure(err, time.Since(start))
	}
	defer func() { _ = rows.Close() }()

	columns, values, err := store.ScanAll(rows)
	if err != nil {
		return failure(err, time.Since(start))
	}
	return Outcome{Columns: columns, Rows: values, Duration: time.Since(start)}
}
