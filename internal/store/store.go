package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// ErrConnection marks failures to reach the store or authenticate against it.
var ErrConnection = errors.New("store connection failed")

type Config struct {
	Driver      string
	DSN         string
	PingTimeout time.Duration
}

// OpenFunc matches sql.Open so tests can hand out sqlmock handles.
type OpenFunc func(driverName, dataSourceName string) (*sql.DB, error)

// Connector hands out one fresh, single-connection handle per Open call.
// Callers own the handle and must close it.
type Connector struct {
	driverName  string
	dsn         string
	pingTimeout time.Duration
	dialect     Dialect
	open        OpenFunc
}

func New(cfg Config) (*Connector, error) {
	return NewWithOpener(cfg, sql.Open)
}

func NewWithOpener(cfg Config, open OpenFunc) (*Connector, error) {
	if open == nil {
		return nil, fmt.Errorf("open function is required")
	}
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("store dsn is required")
	}
	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	return &Connector{
		driverName:  dialect.DriverName,
		dsn:         strings.TrimSpace(cfg.DSN),
		pingTimeout: pingTimeout,
		dialect:     dialect,
		open:        open,
	}, nil
}

func (c *Connector) Dialect() Dialect {
	return c.dialect
}

func (c *Connector) Open(ctx context.Context) (*sql.DB, error) {
	db, err := c.open(c.driverName, c.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnection, c.driverName, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnection, c.driverName, err)
	}
	return db, nil
}

func (c *Connector) HealthCheck(ctx context.Context) error {
	db, err := c.Open(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}
