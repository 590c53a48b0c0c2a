package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/salesqa/salesqa/internal/config"
	"github.com/salesqa/salesqa/internal/seed"
	"github.com/salesqa/salesqa/internal/store"
)

func main() {
	_ = godotenv.Load()

	var timeout time.Duration
	root := &cobra.Command{
		Use:          "salesqa-seed",
		Short:        "Create the sales tables and load the demo rows",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")

	run := func(verb string, apply func(context.Context, *seed.Runner, *connection) (int, error)) *cobra.Command {
		return &cobra.Command{
			Use:   verb,
			Short: verb + " the seed scripts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				conn, err := connect(ctx)
				if err != nil {
					return err
				}
				defer func() { _ = conn.db.Close() }()

				count, err := apply(ctx, seed.NewRunner(), conn)
				if err != nil {
					return fmt.Errorf("seed %s failed: %w", verb, err)
				}
				fmt.Printf("%s: ran %d script(s) against %s\n", verb, count, conn.dialect)
				return nil
			},
		}
	}
	root.AddCommand(
		run("up", func(ctx context.Context, r *seed.Runner, c *connection) (int, error) { return r.Up(ctx, c.db) }),
		run("down", func(ctx context.Context, r *seed.Runner, c *connection) (int, error) { return r.Down(ctx, c.db) }),
		run("reset", func(ctx context.Context, r *seed.Runner, c *connection) (int, error) { return r.Reset(ctx, c.db) }),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*connection, error) {
	cfg, err := config.LoadFromEnv("salesqa-seed")
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	connector, err := store.New(store.Config{
		Driver:      cfg.Store.Driver,
		DSN:         cfg.Store.DSN,
		PingTimeout: cfg.Store.PingTimeout,
	})
	if err != nil {
		return nil, err
	}
	db, err := connector.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &connection{db: db, dialect: connector.Dialect().Name}, nil
}

type connection struct {
	db      *sql.DB
	dialect string
}
