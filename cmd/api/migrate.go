package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/config"
	"github.com/Mas2205/UrbanFootCenter-sub002/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv(slog.New(slog.NewTextHandler(os.Stderr, nil)))
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
		},
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "postgres connection string (defaults to DATABASE_URL)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(databaseURL, func(ctx context.Context, pool *pgxpool.Pool) error {
				logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
				return migrations.Apply(ctx, pool, logger)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and when they were applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(databaseURL, func(ctx context.Context, pool *pgxpool.Pool) error {
				states, err := migrations.Status(ctx, pool)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "MIGRATION\tAPPLIED")
				for _, s := range states {
					applied := "pending"
					if s.AppliedAt != nil {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%s\t%s\n", s.Name, applied)
				}
				return tw.Flush()
			})
		},
	})

	return cmd
}

func withPool(databaseURL string, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL or --database-url is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return fn(ctx, pool)
}
