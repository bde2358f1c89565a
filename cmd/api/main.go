package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/config"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "api",
		Short:         "Field booking API: availability, reservations and payment reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env and the environment. Startup warnings go to stderr
// before the configured logger exists.
func loadConfig() (config.Config, *slog.Logger, error) {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, nil))
	config.LoadDotEnv(bootstrap)

	cfg, err := config.FromEnv(bootstrap)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, config.NewLogger(cfg), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "api %s (commit=%s, built=%s)\n", Version, CommitSHA, BuildDate)
		},
	}
}
