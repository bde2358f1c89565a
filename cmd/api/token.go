package main

import (
	"fmt"
	"time"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/auth"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/clock"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for staff tooling",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}

			token, err := auth.NewTokenIssuer(cfg.JWTSecret, ttl, clock.NewSystem()).Issue(auth.Principal{ID: subject, Role: r})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "principal id carried by the token")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleOperator), "operator, settler or requester")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
