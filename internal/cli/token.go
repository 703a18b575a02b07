package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tripdesk/internal/config"
	"tripdesk/internal/domain"
	"tripdesk/internal/middleware"
)

// TokenCmd returns the token command.
func TokenCmd() *cobra.Command {
	var actorID, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := issueToken([]byte(cfg.Auth.JWTSecret), actorID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&actorID, "actor", "", "actor id (required)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleEmployee), "employee, manager or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func issueToken(secret []byte, actorID, role string, ttl time.Duration) (string, error) {
	r := domain.Role(role)
	if r.Rank() == 0 {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		return "", errors.New("--ttl must be positive")
	}
	return middleware.IssueToken(secret, domain.Actor{ID: actorID, Role: r}, ttl)
}
