package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/config"
)

// TokenCmd returns the command that issues a development access token.
func TokenCmd() *cobra.Command {
	var (
		userID int64
		name   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token for a user",
		Long: `Sign an access token with the configured JWT secret, for development
and for the watch command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateAPI(); err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTTL
			}

			token, err := auth.IssueAccessToken(cfg.JWT.Secret, userID, name, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User ID the token authenticates (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: TASKBOARD_JWT_ACCESS_TTL)")

	return cmd
}
