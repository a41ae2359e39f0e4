package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/http/auth"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for --owner (a new owner id when omitted)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}

		id := uuid.New()

		if owner != "" {
			var err error
			if id, err = ownerID(); err != nil {
				return err
			}
		}

		now := time.Now()

		token, err := auth.Token([]byte(cfg.Auth.JWTSecret), id, jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		})
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "owner: %s\ntoken: %s\n", id, token)

		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&owner, "owner", "", "owner id")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
