// Package cmd holds the tallyctl commands. They let cron jobs and operators
// trigger ledger maintenance without going through the HTTP API.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/config"
)

var (
	envFile string
	debug   bool
	owner   string

	cfg    *config.Config
	ledger *app.App
)

var rootCmd = &cobra.Command{
	Use:   "tallyctl",
	Short: "Run tally ledger maintenance jobs",
	Long: `tallyctl runs the periodic ledger jobs against the configured storage.

Example:
  tallyctl migrate
  tallyctl sweep --owner 5f0c... --as-of 2024-06-30
  tallyctl generate --owner 5f0c...
  tallyctl reconcile --owner 5f0c... --account 9a1b...`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if err := godotenv.Load(envFile); err != nil && envFile != ".env" {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}

		var err error

		cfg, err = config.Load()
		if err != nil {
			return err
		}

		if cmd.Annotations["ledger"] != "true" {
			return nil
		}

		ledger, err = app.New(cfg)

		return err
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if ledger == nil {
			return nil
		}

		return ledger.Close()
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		slog.Error("command failed", "error", err)
	}

	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd, sweepCmd, generateCmd, reconcileCmd, tokenCmd)
}

// needsLedger marks a command that opens storage before it runs.
func needsLedger(c *cobra.Command) *cobra.Command {
	if c.Annotations == nil {
		c.Annotations = map[string]string{}
	}

	c.Annotations["ledger"] = "true"

	return c
}

func ownerFlag(c *cobra.Command) {
	c.Flags().StringVar(&owner, "owner", "", "owner id (required)")
	_ = c.MarkFlagRequired("owner")
}

func ownerID() (uuid.UUID, error) {
	id, err := uuid.Parse(owner)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --owner: %w", err)
	}

	return id, nil
}
