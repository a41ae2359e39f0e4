package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	asOf      string
	accountID string
)

var migrateCmd = needsLedger(&cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := ledger.Migrate(); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")

		return nil
	},
})

var sweepCmd = needsLedger(&cobra.Command{
	Use:   "sweep",
	Short: "Mark pending transactions dated before --as-of as overdue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, day, err := ownerAndDay()
		if err != nil {
			return err
		}

		n, err := ledger.Transactions.SweepOverdue(cmd.Context(), id, day)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d transactions marked overdue\n", n)

		return nil
	},
})

var generateCmd = needsLedger(&cobra.Command{
	Use:   "generate",
	Short: "Catch every active recurring template up to --as-of",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, day, err := ownerAndDay()
		if err != nil {
			return err
		}

		txs, err := ledger.Templates.GenerateDue(cmd.Context(), id, day)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, tx := range txs {
			fmt.Fprintf(out, "%s  %-30s %10s %s\n",
				tx.Date.Format(time.DateOnly), tx.Title, tx.Amount.StringFixed(2), tx.Type)
		}

		fmt.Fprintf(out, "%d transactions generated\n", len(txs))

		return nil
	},
})

var reconcileCmd = needsLedger(&cobra.Command{
	Use:   "reconcile",
	Short: "Compare an account's stored balance with its paid transactions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := ownerID()
		if err != nil {
			return err
		}

		acc, err := uuid.Parse(accountID)
		if err != nil {
			return fmt.Errorf("invalid --account: %w", err)
		}

		rec, err := ledger.Transactions.Reconcile(cmd.Context(), id, acc)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "stored %s, expected %s\n",
			rec.Stored.StringFixed(2), rec.Expected.StringFixed(2))

		if !rec.Balanced() {
			return fmt.Errorf("account %s is off by %s", acc, rec.Stored.Sub(rec.Expected).StringFixed(2))
		}

		return nil
	},
})

func init() {
	for _, c := range []*cobra.Command{sweepCmd, generateCmd} {
		ownerFlag(c)
		c.Flags().StringVar(&asOf, "as-of", "", "day to run the job for, YYYY-MM-DD (default today)")
	}

	ownerFlag(reconcileCmd)
	reconcileCmd.Flags().StringVar(&accountID, "account", "", "account id (required)")
	_ = reconcileCmd.MarkFlagRequired("account")
}

func ownerAndDay() (uuid.UUID, time.Time, error) {
	id, err := ownerID()
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}

	if asOf == "" {
		return id, time.Time{}, nil
	}

	day, err := time.Parse(time.DateOnly, asOf)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("invalid --as-of: %w", err)
	}

	return id, day, nil
}
