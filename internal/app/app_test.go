package app_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/config"
)

func memoryConfig() *config.Config {
	var cfg config.Config
	cfg.App.Storage = "memory"
	cfg.Ledger.Timezone = "UTC"
	cfg.Ledger.LookaheadMonths = 12
	cfg.Ledger.GenerateConcurrency = 2

	return &cfg
}

func TestNew_Memory(t *testing.T) {
	a, err := app.New(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Nil(t, a.DB)
	require.NoError(t, a.Migrate())

	owner := uuid.New()

	acc, err := a.Accounts.Create(context.Background(), account.CreateParams{
		OwnerID:        owner,
		Name:           "Wallet",
		Type:           account.TypeCash,
		OpeningBalance: decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	rec, err := a.Transactions.Reconcile(context.Background(), owner, acc.ID)
	require.NoError(t, err)
	assert.True(t, rec.Balanced())
}

func TestNew_BadTimezone(t *testing.T) {
	cfg := memoryConfig()
	cfg.Ledger.Timezone = "Mars/Olympus_Mons"

	_, err := app.New(cfg)
	assert.Error(t, err)
}
