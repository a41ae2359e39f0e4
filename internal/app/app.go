// Package app wires storage, services and publishers from configuration.
// Every binary builds its services through it.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/tally/internal/account"
	accountstore "github.com/MrJamesThe3rd/tally/internal/account/store"
	"github.com/MrJamesThe3rd/tally/internal/clock"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/events"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	matchingstore "github.com/MrJamesThe3rd/tally/internal/matching/store"
	"github.com/MrJamesThe3rd/tally/internal/recurring"
	recurringstore "github.com/MrJamesThe3rd/tally/internal/recurring/store"
	"github.com/MrJamesThe3rd/tally/internal/storage/memory"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txstore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

type repositories struct {
	accounts     account.Repository
	transactions transaction.Repository
	templates    recurring.Repository
	rules        matching.Repository
}

type App struct {
	// DB is nil when running on the in-memory store.
	DB *sql.DB

	// Clock is today in the ledger's timezone.
	Clock clock.Clock

	Accounts     *account.Service
	Transactions *transaction.Service
	Templates    *recurring.Service
	Matching     *matching.Service
	Importer     *importer.Service

	closers []func() error
}

func New(cfg *config.Config) (*App, error) {
	a := &App{}

	clk, err := clock.NewSystem(cfg.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Ledger.Timezone, err)
	}

	a.Clock = clk

	repos, err := a.openStorage(cfg)
	if err != nil {
		return nil, err
	}

	txOpts := []transaction.Option{transaction.WithLookahead(cfg.Ledger.LookaheadMonths)}

	if cfg.AMQP.URL != "" {
		pub, err := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to event broker: %w", err)
		}

		a.closers = append(a.closers, pub.Close)
		txOpts = append(txOpts, transaction.WithPublisher(pub))

		slog.Info("publishing ledger events", "exchange", cfg.AMQP.Exchange)
	}

	a.Accounts = account.NewService(repos.accounts)
	a.Transactions = transaction.NewService(repos.transactions, clk, txOpts...)
	a.Templates = recurring.NewService(repos.templates, a.Transactions, clk,
		recurring.WithConcurrency(cfg.Ledger.GenerateConcurrency))
	a.Matching = matching.NewService(repos.rules)
	a.Importer = importer.NewService(a.Matching, a.Transactions)

	return a, nil
}

func (a *App) openStorage(cfg *config.Config) (repositories, error) {
	if cfg.App.Storage == "memory" {
		slog.Warn("using in-memory storage, data is lost on exit")

		store := memory.New()

		return repositories{
			accounts:     store.Accounts(),
			transactions: store.Transactions(),
			templates:    store.Templates(),
			rules:        store.Rules(),
		}, nil
	}

	db, err := database.New(cfg.ConnectionString(), database.Pool{
		MaxOpen:     cfg.DB.MaxOpenConns,
		MaxIdle:     cfg.DB.MaxIdleConns,
		MaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return repositories{}, err
	}

	a.DB = db
	a.closers = append(a.closers, db.Close)

	return repositories{
		accounts:     accountstore.New(db),
		transactions: txstore.New(db),
		templates:    recurringstore.New(db),
		rules:        matchingstore.New(db),
	}, nil
}

// Migrate brings the schema up to date. It does nothing on the in-memory store.
func (a *App) Migrate() error {
	if a.DB == nil {
		return nil
	}

	return database.Migrate(a.DB)
}

func (a *App) Close() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	return errors.Join(errs...)
}
