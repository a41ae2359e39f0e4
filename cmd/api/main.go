package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/config"
	tallyHttp "github.com/MrJamesThe3rd/tally/internal/http"
	accountHandler "github.com/MrJamesThe3rd/tally/internal/http/account"
	importHandler "github.com/MrJamesThe3rd/tally/internal/http/importcsv"
	jobsHandler "github.com/MrJamesThe3rd/tally/internal/http/jobs"
	matchingHandler "github.com/MrJamesThe3rd/tally/internal/http/matching"
	templateHandler "github.com/MrJamesThe3rd/tally/internal/http/recurring"
	txHandler "github.com/MrJamesThe3rd/tally/internal/http/transaction"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Migrate(); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	router := tallyHttp.New(tallyHttp.Handlers{
		Accounts:     accountHandler.NewHandler(a.Accounts, a.Transactions),
		Transactions: txHandler.NewHandler(a.Transactions),
		Templates:    templateHandler.NewHandler(a.Templates),
		Jobs:         jobsHandler.NewHandler(a.Transactions, a.Templates),
		Import:       importHandler.NewHandler(a.Importer),
		Matching:     matchingHandler.NewHandler(a.Matching),
	}, tallyHttp.Options{
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "name", cfg.App.Name, "addr", srv.Addr, "storage", cfg.App.Storage)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
