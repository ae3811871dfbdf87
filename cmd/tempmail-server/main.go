package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/ericfisherdev/tempmail/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/tempmail/internal/adapter/driving/http"
	"github.com/ericfisherdev/tempmail/internal/config"
	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

type serverFlags struct {
	issueToken string
	tokenTTL   time.Duration
	grantUser  string
	grantPlan  string
	grantFor   time.Duration
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func parseFlags() serverFlags {
	issueToken := flag.String("issue-token", "", "print a session token for this user ID and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of issued session tokens (0 for no expiry)")
	grantUser := flag.String("grant-premium", "", "record an active subscription for this user ID and exit")
	grantPlan := flag.String("plan", "premium", "plan name recorded by -grant-premium")
	grantFor := flag.Duration("grant-for", 0, "subscription length for -grant-premium (0 for open-ended)")
	flag.Parse()

	return serverFlags{
		issueToken: *issueToken,
		tokenTTL:   *tokenTTL,
		grantUser:  *grantUser,
		grantPlan:  *grantPlan,
		grantFor:   *grantFor,
	}
}

func run(flags serverFlags) error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireServer(); err != nil {
		return err
	}

	if flags.issueToken != "" {
		token, err := httphandler.SignSession(cfg.SessionSecret, flags.issueToken, flags.tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer.DB, sqliteadapter.SchemaServer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	historyStore := sqliteadapter.NewEmailHistoryRepo(db)
	subscriptionStore := sqliteadapter.NewSubscriptionRepo(db)

	if flags.grantUser != "" {
		sub := model.Subscription{UserID: flags.grantUser, Plan: flags.grantPlan, Status: "active"}
		if flags.grantFor > 0 {
			sub.ExpiresAt = time.Now().Add(flags.grantFor)
		}
		if err := subscriptionStore.Put(ctx, sub); err != nil {
			return err
		}
		slog.Info("subscription recorded", "user", sub.UserID, "plan", sub.Plan, "expires_at", sub.ExpiresAt)
		return nil
	}

	// 6. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(historyStore, subscriptionStore, cfg.SessionSecret, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 7. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 8. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
