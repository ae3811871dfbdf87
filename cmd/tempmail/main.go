package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/tempmail/internal/adapter/driven/historyapi"
	"github.com/ericfisherdev/tempmail/internal/adapter/driven/keyringstore"
	"github.com/ericfisherdev/tempmail/internal/adapter/driven/mailapi"
	"github.com/ericfisherdev/tempmail/internal/adapter/driven/mime"
	sqliteadapter "github.com/ericfisherdev/tempmail/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/tempmail/internal/application"
	"github.com/ericfisherdev/tempmail/internal/config"
	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)

type clientFlags struct {
	switchTo string
	create   string
	domain   string
	once     bool
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		slog.Error("fatal error", "error", err, "kind", model.KindOf(err))
		os.Exit(1)
	}
}

func parseFlags() clientFlags {
	switchTo := flag.String("switch", "", "switch to a previously used address")
	create := flag.String("create", "", "claim a new address with this name")
	domain := flag.String("domain", "", "domain for -create (defaults to the first configured domain)")
	once := flag.Bool("once", false, "print the inbox once and exit instead of refreshing")
	flag.Parse()

	return clientFlags{
		switchTo: *switchTo,
		create:   *create,
		domain:   *domain,
		once:     *once,
	}
}

func run(flags clientFlags) error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireClient(); err != nil {
		return err
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the local cache.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer.DB, sqliteadapter.SchemaClient); err != nil {
		return err
	}

	// 4. Wire adapters.
	var creds driven.CredentialStore
	switch cfg.CredentialBackend {
	case config.BackendKeyring:
		store, err := keyringstore.Open(cfg.KeyringDir, cfg.KeyringPassword)
		if err != nil {
			return err
		}
		creds = store
	default:
		creds = sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	}

	gateway, err := mailapi.NewClient(cfg.MailAPIURL, cfg.Domains, slog.Default())
	if err != nil {
		return err
	}

	deps := application.SessionDeps{
		Credentials:     creds,
		Gateway:         gateway,
		Decoder:         mime.NewDecoder(),
		Local:           sqliteadapter.NewLocalHistoryRepo(db),
		RefreshInterval: cfg.RefreshInterval,
		PageSize:        cfg.PageSize,
		OnRefresh:       printSnapshot,
	}
	if cfg.HasHistoryAPI() {
		history, err := historyapi.NewClient(nil, cfg.HistoryAPIURL, cfg.SessionToken)
		if err != nil {
			return err
		}
		deps.Cloud = history
		deps.Subscriptions = history
	}

	session := application.NewSession(deps)

	// 5. Select the identity.
	result, err := session.Reconciler.Initialize(ctx)
	switch {
	case err != nil && result.CloudUnavailable:
		slog.Warn("cloud history unavailable, no address restored", "error", err)
	case err != nil:
		return err
	}
	if result.NeedsRecovery {
		fmt.Printf("%s needs recovery: run with -switch %s\n", result.Mailbox.Address, result.Mailbox.Address)
	}

	switch {
	case flags.switchTo != "":
		if _, err := session.Reconciler.Switch(ctx, model.Address(flags.switchTo)); err != nil {
			return err
		}
	case flags.create != "":
		domain := flags.domain
		if domain == "" {
			domain = cfg.Domains[0]
		}
		if _, err := session.Reconciler.Create(ctx, flags.create, domain); err != nil {
			return err
		}
	}

	active, err := session.Reconciler.Active(ctx)
	if err != nil {
		return err
	}
	if active.Address.IsZero() {
		fmt.Println("no active address: run with -create NAME")
		return nil
	}
	fmt.Printf("active address: %s (%s tier)\n", active.Address, result.Tier)

	if flags.once {
		msgs, total, err := session.Mailbox.ListMessages(ctx, cfg.PageSize, 0)
		if err != nil {
			return err
		}
		printSnapshot(application.Snapshot{Messages: msgs, Total: total})
		return nil
	}

	// 6. Refresh until interrupted.
	session.Refresher.Start(ctx)
	return nil
}

func printSnapshot(snap application.Snapshot) {
	fmt.Printf("%d message(s)\n", snap.Total)
	for _, msg := range snap.Messages {
		marker := ""
		if !msg.Decoded() {
			marker = " [raw]"
		}
		fmt.Printf("  %s  %-30s  %s%s\n", msg.CreatedAt.Format("2006-01-02 15:04"), msg.From, msg.Subject, marker)
	}
}
