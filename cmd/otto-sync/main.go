// otto-sync is the thin wiring entrypoint for the sync engine: it loads
// configuration, opens the local store, and drives one sync pass. Account
// onboarding, the credential store's OAuth backing, and the TUI are out of
// scope; --add-account here only registers a row against an already-known
// email/token pair, --no-sync exits after that registration step without
// syncing, and --tui is accepted and no-op'd since it belongs to those
// excluded collaborators.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/hkdb/aerion/internal/collab"
	"github.com/hkdb/aerion/internal/config"
	"github.com/hkdb/aerion/internal/logging"
	"github.com/hkdb/aerion/internal/store"
	"github.com/hkdb/aerion/internal/sync"
)

var (
	addAccount = flag.String("add-account", "", "register a new account (email address) before syncing")
	token      = flag.String("token", "", "access token for the account being added via --add-account")
	noSync     = flag.Bool("no-sync", false, "exit after any --add-account registration without running a sync pass")
	force      = flag.Bool("force", false, "bypass the fast-path exit and re-scan every folder")
	safeMode   = flag.Bool("safe-mode", false, "suppress server-mutating IMAP commands")
	tui        = flag.Bool("tui", false, "accepted for compatibility with the onboarding CLI; no-op here")
)

func main() {
	flag.Parse()
	_ = *noSync
	_ = *tui

	log := logging.WithComponent("cmd")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *safeMode {
		cfg.SafeMode = true
	}

	db, err := store.Open(cfg.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	st := store.New(db)

	tokens := collab.NewStaticTokenProvider(nil)

	if *addAccount != "" {
		account := store.Account{
			ID:                  uuid.New().String(),
			Email:               *addAccount,
			Provider:            "gmail_imap",
			Folders:             cfg.Folders,
			CutoffSince:         cfg.CutoffSince.Format("2006-01-02"),
			PollIntervalMinutes: cfg.PollIntervalMinutes,
			PrefetchRecent:      cfg.PrefetchRecent,
			SafeMode:            cfg.SafeMode,
			CreatedAt:           collab.SystemClock{}.Now(),
			UpdatedAt:           collab.SystemClock{}.Now(),
		}
		if err := st.SaveAccount(account); err != nil {
			fmt.Fprintf(os.Stderr, "save account: %v\n", err)
			os.Exit(1)
		}
		if *token != "" {
			tokens.Set(account.ID, collab.TokenBundle{AccessToken: *token})
		}
		log.Info().Str("account", account.ID).Str("email", account.Email).Msg("account registered")
	}

	if *noSync {
		return
	}

	accounts, err := st.ListAccounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list accounts: %v\n", err)
		os.Exit(1)
	}
	if len(accounts) == 0 {
		log.Warn().Msg("no accounts configured, nothing to sync")
		return
	}

	engine := sync.NewEngine(st, tokens, collab.SystemClock{}, "")
	defer engine.Close()

	engine.SyncAll(context.Background(), accounts, *force)
}
