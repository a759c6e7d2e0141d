// Package sync implements the per-account, per-folder incremental sync
// state machine: deciding between a baseline scan and a CONDSTORE-driven
// incremental scan, fetching and sanitizing new messages, and reconciling
// flags and moves for messages already cached locally.
package sync

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/hkdb/aerion/internal/collab"
	ottimap "github.com/hkdb/aerion/internal/imap"
	"github.com/hkdb/aerion/internal/logging"
	"github.com/hkdb/aerion/internal/otterr"
	"github.com/hkdb/aerion/internal/store"
	"github.com/rs/zerolog"
)

// defaultIMAPHost is the provider's IMAPS endpoint; every configured
// account is assumed to be a Gmail-compatible mailbox.
const defaultIMAPHost = "imap.gmail.com"

// dedupeHousekeepingLimit bounds the best-effort fallback-id dedupe run at
// the start of each account's sync pass.
const dedupeHousekeepingLimit = 500

// Engine owns the connection pool and collaborators for one running
// process and drives SyncAll across the configured accounts.
type Engine struct {
	store   *store.Store
	pool    *ottimap.Pool
	tokens  collab.TokenProvider
	clock   collab.Clock
	host    string
	log     zerolog.Logger
	workers int

	// dialFunc overrides dial's real network connect when set. Tests in
	// this package set it directly to drive syncFolder against a fake
	// FolderSession; production code leaves it nil.
	dialFunc func(ctx context.Context, account store.Account, accessToken string) (ottimap.FolderSession, error)
}

// NewEngine builds an Engine. host overrides the default IMAP host
// (imap.gmail.com), pass "" to use the default.
func NewEngine(st *store.Store, tokens collab.TokenProvider, clock collab.Clock, host string) *Engine {
	if host == "" {
		host = defaultIMAPHost
	}
	e := &Engine{
		store:   st,
		pool:    ottimap.NewPool(),
		tokens:  tokens,
		clock:   clock,
		host:    host,
		log:     logging.WithComponent("sync"),
		workers: runtime.GOMAXPROCS(0),
	}
	st.SetClock(e.now)
	return e
}

// Close releases pooled connections. Call on process shutdown.
func (e *Engine) Close() {
	e.pool.CloseAll()
}

// SyncAll drives a full sync pass over every account, sequentially. Errors
// from one account are logged and do not stop the others.
func (e *Engine) SyncAll(ctx context.Context, accounts []store.Account, force bool) {
	for _, account := range accounts {
		if ctx.Err() != nil {
			return
		}
		if err := e.syncAccount(ctx, account, force); err != nil {
			e.log.Error().Err(err).Str("account", account.ID).Msg("account sync failed")
		}
	}
}

func (e *Engine) syncAccount(ctx context.Context, account store.Account, force bool) error {
	log := e.log.With().Str("account", account.ID).Logger()

	if n, err := e.store.DedupeFallbackMessagesByRawHash(account.ID, dedupeHousekeepingLimit); err != nil {
		log.Warn().Err(err).Msg("fallback-id dedupe housekeeping failed, continuing")
	} else if n > 0 {
		log.Debug().Int("count", n).Msg("deduped fallback-id messages")
	}

	bundle, err := e.tokens.Get(ctx, account.ID)
	if err != nil {
		return otterr.Wrap(otterr.KindAuthExpired, account.ID, "", fmt.Errorf("get token: %w", err))
	}

	safeMode := account.SafeMode

	var wg sync.WaitGroup
	for _, folder := range account.Folders {
		wg.Add(1)
		go func(folder string) {
			defer wg.Done()
			if err := e.syncFolder(ctx, account, folder, force, bundle.AccessToken, safeMode); err != nil {
				log.Error().Err(err).Str("folder", folder).Msg("folder sync failed")
			}
		}(folder)
	}
	wg.Wait()
	return nil
}

func (e *Engine) dial(ctx context.Context, account store.Account, accessToken string) (ottimap.FolderSession, error) {
	if e.dialFunc != nil {
		return e.dialFunc(ctx, account, accessToken)
	}
	return ottimap.Dial(ctx, ottimap.SessionConfig{
		Host:  e.host,
		Email: account.Email,
		Token: accessToken,
	})
}

func (e *Engine) now() int64 {
	if e.clock != nil {
		return e.clock.Now()
	}
	return time.Now().Unix()
}
