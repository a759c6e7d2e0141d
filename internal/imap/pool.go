package imap

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// poolTTL is how long an idle pooled connection is considered fresh enough
// to hand back out. A connection older than this is closed and redialed
// rather than risk handing the engine a session the server has since
// dropped.
const poolTTL = 300 * time.Second

// Dialer opens and authenticates a new session for an account. The pool
// never dials itself; it only manages lifetime and reuse.
type Dialer func(ctx context.Context) (FolderSession, error)

type poolKey struct {
	accountID string
	folder    string
}

type pooledConn struct {
	session FolderSession
	created time.Time
}

// Pool caches one authenticated, folder-selected Session per
// (account_id, folder) pair, discarding and redialing connections older
// than poolTTL. It intentionally has no per-account connection limit or
// waiter queue: each (account, folder) pair is synced by exactly one
// goroutine at a time, so there is never
// contention for the same key.
type Pool struct {
	mu    sync.Mutex
	conns map[poolKey]*pooledConn
}

// NewPool creates an empty connection pool.
func NewPool() *Pool {
	return &Pool{conns: make(map[poolKey]*pooledConn)}
}

// GetOrCreate returns a cached, still-fresh Session for (accountID, folder),
// or dials a new one via dial. The caller is responsible for (re-)selecting
// the folder on every call, pooled or not, since IMAP status fields like
// HIGHESTMODSEQ only refresh on SELECT. The lock is released before any
// network I/O runs, so a slow dial for one key never blocks lookups for
// others.
func (p *Pool) GetOrCreate(ctx context.Context, accountID, folder string, dial Dialer) (FolderSession, error) {
	key := poolKey{accountID: accountID, folder: folder}

	p.mu.Lock()
	existing, stale := p.conns[key], false
	if existing != nil {
		delete(p.conns, key) // checked out; Return puts it back
		stale = time.Since(existing.created) >= poolTTL
	}
	p.mu.Unlock()

	if existing != nil && !stale {
		return existing.session, nil
	}
	if existing != nil {
		existing.session.Close()
	}

	session, err := dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s/%s: %w", accountID, folder, err)
	}
	return session, nil
}

// Return checks a Session back into the pool for future reuse. Call
// Discard instead if the session errored and should not be reused.
func (p *Pool) Return(accountID, folder string, session FolderSession) {
	key := poolKey{accountID: accountID, folder: folder}
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.conns[key]; ok {
		old.session.Close()
	}
	p.conns[key] = &pooledConn{session: session, created: time.Now()}
}

// Discard closes a Session without returning it to the pool, used when the
// caller observed a network error that makes the connection unsafe to reuse.
func (p *Pool) Discard(session FolderSession) {
	session.Close()
}

// CloseAll closes every pooled connection. Called on shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, c := range p.conns {
		c.session.Close()
		delete(p.conns, key)
	}
}
