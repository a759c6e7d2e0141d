// Package imap provides the minimal authenticated-session surface the sync
// engine needs: TLS connect, bearer-token SASL auth, CONDSTORE-aware
// SELECT, UID SEARCH, and UID FETCH with Gmail extension attributes.
package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/hkdb/aerion/internal/logging"
	"github.com/hkdb/aerion/internal/otterr"
	"github.com/rs/zerolog"
)

// defaultPort is the IMAPS port the provider is reached on.
const defaultPort = 993

const (
	connectTimeout = 30 * time.Second
	readTimeout    = 3 * time.Minute
	writeTimeout   = 30 * time.Second
)

// SessionConfig identifies the server and account a Session authenticates
// against.
type SessionConfig struct {
	Host  string
	Port  int
	Email string
	Token string
}

// Mailbox is the shape returned by Select/SelectCondstore: the four server
// values the sync engine's state machine compares against its baseline.
type Mailbox struct {
	UIDValidity   uint32
	UIDNext       uint32
	Exists        uint32
	HighestModSeq uint64 // 0 means CONDSTORE was not available/requested
}

// FolderSession is the subset of an authenticated session's surface that
// the sync engine's per-folder state machine drives: CONDSTORE-aware
// SELECT, UID SEARCH, UID FETCH, and Close for pool teardown. *Session
// satisfies it; tests substitute a fake in its place so syncFolder and its
// S1/S2 scan modes can be exercised without a live network connection.
type FolderSession interface {
	SelectCondstore(ctx context.Context, folder string) (Mailbox, error)
	Select(ctx context.Context, folder string) (Mailbox, error)
	UIDSearch(ctx context.Context, criteria *imap.SearchCriteria) ([]uint32, error)
	UIDFetch(ctx context.Context, seq string, opts FetchOptions) ([]Fetch, error)
	Close()
}

// Session wraps an authenticated IMAP connection.
type Session struct {
	client *imapclient.Client
	log    zerolog.Logger
}

var _ FolderSession = (*Session)(nil)

// deadlineConn applies read/write deadlines on every I/O call so a dead
// peer cannot block the connection indefinitely.
type deadlineConn struct {
	net.Conn
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// Dial opens a TLS connection to the provider and authenticates via the
// bearer-token SASL mechanism.
func Dial(ctx context.Context, cfg SessionConfig) (*Session, error) {
	log := logging.WithComponent("imap")

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, port)

	dialer := &net.Dialer{Timeout: connectTimeout}
	rawConn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return nil, otterr.Wrap(otterr.KindNetwork, "", "", fmt.Errorf("dial %s: %w", addr, err))
	}

	client := imapclient.New(&deadlineConn{Conn: rawConn}, &imapclient.Options{})
	if err := client.WaitGreeting(); err != nil {
		client.Close()
		return nil, otterr.Wrap(otterr.KindNetwork, "", "", fmt.Errorf("greeting: %w", err))
	}

	s := &Session{client: client, log: log}
	if err := s.authenticate(cfg.Email, cfg.Token); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) authenticate(email, token string) error {
	if err := s.client.Authenticate(newBearerClient(email, token)); err != nil {
		return otterr.Wrap(otterr.KindAuthExpired, "", "", fmt.Errorf("bearer auth: %w", err))
	}
	return nil
}

// Close logs out and closes the underlying connection.
func (s *Session) Close() {
	if s.client == nil {
		return
	}
	if err := s.client.Logout().Wait(); err != nil {
		s.log.Debug().Err(err).Msg("logout failed, closing anyway")
	}
	s.client.Close()
}

// SelectCondstore selects a folder requesting CONDSTORE, returning
// HighestModSeq alongside the other mailbox values.
func (s *Session) SelectCondstore(ctx context.Context, folder string) (Mailbox, error) {
	return s.selectMailbox(ctx, folder, true)
}

// Select selects a folder without CONDSTORE; HighestModSeq is always 0.
// Used as the fallback when the server rejects SelectCondstore.
func (s *Session) Select(ctx context.Context, folder string) (Mailbox, error) {
	return s.selectMailbox(ctx, folder, false)
}

// selectMailbox issues a plain SELECT (go-imap reports HIGHESTMODSEQ
// whenever the server advertises CONDSTORE, without a separate opt-in
// option on this client). When condstore is false the caller is the
// plain-Select fallback path, so HighestModSeq is reported as absent even
// if the server happened to include it, matching the engine's S0 state
// machine which only trusts HighestModSeq from the CONDSTORE attempt.
func (s *Session) selectMailbox(ctx context.Context, folder string, condstore bool) (Mailbox, error) {
	type result struct {
		data *imap.SelectData
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := s.client.Select(folder, nil).Wait()
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return Mailbox{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return Mailbox{}, otterr.Wrap(otterr.KindNetwork, "", folder, fmt.Errorf("select: %w", r.err))
		}
		mb := Mailbox{
			UIDValidity: r.data.UIDValidity,
			UIDNext:     uint32(r.data.UIDNext),
			Exists:      r.data.NumMessages,
		}
		if condstore {
			mb.HighestModSeq = r.data.HighestModSeq
		}
		return mb, nil
	}
}

// UIDSearch runs a UID SEARCH with the given criteria, returning the
// matching UIDs in ascending order.
func (s *Session) UIDSearch(ctx context.Context, criteria *imap.SearchCriteria) ([]uint32, error) {
	type result struct {
		data *imap.SearchData
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := s.client.UIDSearch(criteria, nil).Wait()
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, otterr.Wrap(otterr.KindNetwork, "", "", fmt.Errorf("uid search: %w", r.err))
		}
		nums := r.data.AllUIDs()
		out := make([]uint32, len(nums))
		for i, n := range nums {
			out[i] = uint32(n)
		}
		return out, nil
	}
}

// Fetch is one UID FETCH response: the raw body (when requested), envelope
// data, flags, and the Gmail extension attributes.
type Fetch struct {
	UID          uint32
	Flags        []string
	Size         int64
	InternalDate time.Time
	Body         []byte
	Envelope     *imap.Envelope
	GMMsgID      uint64
	GMThrID      uint64
	GMLabels     []string
}

// FetchOptions describes what UIDFetch asks the server for; the sync
// engine selects one of three shapes per batch: Body (Fetch-New's full
// RFC822 fetch), metadata-only (Fetch-New-Or-Move's classification fetch,
// the zero value), or FlagsOnly (Fetch-Flags' minimal refresh). FlagsOnly
// also requests X-GM-LABELS alongside FLAGS: labels are mutable state that
// bumps HIGHESTMODSEQ the same way flag changes do, and a bare FLAGS-only
// fetch would otherwise wipe the stored labels on every flag sync.
type FetchOptions struct {
	Body      bool
	FlagsOnly bool
}

// UIDFetch issues UID FETCH over the given comma-separated UID sequence
// (as produced by BuildUIDSequence) and returns every response collected
// into memory; batches are already bounded by the caller, so buffering the
// whole response is safe.
func (s *Session) UIDFetch(ctx context.Context, seq string, opts FetchOptions) ([]Fetch, error) {
	uidSet, err := parseUIDSequence(seq)
	if err != nil {
		return nil, otterr.Wrap(otterr.KindUnexpected, "", "", fmt.Errorf("parse uid sequence %q: %w", seq, err))
	}

	var fetchOpts *imap.FetchOptions
	if opts.FlagsOnly {
		fetchOpts = &imap.FetchOptions{UID: true, Flags: true, GMailLabels: true}
	} else {
		fetchOpts = &imap.FetchOptions{
			UID:           true,
			Flags:         true,
			InternalDate:  true,
			RFC822Size:    true,
			Envelope:      true,
			GMailMsgID:    true,
			GMailThreadID: true,
			GMailLabels:   true,
		}
		if opts.Body {
			fetchOpts.BodySection = []*imap.FetchItemBodySection{{Peek: true}}
		}
	}

	cmd := s.client.Fetch(uidSet, fetchOpts)

	var out []Fetch
	for {
		msg := cmd.Next()
		if msg == nil {
			break
		}
		f, err := collectFetch(msg)
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping unreadable fetch response")
			continue
		}
		out = append(out, f)
	}
	if err := cmd.Close(); err != nil {
		return out, otterr.Wrap(otterr.KindNetwork, "", "", fmt.Errorf("uid fetch: %w", err))
	}
	return out, nil
}

func collectFetch(msg *imapclient.FetchMessageData) (Fetch, error) {
	var f Fetch
	for {
		item := msg.Next()
		if item == nil {
			break
		}
		switch d := item.(type) {
		case imapclient.FetchItemDataUID:
			f.UID = uint32(d.UID)
		case imapclient.FetchItemDataFlags:
			f.Flags = normalizeFlags(d.Flags)
		case imapclient.FetchItemDataInternalDate:
			f.InternalDate = d.Time
		case imapclient.FetchItemDataRFC822Size:
			f.Size = d.Size
		case imapclient.FetchItemDataEnvelope:
			f.Envelope = d.Envelope
		case imapclient.FetchItemDataGMailMsgID:
			f.GMMsgID = uint64(d.MsgID)
		case imapclient.FetchItemDataGMailThreadID:
			f.GMThrID = uint64(d.ThreadID)
		case imapclient.FetchItemDataGMailLabels:
			f.GMLabels = d.Labels
		case imapclient.FetchItemDataBodySection:
			if d.Literal != nil {
				body, err := readAllLimited(d.Literal)
				if err != nil {
					return f, err
				}
				f.Body = body
			}
		}
	}
	return f, nil
}

// parseUIDSequence turns a BuildUIDSequence string ("1,2,17" or with
// "a:b" ranges) into an imap.UIDSet.
func parseUIDSequence(seq string) (imap.UIDSet, error) {
	var set imap.UIDSet
	for _, part := range strings.Split(seq, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, ":"); ok {
			loN, err := strconv.ParseUint(lo, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad range start %q: %w", part, err)
			}
			hiN, err := strconv.ParseUint(hi, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad range end %q: %w", part, err)
			}
			set.AddRange(imap.UID(loN), imap.UID(hiN))
			continue
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad uid %q: %w", part, err)
		}
		set.AddNum(imap.UID(n))
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("empty uid sequence")
	}
	return set, nil
}
