// Package otterr defines the sync engine's error taxonomy.
package otterr

import "errors"

// Kind classifies an error for propagation-policy decisions: which failures
// are per-account, which are per-folder, and which should surface to the
// caller unconditionally.
type Kind string

const (
	// KindNetwork covers transient I/O or IMAP protocol failures.
	KindNetwork Kind = "network"
	// KindDatabase covers local store failures.
	KindDatabase Kind = "database"
	// KindAuthExpired covers token/refresh failures that require re-onboarding.
	KindAuthExpired Kind = "auth_expired"
	// KindConfig covers bad or missing required configuration.
	KindConfig Kind = "config"
	// KindUnexpected covers invariant violations that should not occur.
	KindUnexpected Kind = "unexpected"
)

// Error wraps an underlying error with a Kind and the account/folder context
// it occurred in, so callers can log structured fields without re-deriving
// them from the error string.
type Error struct {
	Kind    Kind
	Account string
	Folder  string
	Err     error
}

func (e *Error) Error() string {
	if e.Folder != "" {
		return e.Account + "/" + e.Folder + ": " + e.Err.Error()
	}
	if e.Account != "" {
		return e.Account + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap annotates err with a Kind and optional account/folder context.
func Wrap(kind Kind, account, folder string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Account: account, Folder: folder, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

var (
	// ErrAuthExpired is returned by collaborators when a refresh token is
	// no longer valid and interactive re-onboarding is required.
	ErrAuthExpired = errors.New("refresh token expired or revoked")
	// ErrEmptyUIDSequence is the precondition failure for BuildUIDSequence,
	// resolving open question #3 by asserting rather than coercing.
	ErrEmptyUIDSequence = errors.New("uid sequence must not be built from an empty list")
)
