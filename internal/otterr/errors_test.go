package otterr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapNilIsNil(t *testing.T) {
	if err := Wrap(KindNetwork, "acct1", "INBOX", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestWrapCarriesContext(t *testing.T) {
	err := Wrap(KindDatabase, "acct1", "INBOX", errors.New("boom"))
	want := "acct1/INBOX: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapAccountOnlyNoFolder(t *testing.T) {
	err := Wrap(KindConfig, "acct1", "", errors.New("bad config"))
	want := "acct1: bad config"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	inner := Wrap(KindNetwork, "acct1", "INBOX", errors.New("timeout"))
	outer := fmt.Errorf("syncFolder: %w", inner)
	if !Is(outer, KindNetwork) {
		t.Error("Is() did not find KindNetwork through fmt.Errorf wrapping")
	}
	if Is(outer, KindDatabase) {
		t.Error("Is() incorrectly matched KindDatabase")
	}
}

func TestUnwrapReturnsOriginal(t *testing.T) {
	original := errors.New("root cause")
	err := Wrap(KindUnexpected, "", "", original)
	if !errors.Is(err, original) {
		t.Error("errors.Is did not find the original error through Unwrap")
	}
}
