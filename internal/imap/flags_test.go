package imap

import (
	"strings"
	"testing"

	"github.com/emersion/go-imap/v2"
)

func TestNormalizeFlagsSorts(t *testing.T) {
	got := normalizeFlags([]imap.Flag{imap.Flag("\\Seen"), imap.Flag("\\Answered")})
	if len(got) != 2 || got[0] != "\\Answered" || got[1] != "\\Seen" {
		t.Errorf("normalizeFlags = %v, want sorted [\\Answered \\Seen]", got)
	}
}

func TestFlagsEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want bool
	}{
		{"equal", []string{"\\Seen", "\\Flagged"}, []string{"\\Seen", "\\Flagged"}, true},
		{"different length", []string{"\\Seen"}, []string{"\\Seen", "\\Flagged"}, false},
		{"different content", []string{"\\Seen"}, []string{"\\Flagged"}, false},
		{"both empty", nil, []string{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FlagsEqual(tc.a, tc.b); got != tc.want {
				t.Errorf("FlagsEqual(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestReadAllLimitedTruncates(t *testing.T) {
	big := strings.Repeat("a", int(maxBodyBytes)+100)
	out, err := readAllLimited(strings.NewReader(big))
	if err != nil {
		t.Fatalf("readAllLimited: %v", err)
	}
	if len(out) != int(maxBodyBytes)+1 {
		t.Errorf("len(out) = %d, want %d", len(out), maxBodyBytes+1)
	}
}
