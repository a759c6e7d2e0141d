package imap

import (
	"io"
	"sort"
	"strings"

	"github.com/emersion/go-imap/v2"
)

// normalizeFlags renders server-reported flags to their canonical backslash
// wire form and sorts them, so two flag sets can be compared with
// slices.Equal regardless of server-reported order (flags are
// normalized on ingest).
func normalizeFlags(flags []imap.Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	sort.Strings(out)
	return out
}

// FlagsEqual reports whether two flag sets hold the same flags, ignoring
// order and duplicates, and treating a flag with and without its leading
// backslash ("Seen" and "\Seen") as the same flag.
func FlagsEqual(a, b []string) bool {
	seen := make(map[string]int)
	for _, f := range a {
		seen[`\`+strings.TrimPrefix(f, `\`)] |= 1
	}
	for _, f := range b {
		seen[`\`+strings.TrimPrefix(f, `\`)] |= 2
	}
	for _, v := range seen {
		if v != 3 {
			return false
		}
	}
	return true
}

// maxBodyBytes bounds a single fetched body literal; a message past this
// size is almost certainly not legitimate mail and would otherwise let one
// hostile message exhaust memory for the whole batch.
const maxBodyBytes = 64 << 20 // 64 MiB

func readAllLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
}
