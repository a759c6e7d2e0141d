package sync

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hkdb/aerion/internal/otterr"
)

// BuildUIDSequence renders a set of UIDs as a comma-separated IMAP sequence
// string ("3,7,17"), compressing consecutive runs into "a:b" ranges
// ([1 2 17] renders as "1:2,17"); duplicate UIDs are emitted once.
// Callers must never pass an empty slice: doing so is a precondition
// violation, not a case this function silently coerces into a placeholder.
func BuildUIDSequence(uids []uint32) string {
	if len(uids) == 0 {
		panic(otterr.ErrEmptyUIDSequence)
	}

	sorted := make([]uint32, len(uids))
	copy(sorted, uids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var parts []string
	i := 0
	for i < len(sorted) {
		start := sorted[i]
		end := start
		j := i + 1
		for j < len(sorted) && (sorted[j] == end || sorted[j] == end+1) {
			end = sorted[j]
			j++
		}
		if start == end {
			parts = append(parts, strconv.FormatUint(uint64(start), 10))
		} else {
			parts = append(parts, strconv.FormatUint(uint64(start), 10)+":"+strconv.FormatUint(uint64(end), 10))
		}
		i = j
	}
	return strings.Join(parts, ",")
}

// batches splits uids into chunks of at most size, preserving order.
func batches(uids []uint32, size int) [][]uint32 {
	if len(uids) == 0 {
		return nil
	}
	var out [][]uint32
	for i := 0; i < len(uids); i += size {
		end := i + size
		if end > len(uids) {
			end = len(uids)
		}
		out = append(out, uids[i:end])
	}
	return out
}
