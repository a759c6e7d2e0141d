package mime

import (
	"fmt"
	"hash/fnv"
)

// RawHash is the hex rendering of a 64-bit FNV-1a hash of the raw RFC822
// bytes. It is deterministic and non-cryptographic; it exists only to
// support local fallback-id deduplication (Invariant M1), never for
// anything external.
func RawHash(raw []byte) string {
	h := fnv.New64a()
	h.Write(raw)
	return fmt.Sprintf("%016x", h.Sum64())
}
