package imap

import (
	"time"

	"github.com/emersion/go-imap/v2"
)

// SinceCriteria builds the "UID SEARCH SINCE <cutoff>" criteria used by the
// baseline scan (S1).
func SinceCriteria(cutoff time.Time) *imap.SearchCriteria {
	return &imap.SearchCriteria{Since: cutoff}
}

// SinceModSeqCriteria builds the "UID SEARCH SINCE <cutoff> MODSEQ <n>"
// criteria used by the incremental scan (S2): only messages at or after
// modSeq have changed since the stored baseline.
func SinceModSeqCriteria(cutoff time.Time, modSeq uint64) *imap.SearchCriteria {
	return &imap.SearchCriteria{
		Since:  cutoff,
		ModSeq: &imap.SearchCriteriaModSeq{ModSeq: modSeq},
	}
}
