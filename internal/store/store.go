package store

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/hkdb/aerion/internal/logging"
)

// Store provides the transactional persistence operations the sync engine
// depends on. All methods are safe to call concurrently; concurrency
// discipline beneath the Go level is left to database/sql's own pool.
type Store struct {
	db  *DB
	log zerolog.Logger
	now func() int64
}

// New wraps an open DB in a Store.
func New(db *DB) *Store {
	return &Store{db: db, log: logging.WithComponent("store"), now: func() int64 { return 0 }}
}

func marshalStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
