package store

import (
	"database/sql"
	"fmt"
)

// SaveAccount upserts an account by id.
func (s *Store) SaveAccount(a Account) error {
	_, err := s.db.Exec(`
		INSERT INTO accounts (id, email, provider, folders, cutoff_since, poll_interval_minutes, prefetch_recent, safe_mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			provider = excluded.provider,
			folders = excluded.folders,
			cutoff_since = excluded.cutoff_since,
			poll_interval_minutes = excluded.poll_interval_minutes,
			prefetch_recent = excluded.prefetch_recent,
			safe_mode = excluded.safe_mode,
			updated_at = excluded.updated_at
	`,
		a.ID, a.Email, a.Provider, marshalStrings(a.Folders), a.CutoffSince,
		a.PollIntervalMinutes, a.PrefetchRecent, boolToInt(a.SafeMode), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	return nil
}

// ListAccounts returns every configured account.
func (s *Store) ListAccounts() ([]Account, error) {
	rows, err := s.db.Query(`
		SELECT id, email, provider, folders, cutoff_since, poll_interval_minutes, prefetch_recent, safe_mode, created_at, updated_at
		FROM accounts
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		var foldersJSON string
		var safeMode int
		if err := rows.Scan(&a.ID, &a.Email, &a.Provider, &foldersJSON, &a.CutoffSince,
			&a.PollIntervalMinutes, &a.PrefetchRecent, &safeMode, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Folders = unmarshalStrings(foldersJSON)
		a.SafeMode = safeMode != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanNullString is a small helper for optional text columns.
func scanNullString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return ""
}
