package store

import (
	"database/sql"
	"fmt"
)

// ListFolders returns every persisted folder baseline for an account.
func (s *Store) ListFolders(accountID string) ([]FolderState, error) {
	rows, err := s.db.Query(`
		SELECT account_id, name, uid_validity, highest_uid, highest_mod_seq, exists_count, last_sync_ts, last_uid_scan_ts
		FROM folders WHERE account_id = ?
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var out []FolderState
	for rows.Next() {
		fs, err := scanFolderState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

// GetFolderState loads a single folder's baseline, if one has been recorded.
func (s *Store) GetFolderState(accountID, name string) (*FolderState, bool, error) {
	row := s.db.QueryRow(`
		SELECT account_id, name, uid_validity, highest_uid, highest_mod_seq, exists_count, last_sync_ts, last_uid_scan_ts
		FROM folders WHERE account_id = ? AND name = ?
	`, accountID, name)
	fs, err := scanFolderState(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get folder state: %w", err)
	}
	return &fs, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolderState(row rowScanner) (FolderState, error) {
	var fs FolderState
	var uidValidity, highestUID, existsCount sql.NullInt64
	var highestModSeq sql.NullInt64
	var lastSyncTS, lastUIDScanTS sql.NullInt64

	if err := row.Scan(&fs.AccountID, &fs.Name, &uidValidity, &highestUID, &highestModSeq, &existsCount, &lastSyncTS, &lastUIDScanTS); err != nil {
		return FolderState{}, err
	}
	if uidValidity.Valid {
		v := uint32(uidValidity.Int64)
		fs.UIDValidity = &v
	}
	if highestUID.Valid {
		v := uint32(highestUID.Int64)
		fs.HighestUID = &v
	}
	if highestModSeq.Valid {
		v := uint64(highestModSeq.Int64)
		fs.HighestModSeq = &v
	}
	if existsCount.Valid {
		v := uint32(existsCount.Int64)
		fs.ExistsCount = &v
	}
	if lastSyncTS.Valid {
		v := lastSyncTS.Int64
		fs.LastSyncTS = &v
	}
	if lastUIDScanTS.Valid {
		v := lastUIDScanTS.Int64
		fs.LastUIDScanTS = &v
	}
	return fs, nil
}

// UpsertFolderState atomically reads the current baseline (if any), merges
// in the non-nil fields of update, writes the merged row, and returns it.
func (s *Store) UpsertFolderState(accountID, name string, update FolderStateUpdate) (FolderState, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return FolderState{}, fmt.Errorf("begin upsert folder state: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT account_id, name, uid_validity, highest_uid, highest_mod_seq, exists_count, last_sync_ts, last_uid_scan_ts
		FROM folders WHERE account_id = ? AND name = ?
	`, accountID, name)
	current, err := scanFolderState(row)
	if err != nil && err != sql.ErrNoRows {
		return FolderState{}, fmt.Errorf("read folder state: %w", err)
	}
	if err == sql.ErrNoRows {
		current = FolderState{AccountID: accountID, Name: name}
	}

	merged := mergeFolderState(current, update)

	_, err = tx.Exec(`
		INSERT INTO folders (account_id, name, uid_validity, highest_uid, highest_mod_seq, exists_count, last_sync_ts, last_uid_scan_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, name) DO UPDATE SET
			uid_validity = excluded.uid_validity,
			highest_uid = excluded.highest_uid,
			highest_mod_seq = excluded.highest_mod_seq,
			exists_count = excluded.exists_count,
			last_sync_ts = excluded.last_sync_ts,
			last_uid_scan_ts = excluded.last_uid_scan_ts
	`,
		accountID, name,
		nullableU32(merged.UIDValidity), nullableU32(merged.HighestUID), nullableU64(merged.HighestModSeq),
		nullableU32(merged.ExistsCount), nullableI64(merged.LastSyncTS), nullableI64(merged.LastUIDScanTS),
	)
	if err != nil {
		return FolderState{}, fmt.Errorf("write folder state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return FolderState{}, fmt.Errorf("commit folder state: %w", err)
	}
	return merged, nil
}

func mergeFolderState(base FolderState, update FolderStateUpdate) FolderState {
	out := base
	if update.UIDValidity != nil {
		out.UIDValidity = update.UIDValidity
	}
	if update.HighestUID != nil {
		out.HighestUID = update.HighestUID
	}
	if update.HighestModSeq != nil {
		out.HighestModSeq = update.HighestModSeq
	}
	if update.ExistsCount != nil {
		out.ExistsCount = update.ExistsCount
	}
	if update.LastSyncTS != nil {
		out.LastSyncTS = update.LastSyncTS
	}
	if update.LastUIDScanTS != nil {
		out.LastUIDScanTS = update.LastUIDScanTS
	}
	return out
}

func nullableU32(v *uint32) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableU64(v *uint64) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableI64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
