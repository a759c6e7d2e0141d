package store

import (
	"fmt"
	"strings"
)

// LoadUIDToMessageIDMap snapshots every message id (stable or fallback)
// currently recorded for a folder, keyed by uid. Used by the baseline (S1) scan.
func (s *Store) LoadUIDToMessageIDMap(accountID, folder string) (map[uint32]string, error) {
	rows, err := s.db.Query(`SELECT uid, id FROM messages WHERE account_id = ? AND folder = ?`, accountID, folder)
	if err != nil {
		return nil, fmt.Errorf("load uid map: %w", err)
	}
	defer rows.Close()

	out := make(map[uint32]string)
	for rows.Next() {
		var uid uint32
		var id string
		if err := rows.Scan(&uid, &id); err != nil {
			return nil, fmt.Errorf("scan uid map row: %w", err)
		}
		out[uid] = id
	}
	return out, rows.Err()
}

// LoadMessageIDsByUIDs snapshots the ids recorded for a specific set of
// uids in a folder. Used by the incremental (S2) diff.
func (s *Store) LoadMessageIDsByUIDs(accountID, folder string, uids []uint32) (map[uint32]string, error) {
	out := make(map[uint32]string)
	if len(uids) == 0 {
		return out, nil
	}

	placeholders, args := uint32Placeholders(uids)
	args = append([]any{accountID, folder}, args...)

	query := fmt.Sprintf(`SELECT uid, id FROM messages WHERE account_id = ? AND folder = ? AND uid IN (%s)`, placeholders)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load message ids by uids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid uint32
		var id string
		if err := rows.Scan(&uid, &id); err != nil {
			return nil, fmt.Errorf("scan message id row: %w", err)
		}
		out[uid] = id
	}
	return out, rows.Err()
}

// LoadExistingMessageIDs tests which of the given ids already have a row,
// regardless of folder. Used to classify new-vs-moved messages.
func (s *Store) LoadExistingMessageIDs(accountID string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(ids) == 0 {
		return out, nil
	}

	placeholders, args := stringPlaceholders(ids)
	args = append([]any{accountID}, args...)

	query := fmt.Sprintf(`SELECT id FROM messages WHERE account_id = ? AND id IN (%s)`, placeholders)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load existing message ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan existing id row: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// BatchUpsertMessagesWithBodies writes messages and their bodies in a
// single transaction. len(messages) must equal len(bodies); an empty input
// is a no-op (B1).
func (s *Store) BatchUpsertMessagesWithBodies(messages []MessageRecord, bodies []BodyRecord) error {
	if len(messages) == 0 && len(bodies) == 0 {
		return nil
	}
	if len(messages) != len(bodies) {
		return fmt.Errorf("batch upsert: %d messages but %d bodies", len(messages), len(bodies))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch upsert: %w", err)
	}
	defer tx.Rollback()

	msgStmt, err := tx.Prepare(`
		INSERT INTO messages (id, account_id, folder, uid, thread_id, internal_date, subject, from_name, from_email, to_list, cc_list, bcc_list, reply_to, flags, labels, has_attachments, size_bytes, raw_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, folder, uid) DO UPDATE SET
			id = excluded.id,
			thread_id = excluded.thread_id,
			internal_date = excluded.internal_date,
			subject = excluded.subject,
			from_name = excluded.from_name,
			from_email = excluded.from_email,
			to_list = excluded.to_list,
			cc_list = excluded.cc_list,
			bcc_list = excluded.bcc_list,
			reply_to = excluded.reply_to,
			flags = excluded.flags,
			labels = excluded.labels,
			has_attachments = excluded.has_attachments,
			size_bytes = excluded.size_bytes,
			raw_hash = excluded.raw_hash,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare message upsert: %w", err)
	}
	defer msgStmt.Close()

	bodyStmt, err := tx.Prepare(`
		INSERT INTO bodies (message_id, raw_body, sanitized_text, mime_summary, attachments_json, sanitized_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			raw_body = excluded.raw_body,
			sanitized_text = excluded.sanitized_text,
			mime_summary = excluded.mime_summary,
			attachments_json = excluded.attachments_json,
			sanitized_at = excluded.sanitized_at
	`)
	if err != nil {
		return fmt.Errorf("prepare body upsert: %w", err)
	}
	defer bodyStmt.Close()

	for i, m := range messages {
		if _, err := msgStmt.Exec(
			m.ID, m.AccountID, m.Folder, m.UID, m.ThreadID, m.InternalDate,
			m.Subject, m.FromName, m.FromEmail, m.ToList, m.CcList, m.BccList, m.ReplyTo,
			marshalStrings(m.Flags), marshalStrings(m.Labels),
			boolToInt(m.HasAttachments), m.SizeBytes, m.RawHash, m.CreatedAt, m.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert message %s: %w", m.ID, err)
		}

		b := bodies[i]
		if _, err := bodyStmt.Exec(b.MessageID, b.RawBody, b.SanitizedText, b.MIMESummary, b.AttachmentsJSON, b.SanitizedAt); err != nil {
			return fmt.Errorf("upsert body %s: %w", b.MessageID, err)
		}
	}

	return tx.Commit()
}

// BatchUpdateMessageFlagsByUID applies flag/label changes to already-known
// messages in one transaction.
func (s *Store) BatchUpdateMessageFlagsByUID(accountID, folder string, updates []FlagUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin flag update: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE messages SET flags = ?, labels = ?, updated_at = ? WHERE account_id = ? AND folder = ? AND uid = ?`)
	if err != nil {
		return fmt.Errorf("prepare flag update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(marshalStrings(u.Flags), marshalStrings(u.Labels), s.now(), accountID, folder, u.UID); err != nil {
			return fmt.Errorf("update flags for uid %d: %w", u.UID, err)
		}
	}
	return tx.Commit()
}

// BatchUpdateMessageLocationByID applies folder/uid relocations for
// messages whose stable id already exists elsewhere in the account (a move).
func (s *Store) BatchUpdateMessageLocationByID(accountID string, updates []LocationUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin location update: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		UPDATE messages SET folder = ?, uid = ?, flags = ?, labels = ?, thread_id = ?, internal_date = ?, size_bytes = ?, updated_at = ?
		WHERE account_id = ? AND id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare location update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(
			u.Folder, u.UID, marshalStrings(u.Flags), marshalStrings(u.Labels), u.ThreadID, u.InternalDate, u.SizeBytes,
			s.now(), accountID, u.ID,
		); err != nil {
			return fmt.Errorf("update location for id %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteMessagesByFolderAndUIDs cascades bodies-then-messages in one
// transaction (foreign_keys=ON makes the body delete automatic, but it is
// made explicit here to keep the ordering contract obvious).
func (s *Store) DeleteMessagesByFolderAndUIDs(accountID, folder string, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	placeholders, args := uint32Placeholders(uids)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	idQuery := fmt.Sprintf(`SELECT id FROM messages WHERE account_id = ? AND folder = ? AND uid IN (%s)`, placeholders)
	rows, err := tx.Query(idQuery, append([]any{accountID, folder}, args...)...)
	if err != nil {
		return fmt.Errorf("select ids to delete: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan id to delete: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return tx.Commit()
	}

	idPlaceholders, idArgs := stringPlaceholders(ids)
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM bodies WHERE message_id IN (%s)`, idPlaceholders), idArgs...); err != nil {
		return fmt.Errorf("delete bodies: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM messages WHERE id IN (%s)`, idPlaceholders), idArgs...); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	return tx.Commit()
}

// DedupeFallbackMessagesByRawHash enforces Invariant M1: for every
// (account_id, raw_hash) pair with both a stable (all-digit) id and a
// fallback (":"-containing) id, the fallback row is deleted. Bounded by
// limit for best-effort housekeeping.
func (s *Store) DedupeFallbackMessagesByRawHash(accountID string, limit int) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin dedupe: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT id, raw_hash FROM messages
		WHERE account_id = ? AND raw_hash != '' AND id NOT GLOB '*[^0-9]*'
	`, accountID)
	if err != nil {
		return 0, fmt.Errorf("query stable ids: %w", err)
	}
	stableHashes := make(map[string]bool)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			rows.Close()
			return 0, err
		}
		stableHashes[hash] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var fallbackIDs []string
	rows, err = tx.Query(`
		SELECT id, raw_hash FROM messages
		WHERE account_id = ? AND raw_hash != '' AND id LIKE '%:%'
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return 0, fmt.Errorf("query fallback ids: %w", err)
	}
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			rows.Close()
			return 0, err
		}
		if stableHashes[hash] {
			fallbackIDs = append(fallbackIDs, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(fallbackIDs) == 0 {
		return 0, tx.Commit()
	}

	placeholders, args := stringPlaceholders(fallbackIDs)
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM bodies WHERE message_id IN (%s)`, placeholders), args...); err != nil {
		return 0, fmt.Errorf("delete dangling bodies: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM messages WHERE id IN (%s)`, placeholders), args...); err != nil {
		return 0, fmt.Errorf("delete fallback messages: %w", err)
	}

	return len(fallbackIDs), tx.Commit()
}

func uint32Placeholders(uids []uint32) (string, []any) {
	ph := make([]string, len(uids))
	args := make([]any, len(uids))
	for i, u := range uids {
		ph[i] = "?"
		args[i] = u
	}
	return strings.Join(ph, ","), args
}

func stringPlaceholders(ids []string) (string, []any) {
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args[i] = id
	}
	return strings.Join(ph, ","), args
}

// SetClock lets the engine inject a Clock-backed time source for the two
// call sites (flags, location) that do not carry a full record with its own
// updated_at.
func (s *Store) SetClock(now func() int64) {
	s.now = now
}
