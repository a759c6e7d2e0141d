package store

import (
	"database/sql"
	"fmt"
)

// EnqueuePendingOp records a local mutation awaiting eventual
// reconciliation with the server and returns its assigned id.
func (s *Store) EnqueuePendingOp(accountID, kind, target string, payload *string, createdAt int64) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO pending_ops (account_id, kind, target, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, accountID, kind, target, payload, createdAt)
	if err != nil {
		return 0, fmt.Errorf("enqueue pending op: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue pending op id: %w", err)
	}
	return id, nil
}

// ListPendingOps returns every queued operation for an account, oldest
// first.
func (s *Store) ListPendingOps(accountID string) ([]PendingOp, error) {
	rows, err := s.db.Query(`
		SELECT id, account_id, kind, target, payload, created_at
		FROM pending_ops WHERE account_id = ? ORDER BY created_at ASC, id ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list pending ops: %w", err)
	}
	defer rows.Close()

	var out []PendingOp
	for rows.Next() {
		var op PendingOp
		var payload sql.NullString
		if err := rows.Scan(&op.ID, &op.AccountID, &op.Kind, &op.Target, &payload, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending op: %w", err)
		}
		if payload.Valid {
			op.Payload = &payload.String
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// ClearPendingOp deletes a single queued operation once it has been
// reconciled.
func (s *Store) ClearPendingOp(accountID string, id int64) error {
	_, err := s.db.Exec(`DELETE FROM pending_ops WHERE account_id = ? AND id = ?`, accountID, id)
	if err != nil {
		return fmt.Errorf("clear pending op %d: %w", id, err)
	}
	return nil
}
