package store

// Migration represents a single, idempotent database schema change.
type Migration struct {
	Version int
	SQL     string
}

// migrations is the ordered list of all database migrations.
var migrations = []Migration{
	{
		Version: 1,
		SQL: `
			-- Accounts table
			CREATE TABLE accounts (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				provider TEXT NOT NULL DEFAULT 'gmail_imap',

				folders TEXT NOT NULL,              -- JSON array, ordered
				cutoff_since TEXT NOT NULL,          -- YYYY-MM-DD
				poll_interval_minutes INTEGER NOT NULL DEFAULT 5,
				prefetch_recent INTEGER NOT NULL DEFAULT 100,
				safe_mode INTEGER NOT NULL DEFAULT 0,

				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			);

			-- Per-folder sync baselines
			CREATE TABLE folders (
				account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				name TEXT NOT NULL,

				uid_validity INTEGER,
				highest_uid INTEGER,
				highest_mod_seq INTEGER,
				exists_count INTEGER,
				last_sync_ts INTEGER,
				last_uid_scan_ts INTEGER,

				PRIMARY KEY (account_id, name)
			);

			-- Messages (envelope/header data)
			CREATE TABLE messages (
				id TEXT PRIMARY KEY,
				account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				folder TEXT NOT NULL,
				uid INTEGER NOT NULL,

				thread_id TEXT,
				internal_date INTEGER,

				subject TEXT,
				from_name TEXT,
				from_email TEXT,
				to_list TEXT,
				cc_list TEXT,
				bcc_list TEXT,
				reply_to TEXT,

				flags TEXT NOT NULL DEFAULT '[]',    -- JSON array, normalized to wire form
				labels TEXT NOT NULL DEFAULT '[]',   -- JSON array

				has_attachments INTEGER NOT NULL DEFAULT 0,
				size_bytes INTEGER NOT NULL DEFAULT 0,
				raw_hash TEXT NOT NULL DEFAULT '',

				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,

				UNIQUE(account_id, folder, uid)
			);

			CREATE INDEX idx_messages_account_folder ON messages(account_id, folder);
			CREATE INDEX idx_messages_account_hash ON messages(account_id, raw_hash);
			CREATE INDEX idx_messages_thread ON messages(thread_id);

			-- Bodies (owned by their message; deleted when the message is deleted)
			CREATE TABLE bodies (
				message_id TEXT PRIMARY KEY REFERENCES messages(id) ON DELETE CASCADE ON UPDATE CASCADE,
				raw_body BLOB,
				sanitized_text TEXT,
				mime_summary TEXT,
				attachments_json TEXT NOT NULL DEFAULT '[]',
				sanitized_at INTEGER
			);

			-- Append-only queue of local mutations awaiting reconciliation
			CREATE TABLE pending_ops (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				kind TEXT NOT NULL,
				target TEXT NOT NULL,
				payload TEXT,
				created_at INTEGER NOT NULL
			);

			CREATE INDEX idx_pending_ops_account ON pending_ops(account_id);
		`,
	},
}
