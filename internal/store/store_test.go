package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "otto.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func testAccount(id string) Account {
	return Account{
		ID:                  id,
		Email:               id + "@example.com",
		Provider:            "gmail_imap",
		Folders:             []string{"INBOX"},
		CutoffSince:         "2025-12-01",
		PollIntervalMinutes: 5,
		PrefetchRecent:      100,
		CreatedAt:           1700000000,
		UpdatedAt:           1700000000,
	}
}

func TestSaveAndListAccounts(t *testing.T) {
	st := newTestStore(t)
	a := testAccount("acct1")
	if err := st.SaveAccount(a); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}

	got, err := st.ListAccounts()
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].ID != a.ID || got[0].Email != a.Email {
		t.Errorf("got %+v, want %+v", got[0], a)
	}
	if len(got[0].Folders) != 1 || got[0].Folders[0] != "INBOX" {
		t.Errorf("Folders = %v, want [INBOX]", got[0].Folders)
	}
}

func TestSaveAccountUpserts(t *testing.T) {
	st := newTestStore(t)
	a := testAccount("acct1")
	if err := st.SaveAccount(a); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}
	a.PollIntervalMinutes = 15
	if err := st.SaveAccount(a); err != nil {
		t.Fatalf("SaveAccount (update): %v", err)
	}

	got, err := st.ListAccounts()
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1 (upsert, not insert)", len(got))
	}
	if got[0].PollIntervalMinutes != 15 {
		t.Errorf("PollIntervalMinutes = %d, want 15", got[0].PollIntervalMinutes)
	}
}

func TestGetFolderStateMissingReturnsFalse(t *testing.T) {
	st := newTestStore(t)
	_, ok, err := st.GetFolderState("acct1", "INBOX")
	if err != nil {
		t.Fatalf("GetFolderState: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a folder with no recorded baseline")
	}
}

func TestUpsertFolderStateMergesPartialUpdates(t *testing.T) {
	st := newTestStore(t)
	if err := st.SaveAccount(testAccount("acct1")); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}

	uidValidity := uint32(100)
	modSeq := uint64(5000)
	if _, err := st.UpsertFolderState("acct1", "INBOX", FolderStateUpdate{
		UIDValidity:   &uidValidity,
		HighestModSeq: &modSeq,
	}); err != nil {
		t.Fatalf("UpsertFolderState: %v", err)
	}

	newModSeq := uint64(5050)
	merged, err := st.UpsertFolderState("acct1", "INBOX", FolderStateUpdate{HighestModSeq: &newModSeq})
	if err != nil {
		t.Fatalf("UpsertFolderState (partial): %v", err)
	}

	if merged.UIDValidity == nil || *merged.UIDValidity != 100 {
		t.Errorf("UIDValidity = %v, want preserved value 100", merged.UIDValidity)
	}
	if merged.HighestModSeq == nil || *merged.HighestModSeq != 5050 {
		t.Errorf("HighestModSeq = %v, want updated value 5050", merged.HighestModSeq)
	}
}

func TestPendingOpsEnqueueListClear(t *testing.T) {
	st := newTestStore(t)
	if err := st.SaveAccount(testAccount("acct1")); err != nil {
		t.Fatalf("SaveAccount: %v", err)
	}

	id, err := st.EnqueuePendingOp("acct1", "move", "msg123", nil, 1700000000)
	if err != nil {
		t.Fatalf("EnqueuePendingOp: %v", err)
	}

	ops, err := st.ListPendingOps("acct1")
	if err != nil {
		t.Fatalf("ListPendingOps: %v", err)
	}
	if len(ops) != 1 || ops[0].ID != id {
		t.Fatalf("ops = %+v, want one op with id %d", ops, id)
	}

	if err := st.ClearPendingOp("acct1", id); err != nil {
		t.Fatalf("ClearPendingOp: %v", err)
	}
	ops, err = st.ListPendingOps("acct1")
	if err != nil {
		t.Fatalf("ListPendingOps after clear: %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("ops = %+v, want empty after clear", ops)
	}
}
