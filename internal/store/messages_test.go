package store

import "testing"

func seedMessage(t *testing.T, st *Store, id, folder string, uid uint32, rawHash string) {
	t.Helper()
	if err := st.SaveAccount(testAccount("acct1")); err != nil {
		t.Fatalf("seedMessage: SaveAccount: %v", err)
	}
	err := st.BatchUpsertMessagesWithBodies(
		[]MessageRecord{{
			ID: id, AccountID: "acct1", Folder: folder, UID: uid,
			Subject: "test", RawHash: rawHash, CreatedAt: 1700000000, UpdatedAt: 1700000000,
		}},
		[]BodyRecord{{MessageID: id, SanitizedText: "body", SanitizedAt: 1700000000}},
	)
	if err != nil {
		t.Fatalf("seedMessage: %v", err)
	}
}

func TestBatchUpsertMessagesWithBodiesEmptyIsNoOp(t *testing.T) {
	st := newTestStore(t)
	if err := st.BatchUpsertMessagesWithBodies(nil, nil); err != nil {
		t.Errorf("BatchUpsertMessagesWithBodies(nil, nil) = %v, want nil (no-op)", err)
	}
}

func TestBatchUpsertMessagesWithBodiesMismatchedLengthsErrors(t *testing.T) {
	st := newTestStore(t)
	err := st.BatchUpsertMessagesWithBodies(
		[]MessageRecord{{ID: "1", AccountID: "acct1", Folder: "INBOX", UID: 1}},
		nil,
	)
	if err == nil {
		t.Error("expected error for mismatched messages/bodies length")
	}
}

func TestBatchUpsertMessagesWithBodiesThenLoadUIDMap(t *testing.T) {
	st := newTestStore(t)
	seedMessage(t, st, "111", "INBOX", 1, "hash1")
	seedMessage(t, st, "222", "INBOX", 2, "hash2")

	uidMap, err := st.LoadUIDToMessageIDMap("acct1", "INBOX")
	if err != nil {
		t.Fatalf("LoadUIDToMessageIDMap: %v", err)
	}
	if uidMap[1] != "111" || uidMap[2] != "222" {
		t.Errorf("uidMap = %v, want {1:111, 2:222}", uidMap)
	}
}

func TestBatchUpsertMessagesOnConflictUpdatesInPlace(t *testing.T) {
	st := newTestStore(t)
	seedMessage(t, st, "111", "INBOX", 1, "hash1")
	// Same (account, folder, uid) with a new id simulates a re-fetch that
	// resolved a fallback id to a stable one.
	err := st.BatchUpsertMessagesWithBodies(
		[]MessageRecord{{ID: "999", AccountID: "acct1", Folder: "INBOX", UID: 1, RawHash: "hash1", CreatedAt: 1, UpdatedAt: 2}},
		[]BodyRecord{{MessageID: "999", SanitizedText: "updated"}},
	)
	if err != nil {
		t.Fatalf("BatchUpsertMessagesWithBodies: %v", err)
	}

	uidMap, err := st.LoadUIDToMessageIDMap("acct1", "INBOX")
	if err != nil {
		t.Fatalf("LoadUIDToMessageIDMap: %v", err)
	}
	if uidMap[1] != "999" {
		t.Errorf("uidMap[1] = %q, want %q after conflict update", uidMap[1], "999")
	}
}

func TestBatchUpdateMessageFlagsByUID(t *testing.T) {
	st := newTestStore(t)
	seedMessage(t, st, "111", "INBOX", 1, "hash1")

	err := st.BatchUpdateMessageFlagsByUID("acct1", "INBOX", []FlagUpdate{
		{UID: 1, Flags: []string{"\\Seen"}, Labels: []string{"Important"}},
	})
	if err != nil {
		t.Fatalf("BatchUpdateMessageFlagsByUID: %v", err)
	}

	existing, err := st.LoadExistingMessageIDs("acct1", []string{"111"})
	if err != nil {
		t.Fatalf("LoadExistingMessageIDs: %v", err)
	}
	if !existing["111"] {
		t.Error("expected message 111 to still exist after flag update")
	}
}

func TestBatchUpdateMessageLocationByIDMovesRow(t *testing.T) {
	st := newTestStore(t)
	seedMessage(t, st, "111", "INBOX", 1, "hash1")

	err := st.BatchUpdateMessageLocationByID("acct1", []LocationUpdate{
		{ID: "111", Folder: "[Gmail]/Trash", UID: 5, Flags: []string{"\\Deleted"}},
	})
	if err != nil {
		t.Fatalf("BatchUpdateMessageLocationByID: %v", err)
	}

	inboxMap, err := st.LoadUIDToMessageIDMap("acct1", "INBOX")
	if err != nil {
		t.Fatalf("LoadUIDToMessageIDMap(INBOX): %v", err)
	}
	if _, ok := inboxMap[1]; ok {
		t.Error("message should no longer appear under its old folder/uid")
	}

	trashMap, err := st.LoadUIDToMessageIDMap("acct1", "[Gmail]/Trash")
	if err != nil {
		t.Fatalf("LoadUIDToMessageIDMap(Trash): %v", err)
	}
	if trashMap[5] != "111" {
		t.Errorf("trashMap[5] = %q, want %q", trashMap[5], "111")
	}
}

func TestDedupeFallbackMessagesByRawHash(t *testing.T) {
	st := newTestStore(t)
	// A fallback id and a stable id sharing the same raw_hash: the
	// fallback row is the one Invariant M1 says must be deleted.
	seedMessage(t, st, "acct1:INBOX:1", "INBOX", 1, "sharedhash")
	seedMessage(t, st, "555555", "INBOX", 2, "sharedhash")

	n, err := st.DedupeFallbackMessagesByRawHash("acct1", 100)
	if err != nil {
		t.Fatalf("DedupeFallbackMessagesByRawHash: %v", err)
	}
	if n != 1 {
		t.Fatalf("deduped %d rows, want 1", n)
	}

	existing, err := st.LoadExistingMessageIDs("acct1", []string{"acct1:INBOX:1", "555555"})
	if err != nil {
		t.Fatalf("LoadExistingMessageIDs: %v", err)
	}
	if existing["acct1:INBOX:1"] {
		t.Error("fallback id row should have been deleted")
	}
	if !existing["555555"] {
		t.Error("stable id row should still exist")
	}
}

func TestDedupeFallbackMessagesByRawHashNoMatchIsNoOp(t *testing.T) {
	st := newTestStore(t)
	seedMessage(t, st, "acct1:INBOX:1", "INBOX", 1, "uniquehash")

	n, err := st.DedupeFallbackMessagesByRawHash("acct1", 100)
	if err != nil {
		t.Fatalf("DedupeFallbackMessagesByRawHash: %v", err)
	}
	if n != 0 {
		t.Errorf("deduped %d rows, want 0 (no stable counterpart)", n)
	}
}
