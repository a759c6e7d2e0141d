package imap

import (
	"context"
	"errors"
	"testing"
)

func TestPoolGetOrCreateDialsOnMiss(t *testing.T) {
	p := NewPool()
	calls := 0
	dial := func(ctx context.Context) (FolderSession, error) {
		calls++
		return &Session{}, nil
	}

	s, err := p.GetOrCreate(context.Background(), "acct1", "INBOX", dial)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if s == nil {
		t.Fatal("expected non-nil session")
	}
	if calls != 1 {
		t.Errorf("dial called %d times, want 1", calls)
	}
}

func TestPoolReuseAfterReturn(t *testing.T) {
	p := NewPool()
	calls := 0
	dial := func(ctx context.Context) (FolderSession, error) {
		calls++
		return &Session{}, nil
	}

	s1, err := p.GetOrCreate(context.Background(), "acct1", "INBOX", dial)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	p.Return("acct1", "INBOX", s1)

	s2, err := p.GetOrCreate(context.Background(), "acct1", "INBOX", dial)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if calls != 1 {
		t.Errorf("dial called %d times, want 1 (second call should reuse the pooled session)", calls)
	}
	if s2 != s1 {
		t.Error("expected the pooled session to be returned")
	}
}

func TestPoolDiscardDoesNotPool(t *testing.T) {
	p := NewPool()
	dial := func(ctx context.Context) (FolderSession, error) {
		return &Session{}, nil
	}

	s1, err := p.GetOrCreate(context.Background(), "acct1", "INBOX", dial)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	p.Discard(s1)

	calls := 0
	dial2 := func(ctx context.Context) (FolderSession, error) {
		calls++
		return &Session{}, nil
	}
	if _, err := p.GetOrCreate(context.Background(), "acct1", "INBOX", dial2); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if calls != 1 {
		t.Error("expected a fresh dial after Discard")
	}
}

func TestPoolGetOrCreatePropagatesDialError(t *testing.T) {
	p := NewPool()
	wantErr := errors.New("dial failed")
	dial := func(ctx context.Context) (FolderSession, error) {
		return nil, wantErr
	}
	if _, err := p.GetOrCreate(context.Background(), "acct1", "INBOX", dial); err == nil {
		t.Fatal("expected error to propagate")
	}
}
