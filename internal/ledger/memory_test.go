package ledger

import (
	"context"
	"testing"
)

func TestMemoryStore_FindByHashAndWallet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	rec := &Record{
		ID:       "r-1",
		WalletID: "w-1",
		Hash:     "aa",
		Type:     TypeDeposit,
		Status:   StatusCompleted,
	}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	found, err := s.FindByHashAndWallet(ctx, "aa", "w-1")
	if err != nil {
		t.Fatalf("FindByHashAndWallet() error: %v", err)
	}
	if found == nil || found.ID != "r-1" {
		t.Errorf("FindByHashAndWallet() = %+v", found)
	}

	// Same hash, different wallet: no match.
	found, err = s.FindByHashAndWallet(ctx, "aa", "w-2")
	if err != nil {
		t.Fatalf("FindByHashAndWallet() error: %v", err)
	}
	if found != nil {
		t.Errorf("hash should not match across wallets, got %+v", found)
	}
}

func TestMemoryStore_SetStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	rec := &Record{ID: "r-1", WalletID: "w-1", Type: TypeWithdrawal, Status: StatusPending}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := s.SetStatus(ctx, "r-1", StatusCompleted, "newhash", ""); err != nil {
		t.Fatalf("SetStatus() error: %v", err)
	}

	got, ok := s.Get("r-1")
	if !ok {
		t.Fatal("record vanished")
	}
	if got.Status != StatusCompleted || got.Hash != "newhash" {
		t.Errorf("record = %+v", got)
	}
}

func TestMemoryStore_SetStatus_KeepsHashWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	rec := &Record{ID: "r-1", WalletID: "w-1", Hash: "orig", Status: StatusPending}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStatus(ctx, "r-1", StatusFailed, "", "broadcast rejected"); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Get("r-1")
	if got.Hash != "orig" {
		t.Errorf("Hash = %q, want orig preserved", got.Hash)
	}
	if got.Description != "broadcast rejected" {
		t.Errorf("Description = %q", got.Description)
	}
}

func TestMemoryStore_SetStatus_Missing(t *testing.T) {
	s := NewMemory()
	if err := s.SetStatus(context.Background(), "ghost", StatusFailed, "", ""); err == nil {
		t.Error("SetStatus() on a missing record should fail")
	}
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	if err := s.Create(ctx, &Record{ID: "r-1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, &Record{ID: "r-1"}); err == nil {
		t.Error("Create() should reject a duplicate ID")
	}
}
