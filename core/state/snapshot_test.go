package state

import (
	"math/big"
	"testing"

	"futurechain/core/types"
	"futurechain/storage"
	"futurechain/storage/trie"
)

func newSnapshotManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	return NewManager(tr)
}

func TestDiscardSnapshotReleasesStack(t *testing.T) {
	mgr := newSnapshotManager(t)
	addr := [20]byte{0x01}

	id := mgr.Snapshot()
	if err := mgr.PutAccount(addr[:], &types.Account{BalanceNative: big.NewInt(250)}); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	mgr.DiscardSnapshot(id)

	if len(mgr.snapshots) != 0 {
		t.Fatalf("discard must release the snapshot stack, %d retained", len(mgr.snapshots))
	}

	// Discarding keeps the mutation in place.
	acc, err := mgr.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc.BalanceNative.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("balance = %s, want 250", acc.BalanceNative)
	}

	// The released handle no longer reverts anything.
	mgr.RevertToSnapshot(id)
	acc, err = mgr.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc.BalanceNative.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("revert of a released handle must be a no-op, balance = %s", acc.BalanceNative)
	}
}

func TestDiscardSnapshotDropsLaterHandles(t *testing.T) {
	mgr := newSnapshotManager(t)

	first := mgr.Snapshot()
	mgr.Snapshot()
	mgr.Snapshot()
	mgr.DiscardSnapshot(first)

	if len(mgr.snapshots) != 0 {
		t.Fatalf("discarding an early handle must drop later ones too, %d retained", len(mgr.snapshots))
	}
}
