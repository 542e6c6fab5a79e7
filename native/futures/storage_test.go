package futures_test

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"futurechain/core/state"
	"futurechain/core/types"
	futurespkg "futurechain/native/futures"
	"futurechain/storage"
	"futurechain/storage/trie"
)

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newManagedEngine(t *testing.T) (*futurespkg.Engine, *state.Manager, storage.Database) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("new trie: %v", err)
	}
	mgr := state.NewManager(tr)
	engine := futurespkg.NewEngine()
	engine.SetState(mgr)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return engine, mgr, db
}

func TestEngineOverStateManager(t *testing.T) {
	engine, mgr, db := newManagedEngine(t)

	seller := testAddress(0x01)
	buyer := testAddress(0x02)
	if err := mgr.PutAccount(seller[:], &types.Account{BalanceNative: big.NewInt(1_000)}); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	if err := mgr.SetLedgerBalance(buyer[:], "USDK", big.NewInt(10_000)); err != nil {
		t.Fatalf("SetLedgerBalance: %v", err)
	}

	terms, err := engine.CreateContract(seller, buyer,
		"GOLD", futurespkg.AssetNative, "USDK", futurespkg.AssetLedger,
		big.NewInt(1_000), big.NewInt(5_000), 10, 1_700_000_000, 1_710_000_000)
	if err != nil {
		t.Fatalf("CreateContract: %v", err)
	}
	if err := engine.DepositMargin(terms.ID, big.NewInt(25), true, true); err != nil {
		t.Fatalf("DepositMargin: %v", err)
	}

	root, err := mgr.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// The records survive a fresh manager over the committed root.
	reopened, err := trie.NewTrie(db, root)
	if err != nil {
		t.Fatalf("reopen trie: %v", err)
	}
	ledger, ok := state.NewManager(reopened).EscrowLedgerGet(futurespkg.EscrowID(seller, buyer))
	if !ok {
		t.Fatalf("EscrowLedgerGet: expected ledger to exist")
	}
	if ledger.SellerNative.Cmp(big.NewInt(125)) != 0 {
		t.Fatalf("seller native counter = %s, want 125", ledger.SellerNative)
	}
	if ledger.BuyerLedger.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("buyer ledger counter = %s, want 500", ledger.BuyerLedger)
	}
}

func TestEngineRollbackOverStateManager(t *testing.T) {
	engine, mgr, _ := newManagedEngine(t)

	seller := testAddress(0x01)
	buyer := testAddress(0x02)
	if err := mgr.PutAccount(seller[:], &types.Account{BalanceNative: big.NewInt(1_000)}); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	// Buyer has no ledger account at all; the second leg fails.

	_, err := engine.CreateContract(seller, buyer,
		"GOLD", futurespkg.AssetNative, "USDK", futurespkg.AssetLedger,
		big.NewInt(1_000), big.NewInt(5_000), 10, 1_700_000_000, 1_710_000_000)
	if !errors.Is(err, futurespkg.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	if _, ok := mgr.ContractGet(futurespkg.ContractID(seller, buyer)); ok {
		t.Fatalf("rolled-back contract must not be addressable")
	}
	if _, ok := mgr.EscrowLedgerGet(futurespkg.EscrowID(seller, buyer)); ok {
		t.Fatalf("rolled-back escrow ledger must not be addressable")
	}
	acc, err := mgr.GetAccount(seller[:])
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc.BalanceNative.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("seller balance = %s, want 1000 after rollback", acc.BalanceNative)
	}
}
