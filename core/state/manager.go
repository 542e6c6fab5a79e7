package state

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"futurechain/core/types"
	"futurechain/native/futures"
	"futurechain/storage/trie"
)

// Manager provides the persistent view of accounts, ledger balances and
// futures records. All keys are keccak-hashed prefixed byte strings; values
// are RLP encoded.
//
// Snapshot/RevertToSnapshot give workflows all-or-nothing semantics: a
// snapshot captures the trie overlay, and reverting restores it, discarding
// every mutation made in between. Manager is not safe for concurrent use; the
// host serialises operations that touch the same state.
type Manager struct {
	trie      *trie.Trie
	snapshots []*trie.Trie
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

var (
	accountPrefix  = []byte("futures/account:")
	balancePrefix  = []byte("futures/balance:")
	contractPrefix = []byte("futures/contract:")
	escrowPrefix   = []byte("futures/escrow:")
)

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr []byte, mint string) []byte {
	buf := make([]byte, len(balancePrefix)+len(mint)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], mint)
	buf[len(balancePrefix)+len(mint)] = ':'
	copy(buf[len(balancePrefix)+len(mint)+1:], addr)
	return ethcrypto.Keccak256(buf)
}

func contractKey(id [32]byte) []byte {
	buf := make([]byte, len(contractPrefix)+len(id))
	copy(buf, contractPrefix)
	copy(buf[len(contractPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

func escrowKey(id [32]byte) []byte {
	buf := make([]byte, len(escrowPrefix)+len(id))
	copy(buf, escrowPrefix)
	copy(buf[len(escrowPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

// --- accounts ---

type storedAccount struct {
	Nonce         uint64
	BalanceNative *big.Int
}

// GetAccount loads the account stored at the address, or a zeroed account when
// none exists yet.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	data, err := m.trie.Get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &types.Account{BalanceNative: big.NewInt(0)}, nil
	}
	stored := new(storedAccount)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	balance := stored.BalanceNative
	if balance == nil {
		balance = big.NewInt(0)
	}
	return &types.Account{Nonce: stored.Nonce, BalanceNative: balance}, nil
}

// PutAccount persists the supplied account at the address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	balance := account.BalanceNative
	if balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Sign() < 0 {
		return fmt.Errorf("state: negative native balance")
	}
	encoded, err := rlp.EncodeToBytes(&storedAccount{Nonce: account.Nonce, BalanceNative: balance})
	if err != nil {
		return err
	}
	return m.trie.Update(accountKey(addr), encoded)
}

// --- ledger-account balances ---

// LedgerBalance returns the per-mint ledger balance for the address. An
// uninitialised account reads as zero; use LedgerAccountExists to tell the two
// apart.
func (m *Manager) LedgerBalance(addr []byte, mint string) (*big.Int, error) {
	data, err := m.trie.Get(balanceKey(addr, mint))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, fmt.Errorf("state: decode ledger balance: %w", err)
	}
	return balance, nil
}

// SetLedgerBalance writes the per-mint ledger balance for the address,
// initialising the ledger account if it did not exist.
func (m *Manager) SetLedgerBalance(addr []byte, mint string, balance *big.Int) error {
	if mint == "" {
		return fmt.Errorf("state: ledger balance requires a mint")
	}
	if balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Sign() < 0 {
		return fmt.Errorf("state: negative ledger balance")
	}
	encoded, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return err
	}
	return m.trie.Update(balanceKey(addr, mint), encoded)
}

// LedgerAccountExists reports whether the address holds an initialised ledger
// account for the mint.
func (m *Manager) LedgerAccountExists(addr []byte, mint string) (bool, error) {
	data, err := m.trie.Get(balanceKey(addr, mint))
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}

// --- futures contracts ---

type storedContract struct {
	Seller          [20]byte
	Buyer           [20]byte
	UnderlyingAsset string
	UnderlyingKind  uint8
	ExchangeAsset   string
	ExchangeKind    uint8
	SellAmount      *big.Int
	BuyAmount       *big.Int
	MarginRate      uint32
	StartDate       uint64
	ExpirationDate  uint64
	CreatedAt       uint64
	Settled         bool
}

// ContractPut persists the contract terms under their deterministic key.
func (m *Manager) ContractPut(c *futures.ContractTerms) error {
	sanitized, err := futures.SanitizeContract(c)
	if err != nil {
		return err
	}
	stored := &storedContract{
		Seller:          sanitized.Seller,
		Buyer:           sanitized.Buyer,
		UnderlyingAsset: sanitized.UnderlyingAsset,
		UnderlyingKind:  uint8(sanitized.UnderlyingKind),
		ExchangeAsset:   sanitized.ExchangeAsset,
		ExchangeKind:    uint8(sanitized.ExchangeKind),
		SellAmount:      sanitized.SellAmount,
		BuyAmount:       sanitized.BuyAmount,
		MarginRate:      sanitized.MarginRate,
		StartDate:       sanitized.StartDate,
		ExpirationDate:  sanitized.ExpirationDate,
		CreatedAt:       uint64(sanitized.CreatedAt),
		Settled:         sanitized.Settled,
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.trie.Update(contractKey(sanitized.ID), encoded)
}

// ContractGet loads the contract terms for the supplied identifier.
func (m *Manager) ContractGet(id [32]byte) (*futures.ContractTerms, bool) {
	data, err := m.trie.Get(contractKey(id))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedContract)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	return &futures.ContractTerms{
		ID:              id,
		Seller:          stored.Seller,
		Buyer:           stored.Buyer,
		UnderlyingAsset: stored.UnderlyingAsset,
		UnderlyingKind:  futures.AssetKind(stored.UnderlyingKind),
		ExchangeAsset:   stored.ExchangeAsset,
		ExchangeKind:    futures.AssetKind(stored.ExchangeKind),
		SellAmount:      stored.SellAmount,
		BuyAmount:       stored.BuyAmount,
		MarginRate:      stored.MarginRate,
		StartDate:       stored.StartDate,
		ExpirationDate:  stored.ExpirationDate,
		CreatedAt:       int64(stored.CreatedAt),
		Settled:         stored.Settled,
	}, true
}

// --- escrow ledgers ---

type storedEscrowLedger struct {
	Seller       [20]byte
	Buyer        [20]byte
	SellerNative *big.Int
	SellerLedger *big.Int
	BuyerNative  *big.Int
	BuyerLedger  *big.Int
}

// EscrowLedgerPut persists the escrow ledger under its deterministic key.
func (m *Manager) EscrowLedgerPut(l *futures.EscrowLedger) error {
	sanitized, err := futures.SanitizeLedger(l)
	if err != nil {
		return err
	}
	stored := &storedEscrowLedger{
		Seller:       sanitized.Seller,
		Buyer:        sanitized.Buyer,
		SellerNative: sanitized.SellerNative,
		SellerLedger: sanitized.SellerLedger,
		BuyerNative:  sanitized.BuyerNative,
		BuyerLedger:  sanitized.BuyerLedger,
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.trie.Update(escrowKey(sanitized.ID), encoded)
}

// EscrowLedgerGet loads the escrow ledger for the supplied identifier.
func (m *Manager) EscrowLedgerGet(id [32]byte) (*futures.EscrowLedger, bool) {
	data, err := m.trie.Get(escrowKey(id))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedEscrowLedger)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	return &futures.EscrowLedger{
		ID:           id,
		Seller:       stored.Seller,
		Buyer:        stored.Buyer,
		SellerNative: stored.SellerNative,
		SellerLedger: stored.SellerLedger,
		BuyerNative:  stored.BuyerNative,
		BuyerLedger:  stored.BuyerLedger,
	}, true
}

// --- snapshots ---

// Snapshot captures the current state so a workflow can be rolled back. The
// returned handle is only valid until the matching RevertToSnapshot or the
// next Commit.
func (m *Manager) Snapshot() int {
	m.snapshots = append(m.snapshots, m.trie.Copy())
	return len(m.snapshots) - 1
}

// RevertToSnapshot restores the state captured by the handle, discarding every
// mutation made since.
func (m *Manager) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	m.trie = m.snapshots[id]
	m.snapshots = m.snapshots[:id]
}

// DiscardSnapshot releases the snapshot captured by the handle without
// reverting, freeing the retained copy once a workflow has succeeded. The
// handle and any taken after it become invalid.
func (m *Manager) DiscardSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	for i := id; i < len(m.snapshots); i++ {
		m.snapshots[i] = nil
	}
	m.snapshots = m.snapshots[:id]
}

// Commit flushes pending mutations to the backing storage and invalidates all
// outstanding snapshots. It returns the new state root.
func (m *Manager) Commit() ([]byte, error) {
	m.snapshots = nil
	return m.trie.Commit()
}
