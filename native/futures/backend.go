package futures

import (
	"fmt"
	"math/big"
	"strings"

	"futurechain/core/types"
)

// AssetBackend moves value of one asset representation from a source principal
// into an escrow-owned destination. Both implementations share the same
// contract: a successful call has moved exactly amount and nothing else; a
// failed call has moved nothing. New asset kinds plug in here without touching
// workflow logic.
type AssetBackend interface {
	Kind() AssetKind
	Transfer(state engineState, from, to [20]byte, mint string, amount *big.Int) error
}

var (
	nativeTransfers AssetBackend = nativeBackend{}
	ledgerTransfers AssetBackend = ledgerBackend{}
)

// BackendFor selects the transfer backend for the supplied asset kind.
func BackendFor(kind AssetKind) (AssetBackend, error) {
	switch kind {
	case AssetNative:
		return nativeTransfers, nil
	case AssetLedger:
		return ledgerTransfers, nil
	default:
		return nil, fmt.Errorf("futures: no backend for asset kind %d", kind)
	}
}

// nativeBackend moves balance tracked directly on the base ledger.
type nativeBackend struct{}

func (nativeBackend) Kind() AssetKind { return AssetNative }

func (nativeBackend) Transfer(state engineState, from, to [20]byte, _ string, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("%w: negative transfer amount", ErrTransferFailed)
	}
	if amt.Sign() == 0 {
		return nil
	}
	fromAcc, err := state.GetAccount(from[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	toAcc, err := state.GetAccount(to[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.BalanceNative.Cmp(amt) < 0 {
		return fmt.Errorf("%w: insufficient native balance", ErrTransferFailed)
	}
	fromAcc.BalanceNative = new(big.Int).Sub(fromAcc.BalanceNative, amt)
	toAcc.BalanceNative = new(big.Int).Add(toAcc.BalanceNative, amt)
	if err := state.PutAccount(from[:], fromAcc); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := state.PutAccount(to[:], toAcc); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// ledgerBackend moves balance held in per-mint ledger accounts. The
// destination account must have been initialised beforehand; deposits never
// create accounts on the fly.
type ledgerBackend struct{}

func (ledgerBackend) Kind() AssetKind { return AssetLedger }

func (ledgerBackend) Transfer(state engineState, from, to [20]byte, mint string, amount *big.Int) error {
	normalized := strings.TrimSpace(mint)
	if normalized == "" {
		return fmt.Errorf("%w: ledger transfer requires a mint", ErrTransferFailed)
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("%w: negative transfer amount", ErrTransferFailed)
	}
	if amt.Sign() == 0 {
		return nil
	}
	exists, err := state.LedgerAccountExists(to[:], normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if !exists {
		return fmt.Errorf("%w: destination ledger account for mint %s not initialised", ErrTransferFailed, normalized)
	}
	fromBal, err := state.LedgerBalance(from[:], normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if fromBal.Cmp(amt) < 0 {
		return fmt.Errorf("%w: insufficient ledger balance for mint %s", ErrTransferFailed, normalized)
	}
	toBal, err := state.LedgerBalance(to[:], normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := state.SetLedgerBalance(from[:], normalized, new(big.Int).Sub(fromBal, amt)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := state.SetLedgerBalance(to[:], normalized, new(big.Int).Add(toBal, amt)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{BalanceNative: big.NewInt(0)}
	}
	if acc.BalanceNative == nil {
		acc.BalanceNative = big.NewInt(0)
	}
	return acc
}
