package types

import "math/big"

// Account holds the native-balance side of a principal's state. Ledger-account
// balances (per-mint sub-accounts) live in their own state entries keyed by
// address and mint, so they are deliberately not part of this record.
type Account struct {
	Nonce         uint64   `json:"nonce"`
	BalanceNative *big.Int `json:"balanceNative"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.BalanceNative != nil {
		clone.BalanceNative = new(big.Int).Set(a.BalanceNative)
	} else {
		clone.BalanceNative = big.NewInt(0)
	}
	return &clone
}
