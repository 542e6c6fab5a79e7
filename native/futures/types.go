package futures

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AssetKind is a closed tag selecting which of the two transfer mechanisms
// applies to an asset reference: value tracked directly on the base ledger, or
// value tracked in a per-mint ledger account.
type AssetKind uint8

const (
	AssetNative AssetKind = iota
	AssetLedger
)

// Valid reports whether the kind is within the supported range.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetNative, AssetLedger:
		return true
	default:
		return false
	}
}

func (k AssetKind) String() string {
	switch k {
	case AssetNative:
		return "native"
	case AssetLedger:
		return "ledger"
	default:
		return fmt.Sprintf("assetkind(%d)", uint8(k))
	}
}

// Parameter errors surfaced verbatim to callers. They are precondition
// violations; retrying without correcting the input is pointless.
var (
	ErrInvalidAssetName      = errors.New("futures: asset name cannot be empty")
	ErrInvalidContractPrice  = errors.New("futures: buy amount cannot be 0")
	ErrInvalidExpirationDate = errors.New("futures: expiration date cannot be 0")
	ErrInvalidMarginRate     = errors.New("futures: margin rate exceeds 100 percent")
)

// ErrTransferFailed wraps every asset backend failure (insufficient balance,
// missing destination account). Callers may retry after correcting the
// underlying condition.
var ErrTransferFailed = errors.New("futures: transfer failed")

var (
	ErrContractNotFound = errors.New("futures: contract not found")
	ErrContractExists   = errors.New("futures: contract already exists for principal pair")
	ErrContractSettled  = errors.New("futures: contract already settled")
)

var (
	contractTag = []byte("futures/contract")
	escrowTag   = []byte("futures/escrow")
	vaultTag    = []byte("futures/vault")
)

// ContractID derives the deterministic identifier of the terms record for a
// seller/buyer pair.
func ContractID(seller, buyer [20]byte) [32]byte {
	return ethcrypto.Keccak256Hash(contractTag, seller[:], buyer[:])
}

// EscrowID derives the deterministic identifier of the escrow ledger paired
// with the contract for a seller/buyer pair.
func EscrowID(seller, buyer [20]byte) [32]byte {
	return ethcrypto.Keccak256Hash(escrowTag, seller[:], buyer[:])
}

// VaultAddress derives the contract-scoped escrow account that custodies both
// parties' margins until settlement.
func VaultAddress(seller, buyer [20]byte) [20]byte {
	hash := ethcrypto.Keccak256(vaultTag, seller[:], buyer[:])
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// ContractTerms captures the immutable terms of one bilateral futures
// agreement. Only the Settled flag may change after creation, and that
// transition is owned by the settlement subsystem, not this module.
type ContractTerms struct {
	ID              [32]byte
	Seller          [20]byte
	Buyer           [20]byte
	UnderlyingAsset string
	UnderlyingKind  AssetKind
	ExchangeAsset   string
	ExchangeKind    AssetKind
	SellAmount      *big.Int
	BuyAmount       *big.Int
	MarginRate      uint32
	StartDate       uint64
	ExpirationDate  uint64
	CreatedAt       int64
	Settled         bool
}

// Clone returns a deep copy of the terms so callers can safely mutate the copy
// without affecting the stored instance.
func (c *ContractTerms) Clone() *ContractTerms {
	if c == nil {
		return nil
	}
	clone := *c
	if c.SellAmount != nil {
		clone.SellAmount = new(big.Int).Set(c.SellAmount)
	} else {
		clone.SellAmount = big.NewInt(0)
	}
	if c.BuyAmount != nil {
		clone.BuyAmount = new(big.Int).Set(c.BuyAmount)
	} else {
		clone.BuyAmount = big.NewInt(0)
	}
	return &clone
}

// ValidateTerms runs the pure precondition checks shared by contract creation.
// It must complete before any state mutation or fund movement; no partial
// validation path exists.
func ValidateTerms(underlyingAsset string, buyAmount *big.Int, expirationDate uint64, marginRate uint32) error {
	if strings.TrimSpace(underlyingAsset) == "" {
		return ErrInvalidAssetName
	}
	if buyAmount == nil || buyAmount.Sign() <= 0 {
		return ErrInvalidContractPrice
	}
	if expirationDate == 0 {
		return ErrInvalidExpirationDate
	}
	if marginRate > 100 {
		return ErrInvalidMarginRate
	}
	return nil
}

// SanitizeContract validates and normalises the supplied terms, returning a
// cloned instance with non-nil amount fields. The function does not mutate the
// original value.
func SanitizeContract(c *ContractTerms) (*ContractTerms, error) {
	if c == nil {
		return nil, fmt.Errorf("futures: nil contract")
	}
	clone := c.Clone()
	if err := ValidateTerms(clone.UnderlyingAsset, clone.BuyAmount, clone.ExpirationDate, clone.MarginRate); err != nil {
		return nil, err
	}
	if !clone.UnderlyingKind.Valid() {
		return nil, fmt.Errorf("futures: invalid underlying asset kind %d", clone.UnderlyingKind)
	}
	if !clone.ExchangeKind.Valid() {
		return nil, fmt.Errorf("futures: invalid exchange asset kind %d", clone.ExchangeKind)
	}
	if clone.ExchangeKind == AssetLedger && strings.TrimSpace(clone.ExchangeAsset) == "" {
		return nil, ErrInvalidAssetName
	}
	if clone.SellAmount.Sign() < 0 {
		return nil, fmt.Errorf("futures: sell amount must be non-negative")
	}
	return clone, nil
}

// EscrowLedger accumulates the collateral custodied for one contract. The four
// counters are independent and monotonically non-decreasing; no withdrawal
// operation exists in this module.
type EscrowLedger struct {
	ID           [32]byte
	Seller       [20]byte
	Buyer        [20]byte
	SellerNative *big.Int
	SellerLedger *big.Int
	BuyerNative  *big.Int
	BuyerLedger  *big.Int
}

// NewEscrowLedger returns a zero-initialised ledger for the principal pair.
func NewEscrowLedger(seller, buyer [20]byte) *EscrowLedger {
	return &EscrowLedger{
		ID:           EscrowID(seller, buyer),
		Seller:       seller,
		Buyer:        buyer,
		SellerNative: big.NewInt(0),
		SellerLedger: big.NewInt(0),
		BuyerNative:  big.NewInt(0),
		BuyerLedger:  big.NewInt(0),
	}
}

// Clone returns a deep copy of the ledger.
func (l *EscrowLedger) Clone() *EscrowLedger {
	if l == nil {
		return nil
	}
	clone := *l
	clone.SellerNative = cloneBigInt(l.SellerNative)
	clone.SellerLedger = cloneBigInt(l.SellerLedger)
	clone.BuyerNative = cloneBigInt(l.BuyerNative)
	clone.BuyerLedger = cloneBigInt(l.BuyerLedger)
	return &clone
}

// Balance returns the counter selected by party and kind.
func (l *EscrowLedger) Balance(isSeller bool, kind AssetKind) *big.Int {
	return cloneBigInt(l.counter(isSeller, kind))
}

// Credit increases the counter selected by party and kind. Amounts must be
// non-negative; the counters only ever grow.
func (l *EscrowLedger) Credit(isSeller bool, kind AssetKind, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("futures: escrow credit must be non-negative")
	}
	counter := l.counter(isSeller, kind)
	counter.Add(counter, amount)
	return nil
}

func (l *EscrowLedger) counter(isSeller bool, kind AssetKind) *big.Int {
	if l.SellerNative == nil {
		l.SellerNative = big.NewInt(0)
	}
	if l.SellerLedger == nil {
		l.SellerLedger = big.NewInt(0)
	}
	if l.BuyerNative == nil {
		l.BuyerNative = big.NewInt(0)
	}
	if l.BuyerLedger == nil {
		l.BuyerLedger = big.NewInt(0)
	}
	if isSeller {
		if kind == AssetNative {
			return l.SellerNative
		}
		return l.SellerLedger
	}
	if kind == AssetNative {
		return l.BuyerNative
	}
	return l.BuyerLedger
}

// SanitizeLedger validates the supplied ledger, returning a cloned instance
// with non-nil counters. The function does not mutate the original value.
func SanitizeLedger(l *EscrowLedger) (*EscrowLedger, error) {
	if l == nil {
		return nil, fmt.Errorf("futures: nil escrow ledger")
	}
	clone := l.Clone()
	for _, counter := range []*big.Int{clone.SellerNative, clone.SellerLedger, clone.BuyerNative, clone.BuyerLedger} {
		if counter.Sign() < 0 {
			return nil, fmt.Errorf("futures: escrow counters must be non-negative")
		}
	}
	return clone, nil
}

// MarginAmount derives the collateral owed by a party as a truncating
// percentage of their committed quantity. The truncation toward zero is the
// accepted rounding policy; it directly governs real fund movement, so every
// caller must use this helper rather than re-deriving the formula.
func MarginAmount(rate uint32, amount *big.Int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	margin := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(rate)))
	return margin.Div(margin, big.NewInt(100))
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
