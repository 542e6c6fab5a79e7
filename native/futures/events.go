package futures

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"futurechain/core/types"
)

const (
	EventTypeContractCreated = "futures.contract.created"
	EventTypeMarginDeposited = "futures.margin.deposited"
)

// NewContractCreatedEvent returns the canonical event payload for a newly
// created futures contract.
func NewContractCreatedEvent(c *ContractTerms) *types.Event {
	attrs := make(map[string]string)
	if c == nil {
		return &types.Event{Type: EventTypeContractCreated, Attributes: attrs}
	}
	sanitized, err := SanitizeContract(c)
	if err != nil {
		return &types.Event{Type: EventTypeContractCreated, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(sanitized.ID[:])
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["buyer"] = hex.EncodeToString(sanitized.Buyer[:])
	attrs["underlyingAsset"] = sanitized.UnderlyingAsset
	attrs["underlyingKind"] = sanitized.UnderlyingKind.String()
	attrs["exchangeAsset"] = sanitized.ExchangeAsset
	attrs["exchangeKind"] = sanitized.ExchangeKind.String()
	attrs["sellAmount"] = sanitized.SellAmount.String()
	attrs["buyAmount"] = sanitized.BuyAmount.String()
	attrs["marginRate"] = strconv.FormatUint(uint64(sanitized.MarginRate), 10)
	attrs["startDate"] = strconv.FormatUint(sanitized.StartDate, 10)
	attrs["expirationDate"] = strconv.FormatUint(sanitized.ExpirationDate, 10)
	attrs["createdAt"] = strconv.FormatInt(sanitized.CreatedAt, 10)
	return &types.Event{Type: EventTypeContractCreated, Attributes: attrs}
}

// NewMarginDepositedEvent returns the canonical event payload emitted when
// collateral lands in a contract's escrow ledger.
func NewMarginDepositedEvent(c *ContractTerms, amount *big.Int, isSeller bool, kind AssetKind) *types.Event {
	attrs := make(map[string]string)
	if c == nil {
		return &types.Event{Type: EventTypeMarginDeposited, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(c.ID[:])
	party := "buyer"
	if isSeller {
		party = "seller"
	}
	attrs["party"] = party
	attrs["kind"] = kind.String()
	if amount != nil {
		attrs["amount"] = amount.String()
	} else {
		attrs["amount"] = "0"
	}
	return &types.Event{Type: EventTypeMarginDeposited, Attributes: attrs}
}
