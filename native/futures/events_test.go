package futures

import (
	"encoding/hex"
	"math/big"
	"testing"
)

func TestNewContractCreatedEventAttributes(t *testing.T) {
	terms := validTerms()
	evt := NewContractCreatedEvent(terms)
	if evt.Type != EventTypeContractCreated {
		t.Fatalf("unexpected event type %q", evt.Type)
	}
	if evt.Attributes["id"] != hex.EncodeToString(terms.ID[:]) {
		t.Fatalf("unexpected id attribute %q", evt.Attributes["id"])
	}
	if evt.Attributes["underlyingAsset"] != "GOLD" || evt.Attributes["underlyingKind"] != "ledger" {
		t.Fatalf("unexpected underlying attributes: %v", evt.Attributes)
	}
	if evt.Attributes["buyAmount"] != "5000" || evt.Attributes["marginRate"] != "10" {
		t.Fatalf("unexpected amount attributes: %v", evt.Attributes)
	}
}

func TestNewContractCreatedEventInvalidTerms(t *testing.T) {
	terms := validTerms()
	terms.UnderlyingAsset = ""
	evt := NewContractCreatedEvent(terms)
	if len(evt.Attributes) != 0 {
		t.Fatalf("invalid terms must yield empty attributes, got %v", evt.Attributes)
	}
	if evt = NewContractCreatedEvent(nil); len(evt.Attributes) != 0 {
		t.Fatalf("nil terms must yield empty attributes")
	}
}

func TestNewMarginDepositedEventAttributes(t *testing.T) {
	terms := validTerms()
	evt := NewMarginDepositedEvent(terms, big.NewInt(50), true, AssetNative)
	if evt.Type != EventTypeMarginDeposited {
		t.Fatalf("unexpected event type %q", evt.Type)
	}
	if evt.Attributes["party"] != "seller" || evt.Attributes["kind"] != "native" {
		t.Fatalf("unexpected party/kind attributes: %v", evt.Attributes)
	}
	if evt.Attributes["amount"] != "50" {
		t.Fatalf("unexpected amount attribute %q", evt.Attributes["amount"])
	}

	evt = NewMarginDepositedEvent(terms, nil, false, AssetLedger)
	if evt.Attributes["party"] != "buyer" || evt.Attributes["kind"] != "ledger" || evt.Attributes["amount"] != "0" {
		t.Fatalf("unexpected attributes for nil amount: %v", evt.Attributes)
	}
}
