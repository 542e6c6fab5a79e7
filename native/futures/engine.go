package futures

import (
	"errors"
	"log/slog"
	"math/big"
	"time"

	"futurechain/core/events"
	"futurechain/core/types"
	"futurechain/native/common"
)

const moduleName = "futures"

var errNilState = errors.New("futures engine: state not configured")

// engineState is the narrow view of chain state the engine needs. The state
// manager implements it for a real node; tests supply a map-backed mock.
//
// Snapshot/RevertToSnapshot bracket each workflow so that a partial failure
// leaves no observable trace: allocation, transfers and escrow counter updates
// commit together or not at all.
type engineState interface {
	ContractPut(*ContractTerms) error
	ContractGet(id [32]byte) (*ContractTerms, bool)
	EscrowLedgerPut(*EscrowLedger) error
	EscrowLedgerGet(id [32]byte) (*EscrowLedger, bool)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	LedgerBalance(addr []byte, mint string) (*big.Int, error)
	SetLedgerBalance(addr []byte, mint string, balance *big.Int) error
	LedgerAccountExists(addr []byte, mint string) (bool, error)
	Snapshot() int
	RevertToSnapshot(int)
	DiscardSnapshot(int)
}

// MetricsRecorder receives workflow failure notifications. The observability
// registry satisfies it; a nil recorder disables the reporting.
type MetricsRecorder interface {
	RecordWorkflowError(operation string)
}

type futuresEvent struct {
	evt *types.Event
}

func (e futuresEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e futuresEvent) Event() *types.Event { return e.evt }

func (e futuresEvent) EventAttributes() map[string]string {
	if e.evt == nil {
		return nil
	}
	return e.evt.Attributes
}

// Engine wires the futures escrow business logic with external state, event
// emitters and the module pause switchboard.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  common.PauseView
	metrics MetricsRecorder
	log     *slog.Logger
	nowFn   func() int64
}

// NewEngine creates a futures engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses configures the pause switchboard consulted before every workflow.
func (e *Engine) SetPauses(pauses common.PauseView) { e.pauses = pauses }

// SetMetrics configures the recorder notified about workflow failures.
// Passing nil disables the reporting.
func (e *Engine) SetMetrics(metrics MetricsRecorder) { e.metrics = metrics }

// SetLogger configures the structured logger used by the engine. Passing nil
// silences engine logging.
func (e *Engine) SetLogger(log *slog.Logger) { e.log = log }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(futuresEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) recordWorkflowError(operation string) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.RecordWorkflowError(operation)
}

func (e *Engine) logDebug(msg string, args ...any) {
	if e == nil || e.log == nil {
		return
	}
	e.log.Debug(msg, args...)
}

// Initialize is the stateless bootstrap entry point. It has no persisted
// effect and always succeeds; repeated calls are harmless.
func (e *Engine) Initialize() error {
	e.logDebug("futures module initialised")
	return nil
}

// CreateContract validates the supplied terms, allocates the contract record
// with its zeroed escrow ledger, and collects both parties' initial margins
// into the contract vault. The whole invocation is all-or-nothing: any
// failure, including a failed margin transfer, leaves no record addressable
// under the seller/buyer pair.
func (e *Engine) CreateContract(
	seller, buyer [20]byte,
	underlyingAsset string, underlyingKind AssetKind,
	exchangeAsset string, exchangeKind AssetKind,
	sellAmount, buyAmount *big.Int,
	marginRate uint32,
	startDate, expirationDate uint64,
) (_ *ContractTerms, err error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	defer func() {
		if err != nil {
			e.recordWorkflowError("create_contract")
		}
	}()
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	terms, err := SanitizeContract(&ContractTerms{
		ID:              ContractID(seller, buyer),
		Seller:          seller,
		Buyer:           buyer,
		UnderlyingAsset: underlyingAsset,
		UnderlyingKind:  underlyingKind,
		ExchangeAsset:   exchangeAsset,
		ExchangeKind:    exchangeKind,
		SellAmount:      sellAmount,
		BuyAmount:       buyAmount,
		MarginRate:      marginRate,
		StartDate:       startDate,
		ExpirationDate:  expirationDate,
		CreatedAt:       e.now(),
		Settled:         false,
	})
	if err != nil {
		return nil, err
	}
	if _, ok := e.state.ContractGet(terms.ID); ok {
		return nil, ErrContractExists
	}

	snapshot := e.state.Snapshot()
	created, err := e.createContract(terms)
	if err != nil {
		e.state.RevertToSnapshot(snapshot)
		return nil, err
	}
	e.state.DiscardSnapshot(snapshot)
	e.emit(NewContractCreatedEvent(created))
	e.logDebug("futures contract created",
		slog.String("underlyingAsset", created.UnderlyingAsset),
		slog.String("exchangeAsset", created.ExchangeAsset))
	return created.Clone(), nil
}

func (e *Engine) createContract(terms *ContractTerms) (*ContractTerms, error) {
	if err := e.state.ContractPut(terms); err != nil {
		return nil, err
	}
	ledger := NewEscrowLedger(terms.Seller, terms.Buyer)
	if err := e.state.EscrowLedgerPut(ledger); err != nil {
		return nil, err
	}
	vault := VaultAddress(terms.Seller, terms.Buyer)
	if err := e.initVaultLedgerAccounts(vault, terms); err != nil {
		return nil, err
	}

	sellerMargin := MarginAmount(terms.MarginRate, terms.SellAmount)
	if err := e.deposit(terms, ledger, vault, sellerMargin, true, terms.UnderlyingKind); err != nil {
		return nil, err
	}
	buyerMargin := MarginAmount(terms.MarginRate, terms.BuyAmount)
	if err := e.deposit(terms, ledger, vault, buyerMargin, false, terms.ExchangeKind); err != nil {
		return nil, err
	}
	return terms, nil
}

// initVaultLedgerAccounts prepares the vault's per-mint destinations for any
// ledger-kind leg so later deposits find an initialised account.
func (e *Engine) initVaultLedgerAccounts(vault [20]byte, terms *ContractTerms) error {
	for _, leg := range []struct {
		kind AssetKind
		mint string
	}{
		{terms.UnderlyingKind, terms.UnderlyingAsset},
		{terms.ExchangeKind, terms.ExchangeAsset},
	} {
		if leg.kind != AssetLedger {
			continue
		}
		exists, err := e.state.LedgerAccountExists(vault[:], leg.mint)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := e.state.SetLedgerBalance(vault[:], leg.mint, big.NewInt(0)); err != nil {
			return err
		}
	}
	return nil
}

// DepositMargin tops up the escrow ledger for an existing contract. The party
// and asset kind are chosen per call; they are independent of the kinds the
// contract records, since either party may collateralise in either
// representation. Repeated calls accumulate; there is no retry deduplication.
func (e *Engine) DepositMargin(contractID [32]byte, amount *big.Int, isSeller, isNative bool) (err error) {
	if e == nil || e.state == nil {
		return errNilState
	}
	defer func() {
		if err != nil {
			e.recordWorkflowError("deposit_margin")
		}
	}()
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	terms, ok := e.state.ContractGet(contractID)
	if !ok {
		return ErrContractNotFound
	}
	if terms.Settled {
		return ErrContractSettled
	}
	ledger, ok := e.state.EscrowLedgerGet(EscrowID(terms.Seller, terms.Buyer))
	if !ok {
		return ErrContractNotFound
	}

	kind := AssetLedger
	if isNative {
		kind = AssetNative
	}
	vault := VaultAddress(terms.Seller, terms.Buyer)

	snapshot := e.state.Snapshot()
	if err := e.deposit(terms, ledger, vault, amount, isSeller, kind); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return err
	}
	e.state.DiscardSnapshot(snapshot)
	e.emit(NewMarginDepositedEvent(terms, amount, isSeller, kind))
	return nil
}

// deposit runs one margin movement: backend transfer into the vault followed
// by the matching escrow counter credit. Callers hold a state snapshot, so the
// two sub-steps are atomic relative to any observer.
func (e *Engine) deposit(terms *ContractTerms, ledger *EscrowLedger, vault [20]byte, amount *big.Int, isSeller bool, kind AssetKind) error {
	backend, err := BackendFor(kind)
	if err != nil {
		return err
	}
	source := terms.Buyer
	mint := terms.ExchangeAsset
	if isSeller {
		source = terms.Seller
		mint = terms.UnderlyingAsset
	}
	if err := backend.Transfer(e.state, source, vault, mint, amount); err != nil {
		return err
	}
	if err := ledger.Credit(isSeller, kind, amount); err != nil {
		return err
	}
	return e.state.EscrowLedgerPut(ledger)
}

// Contract returns a copy of the stored terms for the supplied identifier.
func (e *Engine) Contract(contractID [32]byte) (*ContractTerms, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	terms, ok := e.state.ContractGet(contractID)
	if !ok {
		return nil, ErrContractNotFound
	}
	return terms.Clone(), nil
}

// EscrowBalances returns a copy of the escrow ledger paired with the supplied
// contract.
func (e *Engine) EscrowBalances(contractID [32]byte) (*EscrowLedger, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	terms, ok := e.state.ContractGet(contractID)
	if !ok {
		return nil, ErrContractNotFound
	}
	ledger, ok := e.state.EscrowLedgerGet(EscrowID(terms.Seller, terms.Buyer))
	if !ok {
		return nil, ErrContractNotFound
	}
	return ledger.Clone(), nil
}
