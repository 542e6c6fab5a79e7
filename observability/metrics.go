package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// FuturesMetrics tracks activity of the futures escrow module.
type FuturesMetrics struct {
	contractsCreated prometheus.Counter
	marginDeposits   *prometheus.CounterVec
	workflowErrors   *prometheus.CounterVec
}

var (
	futuresMetricsOnce sync.Once
	futuresRegistry    *FuturesMetrics
)

// Futures returns the lazily-initialised metrics registry for the futures
// module.
func Futures() *FuturesMetrics {
	futuresMetricsOnce.Do(func() {
		futuresRegistry = &FuturesMetrics{
			contractsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "futurechain",
				Subsystem: "futures",
				Name:      "contracts_created_total",
				Help:      "Total futures contracts successfully created.",
			}),
			marginDeposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "futurechain",
				Subsystem: "futures",
				Name:      "margin_deposits_total",
				Help:      "Total margin deposits segmented by party and asset kind.",
			}, []string{"party", "kind"}),
			workflowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "futurechain",
				Subsystem: "futures",
				Name:      "workflow_errors_total",
				Help:      "Total failed futures workflow invocations segmented by operation.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			futuresRegistry.contractsCreated,
			futuresRegistry.marginDeposits,
			futuresRegistry.workflowErrors,
		)
	})
	return futuresRegistry
}

// RecordContractCreated increments the contract creation counter.
func (m *FuturesMetrics) RecordContractCreated() {
	if m == nil {
		return
	}
	m.contractsCreated.Inc()
}

// RecordMarginDeposit increments the deposit counter for the supplied party
// ("seller"/"buyer") and asset kind ("native"/"ledger").
func (m *FuturesMetrics) RecordMarginDeposit(party, kind string) {
	if m == nil {
		return
	}
	if party == "" {
		party = "unknown"
	}
	if kind == "" {
		kind = "unknown"
	}
	m.marginDeposits.WithLabelValues(party, kind).Inc()
}

// RecordWorkflowError increments the error counter for the supplied operation.
func (m *FuturesMetrics) RecordWorkflowError(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.workflowErrors.WithLabelValues(operation).Inc()
}
