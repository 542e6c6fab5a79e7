package observability

import (
	"futurechain/core/events"
	"futurechain/native/futures"
)

// MetricsEmitter is an events.Emitter that records module activity in the
// prometheus registry. It can be chained in front of another emitter so
// downstream subscribers still receive the events.
type MetricsEmitter struct {
	next events.Emitter
}

// NewMetricsEmitter wraps the supplied emitter; a nil next simply drops the
// events after recording them.
func NewMetricsEmitter(next events.Emitter) *MetricsEmitter {
	return &MetricsEmitter{next: next}
}

type attributed interface {
	EventAttributes() map[string]string
}

// Emit implements events.Emitter.
func (m *MetricsEmitter) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	switch evt.EventType() {
	case futures.EventTypeContractCreated:
		Futures().RecordContractCreated()
	case futures.EventTypeMarginDeposited:
		party, kind := "unknown", "unknown"
		if a, ok := evt.(attributed); ok {
			attrs := a.EventAttributes()
			if v := attrs["party"]; v != "" {
				party = v
			}
			if v := attrs["kind"]; v != "" {
				kind = v
			}
		}
		Futures().RecordMarginDeposit(party, kind)
	}
	if m.next != nil {
		m.next.Emit(evt)
	}
}
