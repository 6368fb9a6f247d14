package observability

import (
	"github.com/honehone12/token-objects-marketplace/core/events"
	"github.com/honehone12/token-objects-marketplace/native/escrow"
	"github.com/honehone12/token-objects-marketplace/native/listing"
	"github.com/honehone12/token-objects-marketplace/native/settlement"
)

// MetricsEmitter bridges ledger events into the market metrics registry.
// Wire it into every engine so counters track emitted state changes.
type MetricsEmitter struct {
	metrics *MarketMetrics
}

// NewMetricsEmitter creates an emitter recording into the shared registry.
func NewMetricsEmitter() *MetricsEmitter {
	return &MetricsEmitter{metrics: Market()}
}

// Emit implements the events.Emitter interface.
func (e *MetricsEmitter) Emit(event events.Event) {
	if e == nil || event == nil {
		return
	}
	switch event.EventType() {
	case listing.EventTypeListingCreated:
		e.metrics.ObserveListingCreated()
	case listing.EventTypeBidRecorded:
		e.metrics.ObserveBidRecorded()
	case escrow.EventTypeBidPlaced:
		e.metrics.ObserveBidEscrowed()
	case escrow.EventTypeBidsSwept:
		e.metrics.ObserveSweep()
	case settlement.EventTypeListingSettled:
		e.metrics.ObserveClose("sold")
	case settlement.EventTypeListingCancelled:
		e.metrics.ObserveClose("cancelled")
	}
}
