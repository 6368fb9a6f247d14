package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics counts marketplace ledger activity.
type MarketMetrics struct {
	listingsCreated prometheus.Counter
	bidsEscrowed    prometheus.Counter
	bidsRecorded    prometheus.Counter
	closes          *prometheus.CounterVec
	sweeps          prometheus.Counter
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the lazily-initialised registry tracking listings, bids
// and settlements.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			listingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tom",
				Subsystem: "market",
				Name:      "listings_created_total",
				Help:      "Count of listings created.",
			}),
			bidsEscrowed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tom",
				Subsystem: "market",
				Name:      "bids_escrowed_total",
				Help:      "Count of bids whose value entered escrow.",
			}),
			bidsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tom",
				Subsystem: "market",
				Name:      "bids_recorded_total",
				Help:      "Count of bids accepted onto listings.",
			}),
			closes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tom",
				Subsystem: "market",
				Name:      "closes_total",
				Help:      "Count of listing closes segmented by outcome.",
			}, []string{"outcome"}),
			sweeps: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tom",
				Subsystem: "market",
				Name:      "sweeps_total",
				Help:      "Count of expired-escrow sweeps that reclaimed value.",
			}),
		}
		prometheus.MustRegister(
			marketRegistry.listingsCreated,
			marketRegistry.bidsEscrowed,
			marketRegistry.bidsRecorded,
			marketRegistry.closes,
			marketRegistry.sweeps,
		)
	})
	return marketRegistry
}

// ObserveListingCreated records a successful listing creation.
func (m *MarketMetrics) ObserveListingCreated() {
	if m == nil {
		return
	}
	m.listingsCreated.Inc()
}

// ObserveBidEscrowed records a bid entering escrow.
func (m *MarketMetrics) ObserveBidEscrowed() {
	if m == nil {
		return
	}
	m.bidsEscrowed.Inc()
}

// ObserveBidRecorded records a bid accepted onto a listing.
func (m *MarketMetrics) ObserveBidRecorded() {
	if m == nil {
		return
	}
	m.bidsRecorded.Inc()
}

// ObserveClose records a close segmented by its terminal outcome.
func (m *MarketMetrics) ObserveClose(outcome string) {
	if m == nil {
		return
	}
	m.closes.WithLabelValues(outcome).Inc()
}

// ObserveSweep records a sweep that reclaimed escrowed value.
func (m *MarketMetrics) ObserveSweep() {
	if m == nil {
		return
	}
	m.sweeps.Inc()
}

// RPCMetrics tracks JSON-RPC handler activity.
type RPCMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	rpcOnce     sync.Once
	rpcRegistry *RPCMetrics
)

// RPC returns the lazily-initialised registry recording request counts,
// error codes and handler latency.
func RPC() *RPCMetrics {
	rpcOnce.Do(func() {
		rpcRegistry = &RPCMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tom",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tom",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tom",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution of JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(rpcRegistry.requests, rpcRegistry.errors, rpcRegistry.latency)
	})
	return rpcRegistry
}

// ObserveRequest records one handled request and its latency.
func (m *RPCMetrics) ObserveRequest(method, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(took.Seconds())
}

// ObserveError records one failed request by error code.
func (m *RPCMetrics) ObserveError(method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, code).Inc()
}
