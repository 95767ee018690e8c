package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/logs"
)

var (
	descEventsProcessed = prometheus.NewDesc("opus_events_processed_total", "Events dispatched by the reactor.", nil, nil)
	descDepthEvents     = prometheus.NewDesc("opus_depth_events_total", "Depth events dispatched.", nil, nil)
	descInvalidDepth    = prometheus.NewDesc("opus_invalid_depth_total", "Crossed or empty depth events discarded.", nil, nil)
	descRawSignals      = prometheus.NewDesc("opus_raw_signals_total", "Raw above-threshold imbalance readings.", []string{"direction"}, nil)
	descQualified       = prometheus.NewDesc("opus_qualified_signals_total", "Filter-qualified signals.", []string{"direction"}, nil)
	descRiskDecisions   = prometheus.NewDesc("opus_risk_decisions_total", "Risk gate outcomes.", []string{"kind"}, nil)
	descBrackets        = prometheus.NewDesc("opus_brackets_placed_total", "Bracket orders placed.", nil, nil)
	descIncomplete      = prometheus.NewDesc("opus_brackets_incomplete_total", "Brackets missing a protective leg.", nil, nil)
	descClosed          = prometheus.NewDesc("opus_positions_closed_total", "Exchange-detected position closures.", nil, nil)
	descDepthLatency    = prometheus.NewDesc("opus_depth_handler_seconds_avg", "Average depth handler latency.", nil, nil)
	descRingDropped     = prometheus.NewDesc("opus_ring_dropped_total", "Depth events dropped by the full ring.", nil, nil)
	descRingPublished   = prometheus.NewDesc("opus_ring_published_total", "Depth events accepted by the ring.", nil, nil)
)

// RingCounters exposes the publisher counters without importing it.
type RingCounters interface {
	Published() uint64
	Dropped() uint64
}

// Collector adapts a metrics snapshot to prometheus. The hot path keeps
// its plain atomics; prometheus only reads snapshots on scrape.
type Collector struct {
	metrics *Metrics
	ring    RingCounters
}

// NewCollector wraps the engine metrics for scraping.
func NewCollector(metrics *Metrics, ring RingCounters) *Collector {
	return &Collector{metrics: metrics, ring: ring}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descEventsProcessed
	ch <- descDepthEvents
	ch <- descInvalidDepth
	ch <- descRawSignals
	ch <- descQualified
	ch <- descRiskDecisions
	ch <- descBrackets
	ch <- descIncomplete
	ch <- descClosed
	ch <- descDepthLatency
	ch <- descRingDropped
	ch <- descRingPublished
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.metrics.Snapshot()
	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}

	counter(descEventsProcessed, snapshot.EventsProcessed)
	counter(descDepthEvents, snapshot.DepthEvents)
	counter(descInvalidDepth, snapshot.InvalidDepth)
	counter(descRawSignals, snapshot.BuySignals, "buy")
	counter(descRawSignals, snapshot.SellSignals, "sell")
	counter(descQualified, snapshot.QualifiedBuys, "buy")
	counter(descQualified, snapshot.QualifiedSells, "sell")
	for kind, count := range snapshot.RiskKindCounts {
		counter(descRiskDecisions, count, kind.String())
	}
	counter(descBrackets, snapshot.BracketsPlaced)
	counter(descIncomplete, snapshot.BracketsIncomplete)
	counter(descClosed, snapshot.PositionsClosed)
	ch <- prometheus.MustNewConstMetric(descDepthLatency, prometheus.GaugeValue, snapshot.DepthLatency.Avg.Seconds())
	if c.ring != nil {
		counter(descRingDropped, c.ring.Dropped())
		counter(descRingPublished, c.ring.Published())
	}
}

// Serve exposes /metrics on addr until the server fails. Run it in its own
// goroutine; scrape traffic never touches the strategy thread.
func Serve(addr string, collector *Collector) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logs.Errorf("metrics server stopped: %+v", err)
	}
}
