package obs

import (
	"sync/atomic"
	"time"

	"main/internal/risk"
	"main/internal/schema"
	"main/internal/strategy"
)

const maxRiskKind = int(risk.DecisionRejectedCooldown)

// Metrics collects lightweight counters and latency stats. Writers are the
// strategy thread; readers (stats timer, prometheus) only load.
type Metrics struct {
	eventsProcessed uint64
	depthEvents     uint64
	timerEvents     uint64
	invalidDepth    uint64

	buySignals     uint64
	sellSignals    uint64
	qualifiedBuys  uint64
	qualifiedSells uint64

	riskKindCounts [maxRiskKind + 1]uint64

	bracketsPlaced     uint64
	bracketsIncomplete uint64
	positionsClosed    uint64

	depthLatency LatencyStats
	orderLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventsProcessed uint64
	DepthEvents     uint64
	TimerEvents     uint64
	InvalidDepth    uint64

	BuySignals     uint64
	SellSignals    uint64
	QualifiedBuys  uint64
	QualifiedSells uint64

	RiskKindCounts map[risk.DecisionKind]uint64

	BracketsPlaced     uint64
	BracketsIncomplete uint64
	PositionsClosed    uint64

	DepthLatency LatencySnapshot
	OrderLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent counts one dispatched event.
func (m *Metrics) ObserveEvent(eventType schema.EventType) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.eventsProcessed, 1)
	switch eventType {
	case schema.EventDepth:
		atomic.AddUint64(&m.depthEvents, 1)
	case schema.EventTimer:
		atomic.AddUint64(&m.timerEvents, 1)
	}
}

// IncInvalidDepth records a discarded crossed or empty depth event.
func (m *Metrics) IncInvalidDepth() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.invalidDepth, 1)
}

// IncRawSignal counts a raw above-threshold imbalance reading.
func (m *Metrics) IncRawSignal(direction strategy.Direction) {
	if m == nil {
		return
	}
	switch direction {
	case strategy.DirectionBuy:
		atomic.AddUint64(&m.buySignals, 1)
	case strategy.DirectionSell:
		atomic.AddUint64(&m.sellSignals, 1)
	}
}

// IncQualifiedSignal counts a filter-qualified signal.
func (m *Metrics) IncQualifiedSignal(direction strategy.Direction) {
	if m == nil {
		return
	}
	switch direction {
	case strategy.DirectionBuy:
		atomic.AddUint64(&m.qualifiedBuys, 1)
	case strategy.DirectionSell:
		atomic.AddUint64(&m.qualifiedSells, 1)
	}
}

// IncRiskKind counts a risk decision outcome.
func (m *Metrics) IncRiskKind(kind risk.DecisionKind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.riskKindCounts) {
		atomic.AddUint64(&m.riskKindCounts[idx], 1)
	}
}

// IncBracketPlaced counts a placed bracket; incomplete marks a missing leg.
func (m *Metrics) IncBracketPlaced(complete bool) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.bracketsPlaced, 1)
	if !complete {
		atomic.AddUint64(&m.bracketsIncomplete, 1)
	}
}

// IncPositionClosed counts an exchange-detected position closure.
func (m *Metrics) IncPositionClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.positionsClosed, 1)
}

// ObserveDepthLatency measures the depth-handler hot path.
func (m *Metrics) ObserveDepthLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.depthLatency.Observe(d)
}

// ObserveOrderLatency measures bracket placement round trips.
func (m *Metrics) ObserveOrderLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.orderLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	riskCounts := make(map[risk.DecisionKind]uint64)
	for i := range m.riskKindCounts {
		if v := atomic.LoadUint64(&m.riskKindCounts[i]); v > 0 {
			riskCounts[risk.DecisionKind(i)] = v
		}
	}
	return Snapshot{
		EventsProcessed:    atomic.LoadUint64(&m.eventsProcessed),
		DepthEvents:        atomic.LoadUint64(&m.depthEvents),
		TimerEvents:        atomic.LoadUint64(&m.timerEvents),
		InvalidDepth:       atomic.LoadUint64(&m.invalidDepth),
		BuySignals:         atomic.LoadUint64(&m.buySignals),
		SellSignals:        atomic.LoadUint64(&m.sellSignals),
		QualifiedBuys:      atomic.LoadUint64(&m.qualifiedBuys),
		QualifiedSells:     atomic.LoadUint64(&m.qualifiedSells),
		RiskKindCounts:     riskCounts,
		BracketsPlaced:     atomic.LoadUint64(&m.bracketsPlaced),
		BracketsIncomplete: atomic.LoadUint64(&m.bracketsIncomplete),
		PositionsClosed:    atomic.LoadUint64(&m.positionsClosed),
		DepthLatency:       m.depthLatency.Snapshot(),
		OrderLatency:       m.orderLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
