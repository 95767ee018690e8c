package obs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"main/internal/risk"
	"main/internal/schema"
	"main/internal/strategy"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()

	m.ObserveEvent(schema.EventDepth)
	m.ObserveEvent(schema.EventDepth)
	m.ObserveEvent(schema.EventTimer)
	m.IncInvalidDepth()
	m.IncRawSignal(strategy.DirectionBuy)
	m.IncRawSignal(strategy.DirectionSell)
	m.IncQualifiedSignal(strategy.DirectionBuy)
	m.IncRiskKind(risk.DecisionApproved)
	m.IncRiskKind(risk.DecisionRejectedCooldown)
	m.IncRiskKind(risk.DecisionRejectedCooldown)
	m.IncBracketPlaced(true)
	m.IncBracketPlaced(false)
	m.IncPositionClosed()

	s := m.Snapshot()
	require.Equal(t, uint64(3), s.EventsProcessed)
	require.Equal(t, uint64(2), s.DepthEvents)
	require.Equal(t, uint64(1), s.TimerEvents)
	require.Equal(t, uint64(1), s.InvalidDepth)
	require.Equal(t, uint64(1), s.BuySignals)
	require.Equal(t, uint64(1), s.QualifiedBuys)
	require.Equal(t, uint64(1), s.RiskKindCounts[risk.DecisionApproved])
	require.Equal(t, uint64(2), s.RiskKindCounts[risk.DecisionRejectedCooldown])
	require.Equal(t, uint64(2), s.BracketsPlaced)
	require.Equal(t, uint64(1), s.BracketsIncomplete)
	require.Equal(t, uint64(1), s.PositionsClosed)
}

func TestLatencyStats(t *testing.T) {
	var l LatencyStats
	require.Equal(t, LatencySnapshot{}, l.Snapshot())

	l.Observe(10 * time.Microsecond)
	l.Observe(30 * time.Microsecond)
	l.Observe(20 * time.Microsecond)
	l.Observe(-time.Second) // ignored

	s := l.Snapshot()
	require.Equal(t, uint64(3), s.Count)
	require.Equal(t, 10*time.Microsecond, s.Min)
	require.Equal(t, 30*time.Microsecond, s.Max)
	require.Equal(t, 20*time.Microsecond, s.Avg)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveEvent(schema.EventDepth)
	m.IncInvalidDepth()
	m.IncRiskKind(risk.DecisionApproved)
	require.Equal(t, Snapshot{}, m.Snapshot())
}
