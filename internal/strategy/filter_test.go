package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ at time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{at: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) now() time.Time { return c.at }
func (c *fakeClock) advance(d time.Duration) { c.at = c.at.Add(d) }

func newTestFilter(clock *fakeClock) *SignalFilter {
	return NewSignalFilter(DefaultFilterConfig()).WithClock(clock.now)
}

func TestFilterConfirmationTicks(t *testing.T) {
	clock := newFakeClock()
	f := newTestFilter(clock)

	// Moderate imbalance (below high conviction) needs 3 confirming ticks.
	for i := 0; i < 2; i++ {
		_, ok := f.Qualify(0.65, 0.002)
		require.False(t, ok, "tick %d must not qualify", i+1)
		clock.advance(100 * time.Millisecond)
	}
	sig, ok := f.Qualify(0.65, 0.002)
	require.True(t, ok)
	require.Equal(t, DirectionBuy, sig.Direction)
	require.False(t, sig.HighConviction)
	require.Equal(t, uint64(1), f.Stats().Qualified)
	require.Equal(t, uint64(2), f.Stats().ConfirmationFiltered)
}

func TestFilterHighConvictionIsInstant(t *testing.T) {
	clock := newFakeClock()
	f := newTestFilter(clock)

	sig, ok := f.Qualify(0.8, 0.002)
	require.True(t, ok)
	require.True(t, sig.HighConviction)
	require.Equal(t, DirectionBuy, sig.Direction)
}

func TestFilterSpreadGate(t *testing.T) {
	clock := newFakeClock()
	f := newTestFilter(clock)

	// 0.12% spread exceeds the 0.05% gate regardless of imbalance.
	for i := 0; i < 10; i++ {
		_, ok := f.Qualify(0.9, 0.12)
		require.False(t, ok)
		clock.advance(100 * time.Millisecond)
	}
	require.Equal(t, uint64(10), f.Stats().SpreadFiltered)
	require.Zero(t, f.Stats().Qualified)
}

func TestFilterThresholdGateResetsStreak(t *testing.T) {
	clock := newFakeClock()
	f := newTestFilter(clock)

	_, _ = f.Qualify(0.65, 0.002)
	_, _ = f.Qualify(0.65, 0.002)
	// Sub-threshold tick resets the streak, so two more ticks don't qualify.
	_, ok := f.Qualify(0.3, 0.002)
	require.False(t, ok)
	_, ok = f.Qualify(0.65, 0.002)
	require.False(t, ok)
	_, ok = f.Qualify(0.65, 0.002)
	require.False(t, ok)
	_, ok = f.Qualify(0.65, 0.002)
	require.True(t, ok)
}

func TestFilterCooldownSuppressesSameDirection(t *testing.T) {
	clock := newFakeClock()
	f := newTestFilter(clock)

	_, ok := f.Qualify(0.8, 0.002)
	require.True(t, ok)

	// Identical flow inside the cooldown window stays suppressed.
	for i := 0; i < 10; i++ {
		clock.advance(time.Second)
		_, ok := f.Qualify(0.8, 0.002)
		require.False(t, ok)
	}
	require.Equal(t, uint64(10), f.Stats().CooldownFiltered)

	clock.advance(30 * time.Second)
	_, ok = f.Qualify(0.8, 0.002)
	require.True(t, ok)
}

func TestFilterCooldownIsPerDirection(t *testing.T) {
	clock := newFakeClock()
	f := newTestFilter(clock)

	_, ok := f.Qualify(0.8, 0.002)
	require.True(t, ok)

	// Opposite direction has its own timer and fires immediately.
	clock.advance(time.Second)
	sig, ok := f.Qualify(-0.8, 0.002)
	require.True(t, ok)
	require.Equal(t, DirectionSell, sig.Direction)
}

func TestFilterDirectionFlipResetsStreak(t *testing.T) {
	clock := newFakeClock()
	f := newTestFilter(clock)

	// Two strong bullish ticks: the first qualifies instantly.
	sig, ok := f.Qualify(0.8, 0.002)
	require.True(t, ok)
	require.Equal(t, DirectionBuy, sig.Direction)
	clock.advance(100 * time.Millisecond)
	_, ok = f.Qualify(0.8, 0.002) // buy cooldown active
	require.False(t, ok)

	// Flip to strong bearish: qualifies on the first bearish tick.
	clock.advance(100 * time.Millisecond)
	sig, ok = f.Qualify(-0.8, 0.002)
	require.True(t, ok)
	require.Equal(t, DirectionSell, sig.Direction)
}

func TestFilterCooldownProperty(t *testing.T) {
	clock := newFakeClock()
	f := newTestFilter(clock)

	var lastBuy time.Time
	for i := 0; i < 600; i++ {
		if sig, ok := f.Qualify(0.8, 0.002); ok && sig.Direction == DirectionBuy {
			if !lastBuy.IsZero() {
				require.GreaterOrEqual(t, clock.now().Sub(lastBuy), 30*time.Second)
			}
			lastBuy = clock.now()
		}
		clock.advance(500 * time.Millisecond)
	}
	require.Greater(t, f.Stats().Qualified, uint64(1))
}

func TestFilterConfidence(t *testing.T) {
	clock := newFakeClock()
	f := newTestFilter(clock)

	sig, ok := f.Qualify(1.0, 0.002)
	require.True(t, ok)
	require.InDelta(t, 1.0, sig.Confidence, 1e-12)

	clock.advance(time.Minute)
	sig, ok = f.Qualify(-0.8, 0.002)
	require.True(t, ok)
	require.InDelta(t, 0.75, sig.Confidence, 1e-12)
}
