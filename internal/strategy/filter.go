package strategy

import (
	"math"
	"time"
)

// Direction is the side of a qualified signal.
type Direction int8

const (
	DirectionNone Direction = 0
	DirectionBuy  Direction = 1
	DirectionSell Direction = -1
)

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "buy"
	case DirectionSell:
		return "sell"
	default:
		return "none"
	}
}

// FilterConfig tunes signal qualification.
type FilterConfig struct {
	ImbalanceThreshold      float64
	HighConvictionThreshold float64
	ConfirmationTicks       int
	HighConvictionTicks     int
	Cooldown                time.Duration
	MaxSpreadPct            float64
}

// DefaultFilterConfig returns the production thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		ImbalanceThreshold:      0.6,
		HighConvictionThreshold: 0.7,
		ConfirmationTicks:       3,
		HighConvictionTicks:     1,
		Cooldown:                30 * time.Second,
		MaxSpreadPct:            0.05,
	}
}

func (c FilterConfig) withDefaults() FilterConfig {
	def := DefaultFilterConfig()
	if c.ImbalanceThreshold <= 0 {
		c.ImbalanceThreshold = def.ImbalanceThreshold
	}
	if c.HighConvictionThreshold <= 0 {
		c.HighConvictionThreshold = def.HighConvictionThreshold
	}
	if c.ConfirmationTicks <= 0 {
		c.ConfirmationTicks = def.ConfirmationTicks
	}
	if c.HighConvictionTicks <= 0 {
		c.HighConvictionTicks = def.HighConvictionTicks
	}
	if c.Cooldown <= 0 {
		c.Cooldown = def.Cooldown
	}
	if c.MaxSpreadPct <= 0 {
		c.MaxSpreadPct = def.MaxSpreadPct
	}
	return c
}

// Signal is a qualified trade intent.
type Signal struct {
	Direction      Direction
	Imbalance      float64
	Confidence     float64
	HighConviction bool
}

// FilterStats counts what happened to every raw signal.
type FilterStats struct {
	Raw                  uint64
	SpreadFiltered       uint64
	ThresholdFiltered    uint64
	ConfirmationFiltered uint64
	CooldownFiltered     uint64
	Qualified            uint64
}

// SignalFilter turns a stream of smoothed imbalances into rare,
// high-conviction intents using hysteresis and per-direction cooldowns.
type SignalFilter struct {
	cfg FilterConfig

	lastDirection    Direction
	consecutiveTicks int
	lastBuyTime      time.Time
	lastSellTime     time.Time

	stats FilterStats
	now   func() time.Time
}

// NewSignalFilter creates a filter with defaults filled in.
func NewSignalFilter(cfg FilterConfig) *SignalFilter {
	return &SignalFilter{cfg: cfg.withDefaults(), now: time.Now}
}

// WithClock swaps the time source.
func (f *SignalFilter) WithClock(now func() time.Time) *SignalFilter {
	if now != nil {
		f.now = now
	}
	return f
}

// Qualify runs one tick through the gates. The zero Signal plus false
// means no qualified intent this tick.
func (f *SignalFilter) Qualify(imbalance, spreadPct float64) (Signal, bool) {
	f.stats.Raw++

	if spreadPct > f.cfg.MaxSpreadPct {
		f.stats.SpreadFiltered++
		f.consecutiveTicks = 0
		return Signal{}, false
	}

	absImb := math.Abs(imbalance)
	if absImb < f.cfg.ImbalanceThreshold {
		f.stats.ThresholdFiltered++
		f.consecutiveTicks = 0
		return Signal{}, false
	}

	direction := directionOf(imbalance)
	if direction != f.lastDirection {
		f.consecutiveTicks = 0
		f.lastDirection = direction
	}
	f.consecutiveTicks++

	highConviction := absImb >= f.cfg.HighConvictionThreshold
	required := f.cfg.ConfirmationTicks
	if highConviction {
		required = f.cfg.HighConvictionTicks
	}
	if f.consecutiveTicks < required {
		// Streak survives; the next confirming tick may qualify.
		f.stats.ConfirmationFiltered++
		return Signal{}, false
	}

	now := f.now()
	switch direction {
	case DirectionBuy:
		if now.Sub(f.lastBuyTime) < f.cfg.Cooldown {
			f.stats.CooldownFiltered++
			return Signal{}, false
		}
	case DirectionSell:
		if now.Sub(f.lastSellTime) < f.cfg.Cooldown {
			f.stats.CooldownFiltered++
			return Signal{}, false
		}
	}

	if direction == DirectionBuy {
		f.lastBuyTime = now
	} else {
		f.lastSellTime = now
	}
	f.consecutiveTicks = 0
	f.stats.Qualified++

	return Signal{
		Direction:      direction,
		Imbalance:      imbalance,
		Confidence:     f.confidence(absImb),
		HighConviction: highConviction,
	}, true
}

// Stats returns a copy of the counters.
func (f *SignalFilter) Stats() FilterStats { return f.stats }

// ResetStats zeroes the counters.
func (f *SignalFilter) ResetStats() { f.stats = FilterStats{} }

func (f *SignalFilter) confidence(absImb float64) float64 {
	normalized := (absImb - f.cfg.ImbalanceThreshold) / (1 - f.cfg.ImbalanceThreshold)
	return math.Min(1.0, math.Max(0.5, 0.5+normalized*0.5))
}

func directionOf(imbalance float64) Direction {
	if imbalance > 0 {
		return DirectionBuy
	}
	if imbalance < 0 {
		return DirectionSell
	}
	return DirectionNone
}
