package strategy

import "main/internal/schema"

// ObiConfig controls imbalance calculation and smoothing.
type ObiConfig struct {
	DepthLevels     int
	SmoothingPeriod int
}

// DefaultObiConfig returns the production defaults.
func DefaultObiConfig() ObiConfig {
	return ObiConfig{DepthLevels: 10, SmoothingPeriod: 10}
}

func (c ObiConfig) withDefaults() ObiConfig {
	if c.DepthLevels <= 0 {
		c.DepthLevels = 10
	}
	if c.SmoothingPeriod <= 0 {
		c.SmoothingPeriod = 10
	}
	return c
}

// Imbalance returns the plain bid/ask volume ratio in [-1, +1].
func Imbalance(bids, asks []schema.PriceLevel, levels int) float64 {
	if len(bids) == 0 || len(asks) == 0 {
		return 0
	}
	n := levels
	if len(bids) < n {
		n = len(bids)
	}
	if len(asks) < n {
		n = len(asks)
	}

	var bidVolume, askVolume float64
	for i := 0; i < n; i++ {
		bidVolume += bids[i].Quantity.Float()
		askVolume += asks[i].Quantity.Float()
	}

	total := bidVolume + askVolume
	if total == 0 {
		return 0
	}
	return (bidVolume - askVolume) / total
}

// WeightedImbalance weights each level by its distance from the top:
// level i carries weight 1 - i/levels.
func WeightedImbalance(bids, asks []schema.PriceLevel, levels int) float64 {
	if len(bids) == 0 || len(asks) == 0 || levels <= 0 {
		return 0
	}
	n := levels
	if len(bids) < n {
		n = len(bids)
	}
	if len(asks) < n {
		n = len(asks)
	}

	var bidVolume, askVolume float64
	for i := 0; i < n; i++ {
		weight := 1 - float64(i)/float64(levels)
		bidVolume += bids[i].Quantity.Float() * weight
		askVolume += asks[i].Quantity.Float() * weight
	}

	total := bidVolume + askVolume
	if total == 0 {
		return 0
	}
	return (bidVolume - askVolume) / total
}

// MicroPrice is the volume-weighted mid: price leans toward the thinner side.
func MicroPrice(bestBid, bestAsk schema.PriceLevel) float64 {
	bidQty := bestBid.Quantity.Float()
	askQty := bestAsk.Quantity.Float()
	total := bidQty + askQty
	if total == 0 {
		return (bestBid.Price.Float() + bestAsk.Price.Float()) / 2
	}
	return (bestBid.Price.Float()*askQty + bestAsk.Price.Float()*bidQty) / total
}

// ObiGenerator maintains the EMA-smoothed order-book imbalance.
type ObiGenerator struct {
	cfg      ObiConfig
	smoothed float64
	raw      float64
	samples  uint64
}

// NewObiGenerator creates a generator with defaults filled in.
func NewObiGenerator(cfg ObiConfig) *ObiGenerator {
	return &ObiGenerator{cfg: cfg.withDefaults()}
}

// Update folds a new book snapshot into the smoothed imbalance.
func (g *ObiGenerator) Update(bids, asks []schema.PriceLevel) {
	raw := WeightedImbalance(bids, asks, g.cfg.DepthLevels)

	if g.samples == 0 {
		g.smoothed = raw
	} else {
		alpha := 2.0 / float64(g.cfg.SmoothingPeriod+1)
		g.smoothed = alpha*raw + (1-alpha)*g.smoothed
	}
	g.samples++
	g.raw = raw
}

// Smoothed returns the EMA-smoothed imbalance.
func (g *ObiGenerator) Smoothed() float64 { return g.smoothed }

// Raw returns the last unsmoothed imbalance.
func (g *ObiGenerator) Raw() float64 { return g.raw }

// SampleCount returns the number of updates folded in.
func (g *ObiGenerator) SampleCount() uint64 { return g.samples }

// Ready reports whether enough samples exist to trust the EMA.
func (g *ObiGenerator) Ready() bool {
	return g.samples >= uint64(g.cfg.SmoothingPeriod)
}

// Reset drops all accumulated state.
func (g *ObiGenerator) Reset() {
	g.smoothed = 0
	g.raw = 0
	g.samples = 0
}
