package risk

import (
	"fmt"
	"time"
)

// Hard bounds. These clamp whatever the config file says; a fat-fingered
// config must not be able to widen them.
const (
	MinStopLossPct      = 0.20
	MaxPositionUSDLimit = 500.0
	MinOrderInterval    = 10 * time.Second
	MaxDailyTradesLimit = 20
)

// Config defines the pre-trade limits. Percentages are in percent units
// (0.25 means 0.25%).
type Config struct {
	MaxPositionUSD   float64       `yaml:"max_position_usd"`
	StopLossPct      float64       `yaml:"stop_loss_pct"`
	TakeProfitPct    float64       `yaml:"take_profit_pct"`
	MaxOpenPositions int           `yaml:"max_open_positions"`
	MaxDailyLossUSD  float64       `yaml:"max_daily_loss_usd"`
	OrderInterval    time.Duration `yaml:"min_order_interval"`
	MaxDailyTrades   int           `yaml:"max_daily_trades"`

	// Per-side commission rates, percent units; EstimateFees doubles them
	// for a round trip.
	MakerFeePct float64 `yaml:"maker_fee_pct"`
	TakerFeePct float64 `yaml:"taker_fee_pct"`
}

// DefaultConfig returns the fee-aware production limits.
func DefaultConfig() Config {
	return Config{
		MaxPositionUSD:   100,
		StopLossPct:      0.25,
		TakeProfitPct:    0.50,
		MaxOpenPositions: 1,
		MaxDailyLossUSD:  50,
		OrderInterval:    30 * time.Second,
		MaxDailyTrades:   MaxDailyTradesLimit,
		MakerFeePct:      0.02,
		TakerFeePct:      0.05,
	}
}

func clampConfig(cfg Config) Config {
	def := DefaultConfig()
	if cfg.MaxPositionUSD <= 0 {
		cfg.MaxPositionUSD = def.MaxPositionUSD
	}
	if cfg.StopLossPct <= 0 {
		cfg.StopLossPct = def.StopLossPct
	}
	if cfg.TakeProfitPct <= 0 {
		cfg.TakeProfitPct = def.TakeProfitPct
	}
	if cfg.MaxOpenPositions <= 0 {
		cfg.MaxOpenPositions = def.MaxOpenPositions
	}
	if cfg.MaxDailyLossUSD <= 0 {
		cfg.MaxDailyLossUSD = def.MaxDailyLossUSD
	}
	if cfg.OrderInterval <= 0 {
		cfg.OrderInterval = def.OrderInterval
	}
	if cfg.MaxDailyTrades <= 0 {
		cfg.MaxDailyTrades = def.MaxDailyTrades
	}
	if cfg.MakerFeePct <= 0 {
		cfg.MakerFeePct = def.MakerFeePct
	}
	if cfg.TakerFeePct <= 0 {
		cfg.TakerFeePct = def.TakerFeePct
	}

	if cfg.StopLossPct < MinStopLossPct {
		cfg.StopLossPct = MinStopLossPct
	}
	if cfg.MaxPositionUSD > MaxPositionUSDLimit {
		cfg.MaxPositionUSD = MaxPositionUSDLimit
	}
	if cfg.OrderInterval < MinOrderInterval {
		cfg.OrderInterval = MinOrderInterval
	}
	if cfg.MaxDailyTrades > MaxDailyTradesLimit {
		cfg.MaxDailyTrades = MaxDailyTradesLimit
	}
	return cfg
}

// DecisionKind is the discriminant of a pre-trade evaluation.
type DecisionKind uint16

const (
	DecisionApproved DecisionKind = iota
	DecisionRejectedDailyLoss
	DecisionRejectedMaxTrades
	DecisionRejectedPositionLimit
	DecisionRejectedCooldown
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionApproved:
		return "approved"
	case DecisionRejectedDailyLoss:
		return "rejected_daily_loss"
	case DecisionRejectedMaxTrades:
		return "rejected_max_trades"
	case DecisionRejectedPositionLimit:
		return "rejected_position_limit"
	case DecisionRejectedCooldown:
		return "rejected_cooldown"
	default:
		return "unknown"
	}
}

// Decision is the result of a pre-trade check. On approval SizeUSD and the
// protective prices are populated.
type Decision struct {
	Kind            DecisionKind
	SizeUSD         float64
	StopLossPrice   float64
	TakeProfitPrice float64
	Reason          string
}

// Approved reports whether the trade may proceed.
func (d Decision) Approved() bool { return d.Kind == DecisionApproved }

// Gate applies the hard pre-trade limits. It lives on the strategy thread
// and holds no locks.
type Gate struct {
	cfg Config

	openPositions int
	dailyTrades   int
	dailyPnl      float64
	lastOrderTime time.Time

	now func() time.Time
}

// NewGate clamps the config into the hard bounds and resets daily state.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: clampConfig(cfg), now: time.Now}
}

// WithClock swaps the time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	if now != nil {
		g.now = now
	}
	return g
}

// Evaluate runs the pre-trade checks in order: daily loss, daily trades,
// open positions, cooldown. On approval it sizes the trade and derives the
// protective prices from the entry.
func (g *Gate) Evaluate(entryPrice float64, long bool) Decision {
	if g.dailyPnl <= -g.cfg.MaxDailyLossUSD {
		return Decision{
			Kind:   DecisionRejectedDailyLoss,
			Reason: fmt.Sprintf("daily loss limit reached: $%.2f", -g.dailyPnl),
		}
	}
	if g.dailyTrades >= g.cfg.MaxDailyTrades {
		return Decision{
			Kind:   DecisionRejectedMaxTrades,
			Reason: fmt.Sprintf("max daily trades reached: %d", g.dailyTrades),
		}
	}
	if g.openPositions >= g.cfg.MaxOpenPositions {
		return Decision{
			Kind:   DecisionRejectedPositionLimit,
			Reason: fmt.Sprintf("max open positions: %d", g.openPositions),
		}
	}
	if elapsed := g.now().Sub(g.lastOrderTime); elapsed < g.cfg.OrderInterval {
		remaining := g.cfg.OrderInterval - elapsed
		return Decision{
			Kind:   DecisionRejectedCooldown,
			Reason: fmt.Sprintf("cooldown active: %ds remaining", int(remaining.Seconds())),
		}
	}

	slOffset := entryPrice * (g.cfg.StopLossPct / 100)
	tpOffset := entryPrice * (g.cfg.TakeProfitPct / 100)
	decision := Decision{Kind: DecisionApproved, SizeUSD: g.cfg.MaxPositionUSD}
	if long {
		decision.StopLossPrice = entryPrice - slOffset
		decision.TakeProfitPrice = entryPrice + tpOffset
	} else {
		decision.StopLossPrice = entryPrice + slOffset
		decision.TakeProfitPrice = entryPrice - tpOffset
	}
	return decision
}

// OnOrderPlaced records a placed entry order.
func (g *Gate) OnOrderPlaced() {
	g.lastOrderTime = g.now()
	g.openPositions++
	g.dailyTrades++
}

// OnPositionClosed releases a position slot and books the realized pnl.
func (g *Gate) OnPositionClosed(pnl float64) {
	if g.openPositions > 0 {
		g.openPositions--
	}
	g.dailyPnl += pnl
}

// ResetDaily zeroes the daily pnl and trade count.
func (g *Gate) ResetDaily() {
	g.dailyPnl = 0
	g.dailyTrades = 0
}

// EstimateFees returns the expected round-trip commission for a position.
func (g *Gate) EstimateFees(positionUSD float64, taker bool) float64 {
	rate := g.cfg.MakerFeePct
	if taker {
		rate = g.cfg.TakerFeePct
	}
	return positionUSD * (rate / 100) * 2
}

// DailyPnl returns today's realized pnl.
func (g *Gate) DailyPnl() float64 { return g.dailyPnl }

// DailyTrades returns today's placed-order count.
func (g *Gate) DailyTrades() int { return g.dailyTrades }

// OpenPositions returns the tracked open-position count.
func (g *Gate) OpenPositions() int { return g.openPositions }

// Config returns the clamped limits in effect.
func (g *Gate) Config() Config { return g.cfg }
