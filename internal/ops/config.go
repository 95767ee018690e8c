package ops

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"main/internal/risk"
	"main/internal/strategy"
)

// FileConfig mirrors the YAML config layout.
type FileConfig struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Trading  TradingConfig  `yaml:"trading"`
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Profile  ProfileConfig  `yaml:"profiling"`
	Journal  JournalConfig  `yaml:"journal"`
	Recorder RecorderConfig `yaml:"recorder"`
	Engine   EngineConfig   `yaml:"engine"`
}

// ExchangeConfig carries venue credentials and environment selection.
type ExchangeConfig struct {
	APIKey      string `yaml:"api_key"`
	SecretKey   string `yaml:"secret_key"`
	Environment string `yaml:"environment"` // testnet | mainnet
}

// TradingConfig selects what to trade.
type TradingConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Symbols  []string `yaml:"symbols"`
	Leverage int      `yaml:"leverage"`
}

// StrategyConfig groups the signal-path settings.
type StrategyConfig struct {
	Obi    ObiConfig    `yaml:"obi"`
	Filter FilterConfig `yaml:"filter"`
}

// ObiConfig mirrors strategy.obi keys.
type ObiConfig struct {
	DepthLevels        int     `yaml:"depth_levels"`
	ImbalanceThreshold float64 `yaml:"imbalance_threshold"`
	SmoothingPeriod    int     `yaml:"smoothing_period"`
}

// FilterConfig mirrors strategy.filter keys.
type FilterConfig struct {
	ImbalanceThreshold      float64 `yaml:"imbalance_threshold"`
	HighConvictionThreshold float64 `yaml:"high_conviction_threshold"`
	ConfirmationTicks       int     `yaml:"confirmation_ticks"`
	CooldownSeconds         int     `yaml:"cooldown_seconds"`
	MaxSpreadPct            float64 `yaml:"max_spread_pct"`
}

// RiskConfig mirrors the risk keys; durations are milliseconds in the file.
type RiskConfig struct {
	MaxPositionUSD     float64 `yaml:"max_position_usd"`
	StopLossPct        float64 `yaml:"stop_loss_pct"`
	TakeProfitPct      float64 `yaml:"take_profit_pct"`
	MaxOpenPositions   int     `yaml:"max_open_positions"`
	MaxDailyLossUSD    float64 `yaml:"max_daily_loss_usd"`
	MinOrderIntervalMs int     `yaml:"min_order_interval_ms"`
	MaxDailyTrades     int     `yaml:"max_daily_trades"`
}

// NotifyConfig selects the notification sink.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ProfileConfig controls continuous profiling.
type ProfileConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ServerAddress string `yaml:"server_address"`
	Application   string `yaml:"application_name"`
}

// JournalConfig controls the optional postgres trade journal.
type JournalConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RecorderConfig controls binary tick recording.
type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EngineConfig holds reactor tunables.
type EngineConfig struct {
	RingCapacity int `yaml:"ring_capacity"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	File   FileConfig
	Obi    strategy.ObiConfig
	Filter strategy.FilterConfig
	Risk   risk.Config
}

// Load reads a YAML config file, applies env overrides, validates, and
// resolves the component configs.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	return parse(data)
}

func parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	overrideWithEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Loaded{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return resolve(cfg), nil
}

// overrideWithEnv lets the environment supply secrets so they stay out of
// the config file.
func overrideWithEnv(cfg *FileConfig) {
	if key := os.Getenv("OPUS_API_KEY"); key != "" {
		cfg.Exchange.APIKey = key
	}
	if secret := os.Getenv("OPUS_SECRET_KEY"); secret != "" {
		cfg.Exchange.SecretKey = secret
	}
	if url := os.Getenv("OPUS_WEBHOOK_URL"); url != "" {
		cfg.Notify.WebhookURL = url
	}
}

// Validate checks configuration validity. It rejects missing credentials
// with live trading enabled, an unknown environment, a missing, empty or
// over-long symbol, a ring capacity that is not a power of two, and an
// enabled recorder or journal without its path or database.
func (c FileConfig) Validate() error {
	switch c.Exchange.Environment {
	case "", "testnet", "mainnet":
	default:
		return fmt.Errorf("unknown exchange environment: %s", c.Exchange.Environment)
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("at least one trading symbol is required")
	}
	for _, symbol := range c.Trading.Symbols {
		if symbol == "" || len(symbol) > 15 {
			return fmt.Errorf("invalid symbol: %q", symbol)
		}
	}
	if c.Trading.Enabled && (c.Exchange.APIKey == "" || c.Exchange.SecretKey == "") {
		return fmt.Errorf("live trading requires exchange.api_key and exchange.secret_key")
	}
	if c.Engine.RingCapacity != 0 {
		capacity := c.Engine.RingCapacity
		if capacity < 2 || capacity&(capacity-1) != 0 {
			return fmt.Errorf("engine.ring_capacity must be a power of two >= 2")
		}
	}
	if c.Recorder.Enabled && c.Recorder.Path == "" {
		return fmt.Errorf("recorder.path is required when recorder is enabled")
	}
	if c.Journal.Enabled && c.Journal.Database == "" {
		return fmt.Errorf("journal.database is required when journal is enabled")
	}
	return nil
}

func resolve(cfg FileConfig) Loaded {
	loaded := Loaded{
		File: cfg,
		Obi: strategy.ObiConfig{
			DepthLevels:     cfg.Strategy.Obi.DepthLevels,
			SmoothingPeriod: cfg.Strategy.Obi.SmoothingPeriod,
		},
		Filter: strategy.FilterConfig{
			ImbalanceThreshold:      cfg.Strategy.Filter.ImbalanceThreshold,
			HighConvictionThreshold: cfg.Strategy.Filter.HighConvictionThreshold,
			ConfirmationTicks:       cfg.Strategy.Filter.ConfirmationTicks,
			Cooldown:                time.Duration(cfg.Strategy.Filter.CooldownSeconds) * time.Second,
			MaxSpreadPct:            cfg.Strategy.Filter.MaxSpreadPct,
		},
		Risk: risk.Config{
			MaxPositionUSD:   cfg.Risk.MaxPositionUSD,
			StopLossPct:      cfg.Risk.StopLossPct,
			TakeProfitPct:    cfg.Risk.TakeProfitPct,
			MaxOpenPositions: cfg.Risk.MaxOpenPositions,
			MaxDailyLossUSD:  cfg.Risk.MaxDailyLossUSD,
			OrderInterval:    time.Duration(cfg.Risk.MinOrderIntervalMs) * time.Millisecond,
			MaxDailyTrades:   cfg.Risk.MaxDailyTrades,
		},
	}
	return loaded
}

// RawSignalThreshold returns the obi threshold used for raw-signal stats.
func (l Loaded) RawSignalThreshold() float64 {
	if l.File.Strategy.Obi.ImbalanceThreshold > 0 {
		return l.File.Strategy.Obi.ImbalanceThreshold
	}
	return 0.3
}

// RingCapacity returns the configured ring size or the default.
func (l Loaded) RingCapacity() int {
	if l.File.Engine.RingCapacity > 0 {
		return l.File.Engine.RingCapacity
	}
	return 4096
}
