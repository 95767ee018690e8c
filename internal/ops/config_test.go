package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
exchange:
  api_key: key-123
  secret_key: secret-456
  environment: testnet
trading:
  enabled: true
  symbols: [BTCUSDT]
  leverage: 5
strategy:
  obi:
    depth_levels: 10
    imbalance_threshold: 0.3
    smoothing_period: 10
  filter:
    imbalance_threshold: 0.6
    high_conviction_threshold: 0.7
    confirmation_ticks: 3
    cooldown_seconds: 30
    max_spread_pct: 0.05
risk:
  max_position_usd: 100
  stop_loss_pct: 0.25
  take_profit_pct: 0.50
  max_open_positions: 1
  max_daily_loss_usd: 50
  min_order_interval_ms: 30000
  max_daily_trades: 20
engine:
  ring_capacity: 8192
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadResolvesComponents(t *testing.T) {
	loaded, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "key-123", loaded.File.Exchange.APIKey)
	require.Equal(t, []string{"BTCUSDT"}, loaded.File.Trading.Symbols)
	require.Equal(t, 10, loaded.Obi.DepthLevels)
	require.Equal(t, 0.6, loaded.Filter.ImbalanceThreshold)
	require.Equal(t, 30*time.Second, loaded.Filter.Cooldown)
	require.Equal(t, 30*time.Second, loaded.Risk.OrderInterval)
	require.Equal(t, 8192, loaded.RingCapacity())
	require.Equal(t, 0.3, loaded.RawSignalThreshold())
}

func TestLoadRequiresSymbols(t *testing.T) {
	_, err := Load(writeConfig(t, "trading:\n  symbols: []\n"))
	require.ErrorContains(t, err, "symbol")
}

func TestLoadLiveModeRequiresKeys(t *testing.T) {
	_, err := Load(writeConfig(t, `
trading:
  enabled: true
  symbols: [BTCUSDT]
`))
	require.ErrorContains(t, err, "api_key")
}

func TestLoadRejectsBadRingCapacity(t *testing.T) {
	_, err := Load(writeConfig(t, `
trading:
  symbols: [BTCUSDT]
engine:
  ring_capacity: 1000
`))
	require.ErrorContains(t, err, "ring_capacity")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OPUS_API_KEY", "env-key")
	t.Setenv("OPUS_SECRET_KEY", "env-secret")

	loaded, err := Load(writeConfig(t, `
trading:
  enabled: true
  symbols: [ETHUSDT]
`))
	require.NoError(t, err)
	require.Equal(t, "env-key", loaded.File.Exchange.APIKey)
	require.Equal(t, "env-secret", loaded.File.Exchange.SecretKey)
}

func TestLoadDefaultsWhenSectionsMissing(t *testing.T) {
	loaded, err := Load(writeConfig(t, "trading:\n  symbols: [BTCUSDT]\n"))
	require.NoError(t, err)
	require.Equal(t, 4096, loaded.RingCapacity())
	require.Equal(t, 0.3, loaded.RawSignalThreshold())
}
