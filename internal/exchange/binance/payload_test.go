package binance

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func TestDepthFrameToFixedPoint(t *testing.T) {
	raw := `{
		"stream": "btcusdt@depth20@100ms",
		"data": {
			"e": "depthUpdate",
			"E": 1700000000123,
			"s": "BTCUSDT",
			"b": [["49999.90", "1.500"], ["49999.80", "0.250"]],
			"a": [["50000.10", "2.000"]]
		}
	}`
	var frame streamFrame
	require.NoError(t, sonic.ConfigFastest.Unmarshal([]byte(raw), &frame))

	update := frame.Data.toDepthUpdate()
	require.Equal(t, "BTCUSDT", update.Symbol.String())
	require.Equal(t, int64(1700000000123), update.EventTimeMs)
	require.Len(t, update.Bids, 2)
	require.Len(t, update.Asks, 1)
	require.Equal(t, schema.ParsePrice("49999.90"), update.Bids[0].Price)
	require.Equal(t, schema.QuantityFromFloat(1.5), update.Bids[0].Quantity)
	require.Equal(t, schema.PriceFromFloat(50000.1), update.Asks[0].Price)
}

func TestWireEnumRoundTrip(t *testing.T) {
	require.Equal(t, "BUY", sideToWire(schema.OrderSideBuy))
	require.Equal(t, "SELL", sideToWire(schema.OrderSideSell))
	require.Equal(t, schema.OrderSideBuy, sideFromWire("BUY"))

	types := []schema.OrderType{
		schema.OrderTypeMarket,
		schema.OrderTypeLimit,
		schema.OrderTypeStopMarket,
		schema.OrderTypeTakeProfitMarket,
	}
	for _, orderType := range types {
		require.Equal(t, orderType, typeFromWire(typeToWire(orderType)), "type %v", orderType)
	}

	require.Equal(t, schema.OrderStatusFilled, statusFromWire("FILLED"))
	require.Equal(t, schema.OrderStatusUnknown, statusFromWire("???"))
	require.Equal(t, "GTC", tifToWire(schema.TimeInForceUnknown))
	require.Equal(t, "IOC", tifToWire(schema.TimeInForceIOC))
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := Backoff{Min: 100, Max: 1000, Factor: 2, Jitter: 0}
	require.Equal(t, int64(100), int64(b.Next(1)))
	require.Equal(t, int64(200), int64(b.Next(2)))
	require.Equal(t, int64(400), int64(b.Next(3)))
	require.Equal(t, int64(1000), int64(b.Next(10)))
}
