package bus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"main/internal/exchange"
	"main/internal/schema"
)

func depthUpdate(mid float64, levels int) exchange.DepthUpdate {
	update := exchange.DepthUpdate{
		Symbol:      schema.NewSymbol("BTCUSDT"),
		EventTimeMs: 1_700_000_000_000,
	}
	for i := 0; i < levels; i++ {
		update.Bids = append(update.Bids, schema.PriceLevel{
			Price:    schema.PriceFromFloat(mid - float64(i) - 1),
			Quantity: schema.QuantityFromFloat(1),
		})
		update.Asks = append(update.Asks, schema.PriceLevel{
			Price:    schema.PriceFromFloat(mid + float64(i) + 1),
			Quantity: schema.QuantityFromFloat(1),
		})
	}
	return update
}

func TestPublisherPacksDepth(t *testing.T) {
	ring, err := NewRing(8)
	require.NoError(t, err)
	pub := NewPublisher(ring)

	require.True(t, pub.PublishDepth(depthUpdate(50_000, 3)))

	e, ok := ring.TryPop()
	require.True(t, ok)
	require.Equal(t, schema.EventDepth, e.Type)
	require.Equal(t, "BTCUSDT", e.Depth.Symbol.String())
	require.Equal(t, int32(3), e.Depth.BidCount)
	require.Equal(t, int32(3), e.Depth.AskCount)
	require.Equal(t, uint32(1), e.Depth.Seq)
	require.Equal(t, schema.PriceFromFloat(49_999), e.Depth.Bids[0].Price)
	require.Equal(t, schema.PriceFromFloat(50_001), e.Depth.Asks[0].Price)
}

func TestPublisherTruncatesToLevelCap(t *testing.T) {
	ring, err := NewRing(8)
	require.NoError(t, err)
	pub := NewPublisher(ring)

	require.True(t, pub.PublishDepth(depthUpdate(50_000, 40)))
	e, ok := ring.TryPop()
	require.True(t, ok)
	require.Equal(t, int32(schema.DepthLevelCap), e.Depth.BidCount)
	require.Equal(t, int32(schema.DepthLevelCap), e.Depth.AskCount)
}

func TestPublisherShutdown(t *testing.T) {
	ring, err := NewRing(4)
	require.NoError(t, err)
	pub := NewPublisher(ring)

	require.True(t, pub.PublishShutdown())
	e, ok := ring.TryPop()
	require.True(t, ok)
	require.Equal(t, schema.EventShutdown, e.Type)
}
