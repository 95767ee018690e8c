package order

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"main/internal/exchange"
	"main/internal/notify"
	"main/internal/schema"
	"main/pkg/exception"
)

type recordingNotifier struct {
	titles []string
}

func (n *recordingNotifier) Notify(_ notify.Severity, title, _ string) {
	n.titles = append(n.titles, title)
}

var btc = schema.NewSymbol("BTCUSDT")

func TestQuantityStepTiers(t *testing.T) {
	cases := []struct {
		price float64
		step  float64
	}{
		{50_000, 0.001},
		{10_000, 0.001},
		{5_000, 0.01},
		{500, 0.1},
		{50, 1},
		{5, 10},
	}
	for _, c := range cases {
		require.Equal(t, c.step, QuantityStep(c.price), "price %v", c.price)
	}
}

func TestRoundQuantityFloorsAndBumps(t *testing.T) {
	// $100 at $50k = 0.002 -> floors onto 0.001 step, meets min notional.
	qty, err := RoundQuantity(0.0025, 50_000)
	require.NoError(t, err)
	require.InDelta(t, 0.002, qty, 1e-12)

	// Undersized order bumps up to the minimum notional.
	qty, err = RoundQuantity(0.0001, 50_000)
	require.NoError(t, err)
	require.InDelta(t, 0.002, qty, 1e-12)
	require.GreaterOrEqual(t, qty*50_000, MinNotionalUSD)
}

func TestRoundQuantityRejectsOversizedNotional(t *testing.T) {
	_, err := RoundQuantity(1.0, 50_000)
	require.ErrorIs(t, err, exception.ErrOrderNotionalExceeded)

	_, err = RoundQuantity(1, 0)
	require.ErrorIs(t, err, exception.ErrOrderInvalidPrice)
}

func TestRoundPrice(t *testing.T) {
	require.InDelta(t, 49_875.0, RoundPrice(49_875.04), 1e-9)
	require.InDelta(t, 49_875.1, RoundPrice(49_875.06), 1e-9)
}

func TestPlaceBracketHappyPath(t *testing.T) {
	mock := exchange.NewMock()
	m := NewManager(mock, &recordingNotifier{})

	result, err := m.PlaceBracket(btc, schema.OrderSideBuy, 0.002, 50_000, 49_875.0, 50_250.0)
	require.NoError(t, err)
	require.True(t, result.Complete())

	placed := mock.PlacedOrders()
	require.Len(t, placed, 3)

	entry := placed[0]
	require.Equal(t, schema.OrderTypeMarket, entry.Type)
	require.Equal(t, schema.OrderSideBuy, entry.Side)
	require.InDelta(t, 0.002, entry.Quantity, 1e-12)
	require.True(t, strings.HasPrefix(entry.ClientOrderID, "opus_"))
	require.False(t, entry.ReduceOnly)

	sl := placed[1]
	require.Equal(t, schema.OrderTypeStopMarket, sl.Type)
	require.Equal(t, schema.OrderSideSell, sl.Side)
	require.True(t, sl.ReduceOnly)
	require.InDelta(t, 49_875.0, sl.StopPrice, 1e-9)
	require.True(t, strings.HasSuffix(sl.ClientOrderID, "_SL"))

	tp := placed[2]
	require.Equal(t, schema.OrderTypeTakeProfitMarket, tp.Type)
	require.True(t, tp.ReduceOnly)
	require.InDelta(t, 50_250.0, tp.StopPrice, 1e-9)
	require.True(t, strings.HasSuffix(tp.ClientOrderID, "_TP"))

	require.Len(t, m.PendingOrders(), 3)
}

func TestPlaceBracketEntryFailureAborts(t *testing.T) {
	mock := exchange.NewMock()
	mock.PlaceOrderFn = func(exchange.OrderRequest) (*exchange.OrderInfo, error) {
		return nil, exception.ErrExchangeRejected
	}
	m := NewManager(mock, &recordingNotifier{})

	result, err := m.PlaceBracket(btc, schema.OrderSideBuy, 0.002, 50_000, 49_875, 50_250)
	require.ErrorIs(t, err, exception.ErrOrderEntryFailed)
	require.Nil(t, result.Entry)
	require.Len(t, mock.PlacedOrders(), 1, "no protective legs after entry failure")
}

func TestPlaceBracketNotifiesOnMissingLeg(t *testing.T) {
	mock := exchange.NewMock()
	calls := 0
	mock.PlaceOrderFn = func(req exchange.OrderRequest) (*exchange.OrderInfo, error) {
		calls++
		if req.Type == schema.OrderTypeStopMarket {
			return nil, exception.ErrExchangeRejected
		}
		return &exchange.OrderInfo{OrderID: int64(calls), ClientOrderID: req.ClientOrderID}, nil
	}
	notifier := &recordingNotifier{}
	m := NewManager(mock, notifier)

	result, err := m.PlaceBracket(btc, schema.OrderSideBuy, 0.002, 50_000, 49_875, 50_250)
	require.NoError(t, err)
	require.NotNil(t, result.Entry)
	require.Nil(t, result.StopLoss)
	require.NotNil(t, result.TakeProfit)
	require.False(t, result.Complete())
	require.Contains(t, notifier.titles, "bracket incomplete")
}

func TestPlaceBracketNotionalSafety(t *testing.T) {
	mock := exchange.NewMock()
	notifier := &recordingNotifier{}
	m := NewManager(mock, notifier)

	_, err := m.PlaceBracket(btc, schema.OrderSideBuy, 1.0, 50_000, 49_875, 50_250)
	require.ErrorIs(t, err, exception.ErrOrderNotionalExceeded)
	require.Empty(t, mock.PlacedOrders(), "nothing may reach the venue")
	require.Contains(t, notifier.titles, "order notional safety limit")
}

func TestShortBracketSides(t *testing.T) {
	mock := exchange.NewMock()
	m := NewManager(mock, &recordingNotifier{})

	_, err := m.PlaceBracket(btc, schema.OrderSideSell, 0.002, 50_000, 50_125.0, 49_750.0)
	require.NoError(t, err)
	placed := mock.PlacedOrders()
	require.Len(t, placed, 3)
	require.Equal(t, schema.OrderSideSell, placed[0].Side)
	require.Equal(t, schema.OrderSideBuy, placed[1].Side)
	require.Equal(t, schema.OrderSideBuy, placed[2].Side)
}

func TestClientOrderIDsAreMonotonic(t *testing.T) {
	mock := exchange.NewMock()
	m := NewManager(mock, &recordingNotifier{})

	first, err := m.PlaceMarket(btc, schema.OrderSideBuy, 0.002)
	require.NoError(t, err)
	second, err := m.PlaceMarket(btc, schema.OrderSideBuy, 0.002)
	require.NoError(t, err)
	require.Equal(t, "opus_1", first.ClientOrderID)
	require.Equal(t, "opus_2", second.ClientOrderID)
}

func TestCancelForgetsPending(t *testing.T) {
	mock := exchange.NewMock()
	m := NewManager(mock, &recordingNotifier{})

	info, err := m.PlaceLimit(btc, schema.OrderSideBuy, 0.002, 49_000)
	require.NoError(t, err)
	require.Len(t, m.PendingOrders(), 1)

	require.NoError(t, m.Cancel(btc, info.OrderID))
	require.Empty(t, m.PendingOrders())
	require.Equal(t, []int64{info.OrderID}, mock.CanceledOrders())
}
