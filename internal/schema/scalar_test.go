package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriceRoundTrip(t *testing.T) {
	values := []float64{
		0.00000001,
		0.1,
		0.29,
		1,
		42000.5,
		50123.45678901,
		10_000_000_000,
	}
	for _, v := range values {
		p := PriceFromFloat(v)
		require.Equal(t, v, p.Float(), "value %v", v)
	}
}

func TestPriceRoundTripRaw(t *testing.T) {
	raws := []int64{1, 7, 999, 12_345_678, 5_000_000_000_000, 987_654_321_012_345}
	for _, raw := range raws {
		v := Price(raw).Float()
		require.Equal(t, Price(raw), PriceFromFloat(v), "raw %d", raw)
	}
}

func TestPriceFromFloatEdgeCases(t *testing.T) {
	require.Equal(t, Price(0), PriceFromFloat(math.NaN()))
	require.Equal(t, Price(0), PriceFromFloat(math.Inf(1)))
	require.Equal(t, Price(0), PriceFromFloat(math.Inf(-1)))
	require.Equal(t, Price(math.MaxInt64), PriceFromFloat(1e12))
	require.Equal(t, Price(math.MinInt64), PriceFromFloat(-1e12))
}

func TestPriceValid(t *testing.T) {
	require.False(t, Price(0).Valid())
	require.False(t, Price(-1).Valid())
	require.True(t, Price(1).Valid())
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want Price
	}{
		{"", 0},
		{"null", 0},
		{"0", 0},
		{"1", Price(Scale)},
		{"42000.5", Price(42000*Scale + Scale/2)},
		{"0.00000001", 1},
		{"-2.5", Price(-2*Scale - Scale/2)},
		{"1.123456789", Price(Scale + 12345678)}, // excess digits truncated
	}
	for _, c := range cases {
		require.Equal(t, c.want, ParsePrice(c.in), "input %q", c.in)
	}
}

func TestQuantityFromUSD(t *testing.T) {
	q := QuantityFromUSD(100, 50_000)
	require.Equal(t, QuantityFromFloat(0.002), q)
	require.Equal(t, Quantity(0), QuantityFromUSD(100, 0))
	require.Equal(t, Quantity(0), QuantityFromUSD(100, -5))
}

func TestScalarString(t *testing.T) {
	require.Equal(t, "1.50000000", Price(Scale+Scale/2).String())
	require.Equal(t, "-0.00000001", Quantity(-1).String())
	require.Equal(t, "0.00000000", Price(0).String())
}
