package schema

// OrderSide describes order direction.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

// Opposite returns the closing side for a position opened on this side.
func (s OrderSide) Opposite() OrderSide {
	switch s {
	case OrderSideBuy:
		return OrderSideSell
	case OrderSideSell:
		return OrderSideBuy
	default:
		return OrderSideUnknown
	}
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "buy"
	case OrderSideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStopMarket
	OrderTypeStopLimit
	OrderTypeTakeProfit
	OrderTypeTakeProfitMarket
)

// Conditional reports whether the order triggers off a stop price and must
// be routed to the venue's algo-order endpoint.
func (t OrderType) Conditional() bool {
	switch t {
	case OrderTypeStopMarket, OrderTypeStopLimit, OrderTypeTakeProfit, OrderTypeTakeProfitMarket:
		return true
	default:
		return false
	}
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	case OrderTypeStopMarket:
		return "stop_market"
	case OrderTypeStopLimit:
		return "stop_limit"
	case OrderTypeTakeProfit:
		return "take_profit"
	case OrderTypeTakeProfitMarket:
		return "take_profit_market"
	default:
		return "unknown"
	}
}

// PositionSide distinguishes hedge-mode legs; Both is one-way mode.
type PositionSide uint16

const (
	PositionSideBoth PositionSide = iota
	PositionSideLong
	PositionSideShort
)

// OrderStatus describes the venue's view of an order.
type OrderStatus uint16

const (
	OrderStatusUnknown OrderStatus = iota
	OrderStatusNew
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusRejected
	OrderStatusExpired
)

// TimeInForce describes order time-in-force.
type TimeInForce uint16

const (
	TimeInForceUnknown TimeInForce = iota
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
	TimeInForceGTX
)
