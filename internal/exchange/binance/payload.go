package binance

import (
	"strconv"

	"main/internal/exchange"
	"main/internal/schema"
)

type accountResponse struct {
	TotalWalletBalance    string `json:"totalWalletBalance"`
	AvailableBalance      string `json:"availableBalance"`
	TotalUnrealizedProfit string `json:"totalUnrealizedProfit"`
	TotalMarginBalance    string `json:"totalMarginBalance"`
}

type positionResponse struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	Leverage         string `json:"leverage"`
	LiquidationPrice string `json:"liquidationPrice"`
}

type tradeResponse struct {
	Symbol      string `json:"symbol"`
	ID          int64  `json:"id"`
	OrderID     int64  `json:"orderId"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	Qty         string `json:"qty"`
	RealizedPnl string `json:"realizedPnl"`
	Commission  string `json:"commission"`
	Time        int64  `json:"time"`
}

type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	AvgPrice      string `json:"avgPrice"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	UpdateTime    int64  `json:"updateTime"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

// depthMessage is the partial-book depth payload inside a combined stream
// frame. Levels arrive as [price, quantity] string pairs.
type depthMessage struct {
	EventType    string      `json:"e"`
	EventTime    int64       `json:"E"`
	Symbol       string      `json:"s"`
	LastUpdateID uint64      `json:"lastUpdateId"`
	Bids         [][2]string `json:"b"`
	Asks         [][2]string `json:"a"`
}

type streamFrame struct {
	Stream string       `json:"stream"`
	Data   depthMessage `json:"data"`
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func (r accountResponse) toAccountInfo() *exchange.AccountInfo {
	return &exchange.AccountInfo{
		TotalWalletBalance:    parseFloat(r.TotalWalletBalance),
		AvailableBalance:      parseFloat(r.AvailableBalance),
		TotalUnrealizedProfit: parseFloat(r.TotalUnrealizedProfit),
		TotalMarginBalance:    parseFloat(r.TotalMarginBalance),
	}
}

func (r positionResponse) toPositionInfo() exchange.PositionInfo {
	return exchange.PositionInfo{
		Symbol:           schema.NewSymbol(r.Symbol),
		Quantity:         parseFloat(r.PositionAmt),
		EntryPrice:       parseFloat(r.EntryPrice),
		UnrealizedProfit: parseFloat(r.UnRealizedProfit),
		Leverage:         parseFloat(r.Leverage),
		LiquidationPrice: parseFloat(r.LiquidationPrice),
	}
}

func (r tradeResponse) toTradeInfo() exchange.TradeInfo {
	return exchange.TradeInfo{
		Symbol:      schema.NewSymbol(r.Symbol),
		TradeID:     r.ID,
		OrderID:     r.OrderID,
		Side:        sideFromWire(r.Side),
		Price:       parseFloat(r.Price),
		Quantity:    parseFloat(r.Qty),
		RealizedPnl: parseFloat(r.RealizedPnl),
		Commission:  parseFloat(r.Commission),
		TimeMs:      r.Time,
	}
}

func (r orderResponse) toOrderInfo() *exchange.OrderInfo {
	return &exchange.OrderInfo{
		OrderID:       r.OrderID,
		ClientOrderID: r.ClientOrderID,
		Symbol:        schema.NewSymbol(r.Symbol),
		Side:          sideFromWire(r.Side),
		Type:          typeFromWire(r.Type),
		Status:        statusFromWire(r.Status),
		Price:         parseFloat(r.Price),
		AvgPrice:      parseFloat(r.AvgPrice),
		OrigQuantity:  parseFloat(r.OrigQty),
		ExecutedQty:   parseFloat(r.ExecutedQty),
		UpdateTimeMs:  r.UpdateTime,
	}
}

// toDepthUpdate converts wire strings to fixed point. This is the last
// point where prices exist as decimal text.
func (m depthMessage) toDepthUpdate() exchange.DepthUpdate {
	update := exchange.DepthUpdate{
		Symbol:       schema.NewSymbol(m.Symbol),
		LastUpdateID: m.LastUpdateID,
		EventTimeMs:  m.EventTime,
		Bids:         make([]schema.PriceLevel, 0, len(m.Bids)),
		Asks:         make([]schema.PriceLevel, 0, len(m.Asks)),
	}
	for _, row := range m.Bids {
		update.Bids = append(update.Bids, schema.PriceLevel{
			Price:    schema.ParsePrice(row[0]),
			Quantity: schema.ParseQuantity(row[1]),
		})
	}
	for _, row := range m.Asks {
		update.Asks = append(update.Asks, schema.PriceLevel{
			Price:    schema.ParsePrice(row[0]),
			Quantity: schema.ParseQuantity(row[1]),
		})
	}
	return update
}

func sideToWire(side schema.OrderSide) string {
	if side == schema.OrderSideSell {
		return "SELL"
	}
	return "BUY"
}

func sideFromWire(s string) schema.OrderSide {
	switch s {
	case "BUY":
		return schema.OrderSideBuy
	case "SELL":
		return schema.OrderSideSell
	default:
		return schema.OrderSideUnknown
	}
}

func typeToWire(orderType schema.OrderType) string {
	switch orderType {
	case schema.OrderTypeLimit:
		return "LIMIT"
	case schema.OrderTypeStopMarket:
		return "STOP_MARKET"
	case schema.OrderTypeStopLimit:
		return "STOP"
	case schema.OrderTypeTakeProfit:
		return "TAKE_PROFIT"
	case schema.OrderTypeTakeProfitMarket:
		return "TAKE_PROFIT_MARKET"
	default:
		return "MARKET"
	}
}

func typeFromWire(s string) schema.OrderType {
	switch s {
	case "LIMIT":
		return schema.OrderTypeLimit
	case "MARKET":
		return schema.OrderTypeMarket
	case "STOP_MARKET":
		return schema.OrderTypeStopMarket
	case "STOP":
		return schema.OrderTypeStopLimit
	case "TAKE_PROFIT":
		return schema.OrderTypeTakeProfit
	case "TAKE_PROFIT_MARKET":
		return schema.OrderTypeTakeProfitMarket
	default:
		return schema.OrderTypeUnknown
	}
}

func statusFromWire(s string) schema.OrderStatus {
	switch s {
	case "NEW":
		return schema.OrderStatusNew
	case "PARTIALLY_FILLED":
		return schema.OrderStatusPartiallyFilled
	case "FILLED":
		return schema.OrderStatusFilled
	case "CANCELED":
		return schema.OrderStatusCanceled
	case "REJECTED":
		return schema.OrderStatusRejected
	case "EXPIRED":
		return schema.OrderStatusExpired
	default:
		return schema.OrderStatusUnknown
	}
}

func tifToWire(tif schema.TimeInForce) string {
	switch tif {
	case schema.TimeInForceIOC:
		return "IOC"
	case schema.TimeInForceFOK:
		return "FOK"
	case schema.TimeInForceGTX:
		return "GTX"
	default:
		return "GTC"
	}
}
