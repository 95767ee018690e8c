package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"main/internal/exchange"
	"main/internal/schema"
	"main/pkg/exception"
)

const (
	testnetRestURL = "https://testnet.binancefuture.com"
	testnetWsURL   = "wss://stream.binancefuture.com"
	mainnetRestURL = "https://fapi.binance.com"
	mainnetWsURL   = "wss://fstream.binance.com"

	defaultRecvWindowMs = 5000
	requestTimeout      = 15 * time.Second
)

// Config selects the environment and carries credentials.
type Config struct {
	APIKey    string
	SecretKey string
	Testnet   bool

	// Overrides for tests; empty picks the environment default.
	RestURL string
	WsURL   string
}

// Client is the binance futures implementation of exchange.Client. REST
// calls are signed and synchronous; depth flows over a websocket stream
// that reconnects with backoff.
type Client struct {
	cfg    Config
	http   *http.Client
	stream *depthStream
	nowMs  func() int64
}

// New creates a client; credentials may be empty for market-data-only use.
func New(cfg Config) *Client {
	if cfg.RestURL == "" {
		if cfg.Testnet {
			cfg.RestURL = testnetRestURL
		} else {
			cfg.RestURL = mainnetRestURL
		}
	}
	if cfg.WsURL == "" {
		if cfg.Testnet {
			cfg.WsURL = testnetWsURL
		} else {
			cfg.WsURL = mainnetWsURL
		}
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: requestTimeout},
		stream: newDepthStream(cfg.WsURL),
		nowMs:  func() int64 { return time.Now().UnixMilli() },
	}
}

func (c *Client) AccountInfo() (*exchange.AccountInfo, error) {
	var resp accountResponse
	if err := c.signedRequest(http.MethodGet, "/fapi/v2/account", nil, &resp); err != nil {
		return nil, err
	}
	return resp.toAccountInfo(), nil
}

func (c *Client) Positions() ([]exchange.PositionInfo, error) {
	var resp []positionResponse
	if err := c.signedRequest(http.MethodGet, "/fapi/v2/positionRisk", nil, &resp); err != nil {
		return nil, err
	}
	positions := make([]exchange.PositionInfo, 0, len(resp))
	for _, pos := range resp {
		positions = append(positions, pos.toPositionInfo())
	}
	return positions, nil
}

func (c *Client) AccountTrades(symbol schema.Symbol, limit int) ([]exchange.TradeInfo, error) {
	params := url.Values{}
	params.Set("symbol", symbol.String())
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp []tradeResponse
	if err := c.signedRequest(http.MethodGet, "/fapi/v1/userTrades", params, &resp); err != nil {
		return nil, err
	}
	trades := make([]exchange.TradeInfo, 0, len(resp))
	for _, trade := range resp {
		trades = append(trades, trade.toTradeInfo())
	}
	return trades, nil
}

func (c *Client) PlaceOrder(req exchange.OrderRequest) (*exchange.OrderInfo, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol.String())
	params.Set("side", sideToWire(req.Side))
	params.Set("type", typeToWire(req.Type))
	params.Set("quantity", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	if req.Type == schema.OrderTypeLimit || req.Type == schema.OrderTypeStopLimit {
		params.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
		params.Set("timeInForce", tifToWire(req.TimeInForce))
	}
	if req.ClientOrderID != "" {
		params.Set("newClientOrderId", req.ClientOrderID)
	}
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if req.ClosePosition {
		params.Set("closePosition", "true")
	}

	// Conditional orders go through the algo endpoint keyed on the
	// trigger price; the venue rejects stopPrice there.
	path := "/fapi/v1/order"
	if req.Type.Conditional() {
		path = "/fapi/v1/algo/order"
		params.Set("triggerPrice", strconv.FormatFloat(req.StopPrice, 'f', -1, 64))
	}

	var resp orderResponse
	if err := c.signedRequest(http.MethodPost, path, params, &resp); err != nil {
		return nil, err
	}
	return resp.toOrderInfo(), nil
}

func (c *Client) CancelOrder(symbol schema.Symbol, orderID int64) error {
	params := url.Values{}
	params.Set("symbol", symbol.String())
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	var resp orderResponse
	return c.signedRequest(http.MethodDelete, "/fapi/v1/order", params, &resp)
}

func (c *Client) CancelAllOrders(symbol schema.Symbol) error {
	params := url.Values{}
	params.Set("symbol", symbol.String())
	var resp errorResponse
	return c.signedRequest(http.MethodDelete, "/fapi/v1/allOpenOrders", params, &resp)
}

func (c *Client) SetLeverage(symbol schema.Symbol, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol.String())
	params.Set("leverage", strconv.Itoa(leverage))
	var resp struct {
		Leverage int `json:"leverage"`
	}
	return c.signedRequest(http.MethodPost, "/fapi/v1/leverage", params, &resp)
}

func (c *Client) SubscribeDepth(symbol schema.Symbol, cb exchange.DepthCallback) error {
	return c.stream.subscribe(symbol, cb)
}

func (c *Client) Start() error { return c.stream.start() }
func (c *Client) Stop() { c.stream.stop() }
func (c *Client) Connected() bool { return c.stream.connected() }

func (c *Client) OnReconnect(f func()) { c.stream.onReconnect = f }
func (c *Client) OnWsConnect(f func()) { c.stream.onConnect = f }
func (c *Client) OnError(f exchange.ErrorCallback) { c.stream.onError = f }

func (c *Client) signedRequest(method, path string, params url.Values, out any) error {
	if c.cfg.APIKey == "" || c.cfg.SecretKey == "" {
		return exception.ErrExchangeMissingKeys
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(c.nowMs(), 10))
	params.Set("recvWindow", strconv.Itoa(defaultRecvWindowMs))

	query := params.Encode()
	query += "&signature=" + sign(c.cfg.SecretKey, query)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.RestURL+path+"?"+query, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "rest request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr errorResponse
		if decodeErr := sonic.ConfigFastest.Unmarshal(body, &apiErr); decodeErr == nil && apiErr.Message != "" {
			return errors.Wrapf(exception.ErrExchangeRejected, "%s %s: code=%d msg=%s", method, path, apiErr.Code, apiErr.Message)
		}
		return errors.Wrap(exception.ErrExchangeRejected, fmt.Sprintf("%s %s: http %d", method, path, resp.StatusCode))
	}

	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(exception.ErrExchangeDecodeBody, err.Error())
	}
	return nil
}

var _ exchange.Client = (*Client)(nil)
