package binance

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/exchange"
	"main/internal/schema"
	"main/pkg/exception"
)

const (
	depthStreamSuffix = "@depth20@100ms"
	readLimitBytes    = 1 << 20
	pongWait          = 90 * time.Second
)

// depthStream owns the websocket connection and the read loop. Callbacks
// fire on the read goroutine, which is the engine's ingest thread.
type depthStream struct {
	wsURL string

	mu   sync.Mutex
	subs map[schema.Symbol]exchange.DepthCallback

	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
	isConn  atomic.Bool

	onConnect   func()
	onReconnect func()
	onError     exchange.ErrorCallback

	backoff Backoff
}

func newDepthStream(wsURL string) *depthStream {
	return &depthStream{
		wsURL:   wsURL,
		subs:    make(map[schema.Symbol]exchange.DepthCallback),
		backoff: DefaultBackoff(),
	}
}

// subscribe registers a depth callback. Registration must happen before
// start; the combined stream path is fixed at dial time.
func (s *depthStream) subscribe(symbol schema.Symbol, cb exchange.DepthCallback) error {
	if cb == nil {
		return exception.ErrExchangeNilCallback
	}
	if s.running.Load() {
		return exception.ErrExchangeAlreadyLive
	}
	s.mu.Lock()
	s.subs[symbol] = cb
	s.mu.Unlock()
	return nil
}

func (s *depthStream) start() error {
	if !s.running.CompareAndSwap(false, true) {
		return exception.ErrExchangeAlreadyLive
	}
	s.mu.Lock()
	streams := make([]string, 0, len(s.subs))
	for symbol := range s.subs {
		streams = append(streams, strings.ToLower(symbol.String())+depthStreamSuffix)
	}
	s.mu.Unlock()
	if len(streams) == 0 {
		s.running.Store(false)
		return exception.ErrExchangeNilCallback
	}

	url := s.wsURL + "/stream?streams=" + strings.Join(streams, "/")
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, url)
	return nil
}

func (s *depthStream) stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

func (s *depthStream) connected() bool { return s.isConn.Load() }

func (s *depthStream) run(ctx context.Context, url string) {
	defer close(s.done)

	attempt := 0
	firstConnect := true
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			attempt++
			s.reportError(errors.Wrapf(err, "dial %s attempt %d", url, attempt))
			wait := s.backoff.Next(attempt)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		attempt = 0
		s.isConn.Store(true)
		logs.Infof("depth stream connected: %s", url)
		if firstConnect {
			firstConnect = false
			if s.onConnect != nil {
				s.onConnect()
			}
		} else if s.onReconnect != nil {
			s.onReconnect()
		}

		// Close the connection when the context dies so ReadMessage
		// unblocks; the watcher exits with the connection.
		watchDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-watchDone:
			}
		}()

		s.readLoop(ctx, conn)
		close(watchDone)
		s.isConn.Store(false)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		logs.Warn("depth stream disconnected, reconnecting")
	}
}

func (s *depthStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(readLimitBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.reportError(errors.Wrap(err, "read frame"))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame streamFrame
		if err := sonic.ConfigFastest.Unmarshal(payload, &frame); err != nil {
			// Drop the message; the stream stays healthy.
			logs.Errorf("decode depth frame, err: %+v", err)
			continue
		}
		if frame.Data.Symbol == "" && len(frame.Data.Bids) == 0 {
			continue
		}

		update := frame.Data.toDepthUpdate()
		s.mu.Lock()
		cb := s.subs[update.Symbol]
		s.mu.Unlock()
		if cb != nil {
			cb(update)
		}
	}
}

func (s *depthStream) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
		return
	}
	logs.Errorf("depth stream: %+v", err)
}
