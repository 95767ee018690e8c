// Package engine wires the strategy pipeline into a single-threaded
// reactor: depth events flow from the exchange callback through the ring
// into the order book, the imbalance generator, the signal filter, the
// risk gate, and finally bracket placement.
package engine

import (
	"fmt"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/exchange"
	"main/internal/journal"
	"main/internal/notify"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/order"
	"main/internal/recorder"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/state"
	"main/internal/strategy"
	"main/pkg/exception"
)

// State is the engine lifecycle phase.
type State uint8

const (
	StateUninitialized State = iota
	StateConnecting
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "uninitialized"
	}
}

const (
	statsInterval     = 5 * time.Second
	positionInterval  = 2 * time.Second
	heartbeatInterval = 5 * time.Minute

	connectAttempts     = 50
	connectAttemptPause = 100 * time.Millisecond
)

// Options carries the optional sinks.
type Options struct {
	Notifier notify.Notifier
	Journal  *journal.Journal
	Recorder *recorder.Writer
}

// Engine owns every strategy component and the reactor that drives them.
type Engine struct {
	loaded ops.Loaded
	symbol schema.Symbol

	client    exchange.Client
	ring      *bus.Ring
	publisher *bus.Publisher
	loop      *EventLoop

	orderBook  *book.OrderBook
	obi        *strategy.ObiGenerator
	filter     *strategy.SignalFilter
	gate       *risk.Gate
	orders     *order.Manager
	reconciler *state.Reconciler

	metrics  *obs.Metrics
	notifier notify.Notifier
	journal  *journal.Journal
	recorder *recorder.Writer

	state State
}

// New builds an engine bound to a client. Construction acquires every
// component; nothing touches the network until Start.
func New(loaded ops.Loaded, client exchange.Client, opts Options) (*Engine, error) {
	if client == nil {
		return nil, exception.ErrEngineNilComponent
	}
	if len(loaded.File.Trading.Symbols) == 0 {
		return nil, exception.ErrEngineNoSymbols
	}

	ring, err := bus.NewRing(loaded.RingCapacity())
	if err != nil {
		return nil, err
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	e := &Engine{
		loaded:    loaded,
		symbol:    schema.NewSymbol(loaded.File.Trading.Symbols[0]),
		client:    client,
		ring:      ring,
		publisher: bus.NewPublisher(ring),
		loop:      NewEventLoop(ring),
		orderBook: book.New(),
		obi:       strategy.NewObiGenerator(loaded.Obi),
		filter:    strategy.NewSignalFilter(loaded.Filter),
		gate:      risk.NewGate(loaded.Risk),
		metrics:   obs.NewMetrics(),
		notifier:  notifier,
		journal:   opts.Journal,
		recorder:  opts.Recorder,
	}
	e.orders = order.NewManager(client, notifier)
	e.reconciler = state.NewReconciler(client, e.onPositionClosed)

	e.loop.Handle(schema.EventDepth, e.handleDepth)
	e.loop.Handle(schema.EventTimer, e.handleTimer)
	return e, nil
}

// Metrics exposes the engine counters.
func (e *Engine) Metrics() *obs.Metrics { return e.metrics }

// FilterStats returns the signal-filter counters. Read it only when the
// reactor is idle or stopped.
func (e *Engine) FilterStats() strategy.FilterStats { return e.filter.Stats() }

// Publisher exposes the ring publisher counters.
func (e *Engine) Publisher() *bus.Publisher { return e.publisher }

// State returns the lifecycle phase.
func (e *Engine) State() State { return e.state }

// Start connects the exchange client and subscribes the depth stream.
// Failure leaves the engine in Stopped.
func (e *Engine) Start() error {
	if e.state != StateUninitialized {
		return exception.ErrEngineBadState
	}
	e.state = StateConnecting

	if e.loaded.File.Trading.Enabled {
		account, err := e.client.AccountInfo()
		if err != nil {
			e.state = StateStopped
			return errors.Wrap(err, "verify api credentials")
		}
		logs.Infof("connected, available balance: $%.2f", account.AvailableBalance)

		if leverage := e.loaded.File.Trading.Leverage; leverage > 0 {
			if err := e.client.SetLeverage(e.symbol, leverage); err != nil {
				logs.Warnf("set leverage: %+v", err)
			}
		}
	}

	// The callback only packs and pushes; strategy work stays on the
	// reactor thread.
	if err := e.client.SubscribeDepth(e.symbol, func(update exchange.DepthUpdate) {
		e.publisher.PublishDepth(update)
	}); err != nil {
		e.state = StateStopped
		return errors.Wrap(err, "subscribe depth")
	}

	e.client.OnError(func(err error) {
		logs.Errorf("exchange transport: %+v", err)
	})
	e.client.OnReconnect(func() {
		logs.Warn("exchange stream reconnected")
	})

	if err := e.client.Start(); err != nil {
		e.state = StateStopped
		return errors.Wrap(err, "start exchange client")
	}
	for i := 0; i < connectAttempts && !e.client.Connected(); i++ {
		time.Sleep(connectAttemptPause)
	}
	if !e.client.Connected() {
		e.client.Stop()
		e.state = StateStopped
		return exception.ErrEngineConnectFail
	}

	e.loop.AddTimer(schema.TimerStats, statsInterval)
	e.loop.AddTimer(schema.TimerPositionSync, positionInterval)
	e.loop.AddTimer(schema.TimerHeartbeat, heartbeatInterval)

	e.state = StateRunning
	logs.Infof("engine running: symbol=%s trading=%v", e.symbol, e.loaded.File.Trading.Enabled)
	return nil
}

// Run drives the reactor until stop. Call from the strategy goroutine.
func (e *Engine) Run() error {
	if e.state != StateRunning {
		return exception.ErrEngineNotRunning
	}
	e.loop.Run()
	return nil
}

// RequestStop asks the reactor to exit. Safe from a signal handler.
func (e *Engine) RequestStop() {
	e.loop.Stop()
}

// Stop tears everything down in reverse acquisition order and flushes
// final statistics.
func (e *Engine) Stop() {
	if e.state == StateStopped {
		return
	}
	e.loop.Stop()
	e.client.Stop()
	if e.recorder != nil {
		if err := e.recorder.Close(); err != nil {
			logs.Errorf("close recorder: %+v", err)
		}
	}
	if err := e.journal.Close(); err != nil {
		logs.Errorf("close journal: %+v", err)
	}
	e.state = StateStopped
	e.flushFinalStats()
}

func (e *Engine) handleDepth(event schema.Event) {
	started := time.Now()
	depth := &event.Depth

	e.metrics.ObserveEvent(schema.EventDepth)
	if !e.applyDepth(depth) {
		e.metrics.IncInvalidDepth()
		return
	}

	if e.recorder != nil {
		e.recordTick(depth)
	}

	levels := e.loaded.Obi.DepthLevels
	if levels <= 0 {
		levels = 10
	}
	e.obi.Update(e.orderBook.Bids(levels), e.orderBook.Asks(levels))

	mid := e.orderBook.MidPrice().Float()
	e.reconciler.UpdatePrice(depth.Symbol, mid)

	e.metrics.ObserveDepthLatency(time.Since(started))

	if !e.obi.Ready() {
		return
	}

	imbalance := e.obi.Smoothed()
	if abs(imbalance) > e.loaded.RawSignalThreshold() {
		if imbalance > 0 {
			e.metrics.IncRawSignal(strategy.DirectionBuy)
		} else {
			e.metrics.IncRawSignal(strategy.DirectionSell)
		}
	}

	signal, ok := e.filter.Qualify(imbalance, e.orderBook.SpreadPct())
	if !ok {
		return
	}
	e.metrics.IncQualifiedSignal(signal.Direction)
	logs.Infof("qualified %s signal: imb=%.3f conf=%.2f high_conviction=%v",
		signal.Direction, signal.Imbalance, signal.Confidence, signal.HighConviction)

	e.executeSignal(signal, mid)
}

// applyDepth treats each event as a snapshot at its levels: the book is
// cleared and re-populated. If the venue ever switches this stream to
// deltas the clear must be removed, so keep it in one place.
func (e *Engine) applyDepth(depth *schema.DepthEvent) bool {
	if depth.BidCount == 0 || depth.AskCount == 0 {
		return false
	}
	// A crossed update is corrupt; discard and wait for the next one.
	if depth.Bids[0].Price >= depth.Asks[0].Price {
		return false
	}

	e.orderBook.Clear()
	for i := int32(0); i < depth.BidCount; i++ {
		e.orderBook.UpdateBid(depth.Bids[i].Price, depth.Bids[i].Quantity)
	}
	for i := int32(0); i < depth.AskCount; i++ {
		e.orderBook.UpdateAsk(depth.Asks[i].Price, depth.Asks[i].Quantity)
	}
	e.orderBook.Touch(depth.LastUpdateID, time.UnixMilli(depth.EventTimeMs))
	return true
}

func (e *Engine) executeSignal(signal strategy.Signal, price float64) {
	long := signal.Direction == strategy.DirectionBuy

	decision := e.gate.Evaluate(price, long)
	e.metrics.IncRiskKind(decision.Kind)
	if !decision.Approved() {
		logs.Infof("trade rejected: %s", decision.Reason)
		return
	}

	if !e.loaded.File.Trading.Enabled {
		logs.Infof("paper signal: %s size=$%.0f sl=%.1f tp=%.1f",
			signal.Direction, decision.SizeUSD, decision.StopLossPrice, decision.TakeProfitPrice)
		return
	}

	side := schema.OrderSideBuy
	if !long {
		side = schema.OrderSideSell
	}
	rawQty := decision.SizeUSD / price

	started := time.Now()
	result, err := e.orders.PlaceBracket(e.symbol, side, rawQty, price, decision.StopLossPrice, decision.TakeProfitPrice)
	e.metrics.ObserveOrderLatency(time.Since(started))
	if err != nil {
		logs.Errorf("bracket placement: %+v", err)
		return
	}
	if result.Entry == nil {
		return
	}

	e.gate.OnOrderPlaced()
	e.metrics.IncBracketPlaced(result.Complete())
	if err := e.journal.RecordBracket(e.symbol, side, result.Entry.OrigQuantity, price,
		decision.StopLossPrice, decision.TakeProfitPrice, result.Entry.ClientOrderID, result.Complete()); err != nil {
		logs.Errorf("journal bracket: %+v", err)
	}
}

func (e *Engine) handleTimer(event schema.Event) {
	e.metrics.ObserveEvent(schema.EventTimer)
	switch event.Timer.ID {
	case schema.TimerStats:
		e.logStats()
	case schema.TimerPositionSync:
		// Only poll while we believe there is exposure.
		if e.gate.OpenPositions() > 0 || e.reconciler.HasOpenPosition() {
			if err := e.reconciler.Sync(); err != nil {
				logs.Errorf("position sync: %+v", err)
			}
		}
	case schema.TimerHeartbeat:
		logs.Infof("heartbeat: state=%s connected=%v events=%d drop_rate=%.4f",
			e.state, e.client.Connected(), e.loop.EventsProcessed(), e.publisher.DropRate())
	case schema.TimerReconnect:
		if !e.client.Connected() {
			logs.Warn("exchange client disconnected, awaiting client reconnect")
		}
	}
}

func (e *Engine) onPositionClosed(symbol schema.Symbol, pnl float64) {
	e.gate.OnPositionClosed(pnl)
	e.metrics.IncPositionClosed()
	e.notifier.Notify(notify.SeverityInfo, "position closed",
		fmt.Sprintf("%s pnl=%.4f", symbol, pnl))
	if err := e.journal.RecordClosure(symbol, pnl); err != nil {
		logs.Errorf("journal closure: %+v", err)
	}
}

func (e *Engine) recordTick(depth *schema.DepthEvent) {
	tick := recorder.MarketTick{
		TimestampNs: uint64(depth.EventTimeMs) * uint64(time.Millisecond),
		BidPrice:    depth.Bids[0].Price.Float(),
		AskPrice:    depth.Asks[0].Price.Float(),
		BidQty:      depth.Bids[0].Quantity.Float(),
		AskQty:      depth.Asks[0].Quantity.Float(),
	}
	if err := e.recorder.TryAppend(tick); err != nil && err != recorder.ErrQueueFull {
		logs.Errorf("record tick: %+v", err)
	}
}

func (e *Engine) logStats() {
	bid := e.orderBook.BestBid()
	ask := e.orderBook.BestAsk()
	if bid == nil || ask == nil {
		logs.Info("waiting for depth data")
		return
	}
	snapshot := e.metrics.Snapshot()
	logs.Infof("%s | bid=%s ask=%s imb=%+.3f | events=%d depth_lat_avg=%s | raw=%d qualified=%d",
		e.symbol, bid.Price, ask.Price, e.obi.Smoothed(),
		snapshot.EventsProcessed, snapshot.DepthLatency.Avg,
		snapshot.BuySignals+snapshot.SellSignals,
		snapshot.QualifiedBuys+snapshot.QualifiedSells)
}

func (e *Engine) flushFinalStats() {
	snapshot := e.metrics.Snapshot()
	filterStats := e.filter.Stats()
	logs.Infof("final stats: events=%d depth=%d invalid=%d", snapshot.EventsProcessed, snapshot.DepthEvents, snapshot.InvalidDepth)
	logs.Infof("raw signals: buy=%d sell=%d", snapshot.BuySignals, snapshot.SellSignals)
	logs.Infof("filter: spread=%d threshold=%d confirmation=%d cooldown=%d qualified=%d",
		filterStats.SpreadFiltered, filterStats.ThresholdFiltered,
		filterStats.ConfirmationFiltered, filterStats.CooldownFiltered, filterStats.Qualified)
	logs.Infof("trades: brackets=%d incomplete=%d closed=%d daily_pnl=%.2f",
		snapshot.BracketsPlaced, snapshot.BracketsIncomplete, snapshot.PositionsClosed, e.gate.DailyPnl())
	logs.Infof("ring: published=%d dropped=%d drop_rate=%.4f",
		e.publisher.Published(), e.publisher.Dropped(), e.publisher.DropRate())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
