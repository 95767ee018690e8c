package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	pyroscope "github.com/grafana/pyroscope-go"

	"main/internal/engine"
	"main/internal/exchange"
	"main/internal/exchange/binance"
	"main/internal/journal"
	"main/internal/notify"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/schema"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	mode := flag.String("mode", "", "run mode: replay | arb-backtest (default: live)")
	file := flag.String("file", "", "recorded tick file for replay mode")
	speed := flag.Float64("speed", 1, "replay speed multiplier, 0 = max")
	flag.Parse()

	configPath := defaultConfigPath
	if flag.NArg() > 0 {
		configPath = flag.Arg(0)
	}

	if err := run(configPath, *mode, *file, *speed); err != nil {
		log.Printf("trader: %v", err)
		os.Exit(1)
	}
}

func run(configPath, mode, file string, speed float64) error {
	loaded, err := ops.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	switch mode {
	case "":
		return runLive(loaded)
	case "replay":
		if file == "" {
			return fmt.Errorf("replay mode requires --file")
		}
		return runReplay(loaded, file, speed)
	case "arb-backtest":
		return fmt.Errorf("arb-backtest mode is not supported in this build")
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func runLive(loaded ops.Loaded) error {
	if cfg := loaded.File.Profile; cfg.Enabled {
		app := cfg.Application
		if app == "" {
			app = "opus-trader"
		}
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: app,
			ServerAddress:   cfg.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Printf("pyroscope start failed: %v", err)
		} else {
			defer profiler.Stop()
		}
	}

	client := binance.New(binance.Config{
		APIKey:    loaded.File.Exchange.APIKey,
		SecretKey: loaded.File.Exchange.SecretKey,
		Testnet:   loaded.File.Exchange.Environment != "mainnet",
	})

	opts, err := buildOptions(loaded)
	if err != nil {
		return err
	}

	e, err := engine.New(loaded, client, opts)
	if err != nil {
		return err
	}

	if addr := loaded.File.Metrics.ListenAddr; addr != "" {
		go obs.Serve(addr, obs.NewCollector(e.Metrics(), e.Publisher()))
	}

	if err := e.Start(); err != nil {
		return err
	}
	stopOnSignal(e)

	err = e.Run()
	e.Stop()
	return err
}

// runReplay drives recorded ticks through the same engine pipeline using
// the scripted client; timestamp order is preserved by the recording.
func runReplay(loaded ops.Loaded, file string, speed float64) error {
	loaded.File.Trading.Enabled = false

	mock := exchange.NewMock()
	e, err := engine.New(loaded, mock, engine.Options{})
	if err != nil {
		return err
	}
	if err := e.Start(); err != nil {
		return err
	}

	playback, err := recorder.NewPlayback(recorder.PlaybackConfig{Path: file, Speed: speed})
	if err != nil {
		return err
	}

	symbol := schema.NewSymbol(loaded.File.Trading.Symbols[0])
	done := make(chan error, 1)
	go func() {
		done <- e.Run()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigC := make(chan os.Signal, 1)
		signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
		<-sigC
		cancel()
	}()

	replayErr := playback.Run(ctx, func(tick recorder.MarketTick) error {
		mock.EmitDepth(exchange.DepthUpdate{
			Symbol:      symbol,
			EventTimeMs: int64(tick.TimestampNs / 1_000_000),
			Bids: []schema.PriceLevel{{
				Price:    schema.PriceFromFloat(tick.BidPrice),
				Quantity: schema.QuantityFromFloat(tick.BidQty),
			}},
			Asks: []schema.PriceLevel{{
				Price:    schema.PriceFromFloat(tick.AskPrice),
				Quantity: schema.QuantityFromFloat(tick.AskQty),
			}},
		})
		return nil
	})

	e.RequestStop()
	runErr := <-done
	e.Stop()

	if replayErr != nil && replayErr != context.Canceled {
		return replayErr
	}
	return runErr
}

// buildOptions wires the optional sinks; the engine owns their teardown.
func buildOptions(loaded ops.Loaded) (engine.Options, error) {
	opts := engine.Options{}

	if url := loaded.File.Notify.WebhookURL; url != "" {
		opts.Notifier = notify.NewWebhookNotifier(url)
	}

	if cfg := loaded.File.Journal; cfg.Enabled {
		j, err := journal.Open(journal.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Database,
		})
		if err != nil {
			return opts, fmt.Errorf("open journal: %w", err)
		}
		opts.Journal = j
	}

	if cfg := loaded.File.Recorder; cfg.Enabled {
		w, err := recorder.NewWriter(recorder.Config{Path: cfg.Path})
		if err != nil {
			return opts, fmt.Errorf("open recorder: %w", err)
		}
		if err := w.Start(context.Background()); err != nil {
			return opts, err
		}
		opts.Recorder = w
	}

	return opts, nil
}

// stopOnSignal flips the reactor stop flag from the signal handler; the
// loop exits once it has drained the events already in the ring.
func stopOnSignal(e *engine.Engine) {
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigC
		log.Printf("received %v, stopping", sig)
		e.RequestStop()
	}()
}
