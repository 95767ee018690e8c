package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// PlaybackConfig controls tick playback.
type PlaybackConfig struct {
	Path  string
	Speed float64 // 1 = real time, 0 = no pacing
}

// Clock allows deterministic playback control.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback replays recorded ticks in file order.
type Playback struct {
	cfg   PlaybackConfig
	clock Clock
}

// NewPlayback validates the config and creates a playback engine.
func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("invalid playback config: Path is empty")
	}
	if cfg.Speed < 0 {
		return nil, fmt.Errorf("invalid playback config: Speed must be >= 0")
	}
	return &Playback{cfg: cfg, clock: realClock{}}, nil
}

// WithClock swaps the clock implementation.
func (p *Playback) WithClock(clock Clock) *Playback {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Run replays ticks and calls the handler for each one, pacing on the
// recorded timestamp deltas scaled by Speed.
func (p *Playback) Run(ctx context.Context, handler func(MarketTick) error) error {
	if handler == nil {
		return errors.New("playback handler is nil")
	}
	file, err := os.Open(p.cfg.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := NewReader(file)
	var prevTs uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tick, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read %s: %w", p.cfg.Path, err)
		}

		if p.cfg.Speed > 0 && prevTs > 0 && tick.TimestampNs > prevTs {
			sleep := time.Duration(float64(tick.TimestampNs-prevTs) / p.cfg.Speed)
			if err := p.clock.Sleep(ctx, sleep); err != nil {
				return err
			}
		}
		prevTs = tick.TimestampNs

		if err := handler(tick); err != nil {
			return err
		}
	}
}
