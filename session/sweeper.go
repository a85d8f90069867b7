package session

import (
	"context"
	"fmt"
	"time"

	"github.com/goldyy12/files/internal/logutil"
	"github.com/robfig/cron/v3"
)

type (
	// Sweepable is anything holding records that become garbage over time.
	Sweepable interface {
		Sweep(ctx context.Context, now time.Time) (int, error)
	}

	// SweepFunc adapts a function to Sweepable.
	SweepFunc func(ctx context.Context, now time.Time) (int, error)

	// Sweeper periodically asks each target to drop its garbage.
	Sweeper struct {
		interval time.Duration
		targets  map[string]Sweepable
		order    []string
		now      func() time.Time
	}
)

func (f SweepFunc) Sweep(ctx context.Context, now time.Time) (int, error) {
	return f(ctx, now)
}

func NewSweeper(interval time.Duration) *Sweeper {
	return &Sweeper{
		interval: interval,
		targets:  make(map[string]Sweepable),
		now:      time.Now,
	}
}

// Add registers target under name, names are used only for logging.
func (s *Sweeper) Add(name string, target Sweepable) *Sweeper {
	if _, ok := s.targets[name]; !ok {
		s.order = append(s.order, name)
	}
	s.targets[name] = target
	return s
}

// RunOnce sweeps every target once and returns how many records each one
// removed. A failing target does not prevent the others from running; the
// first error is returned.
func (s *Sweeper) RunOnce(ctx context.Context) (map[string]int, error) {
	log := logutil.GetOrDefault(ctx)
	now := s.now()
	out := make(map[string]int, len(s.order))
	var firstErr error
	for _, name := range s.order {
		n, err := s.targets[name].Sweep(ctx, now)
		if err != nil {
			log.Error().Err(err).Str("target", name).Msg("Sweep failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("unable to sweep %v, cause %w", name, err)
			}
			continue
		}
		out[name] = n
		if n > 0 {
			log.Info().Str("target", name).Int("removed", n).Msg("Sweep completed")
		}
	}
	return out, firstErr
}

// Run sweeps on a cron schedule until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %v", s.interval)
	}
	log := logutil.GetOrDefault(ctx)
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %v", s.interval), func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("unable to schedule sweeper, cause %w", err)
	}
	c.Start()
	log.Info().Dur("interval", s.interval).Msg("Sweeper started")
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("Sweeper stopped")
	return nil
}
