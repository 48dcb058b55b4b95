package application

import (
	"context"
	"errors"
	"log"
	"time"

	"agrisense-cloud/internal/observability/metrics"
	state "agrisense-cloud/internal/state/domain"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Sweeper marks sensors offline when they stop reporting.
type Sweeper struct {
	sensors state.SensorStateRepository
	cfg     Config
	clock   Clock
	logger  *log.Logger
}

// SweeperOption configures the sweeper.
type SweeperOption func(*Sweeper)

// WithClock overrides the clock.
func WithClock(clock Clock) SweeperOption {
	return func(s *Sweeper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSweeper constructs a sweeper.
func NewSweeper(sensors state.SensorStateRepository, cfg Config, logger *log.Logger, opts ...SweeperOption) (*Sweeper, error) {
	if sensors == nil {
		return nil, errors.New("sweeper: nil sensor repository")
	}
	if cfg.StalenessMinutes <= 0 || cfg.BatchSize <= 0 {
		return nil, errors.New("sweeper: invalid config")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Sweeper{sensors: sensors, cfg: cfg, clock: systemClock{}, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunOnce sweeps in batches until a batch comes back short, and returns the
// total number of sensors marked offline.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-time.Duration(s.cfg.StalenessMinutes) * time.Minute)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		marked, err := s.sensors.MarkOffline(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			return total, err
		}
		total += marked
		if marked < s.cfg.BatchSize {
			break
		}
	}
	if total > 0 {
		metrics.AddSweepMarkedOffline(total)
		s.logger.Printf("sweep: marked %d sensors offline (cutoff=%s)", total, cutoff.Format(time.RFC3339))
	}
	return total, nil
}

// Start begins the scheduler loop. With daily_at set the sweep runs once a
// day at that UTC time; otherwise it runs every interval_minutes.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastRun time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			now = now.UTC()
			if !s.shouldRun(now, lastRun) {
				continue
			}
			lastRun = now
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Printf("sweep: run error: %v", err)
			}
		}
	}
}

func (s *Sweeper) shouldRun(now, lastRun time.Time) bool {
	if s.cfg.DailyAt != "" {
		hour, minute, err := parseDailyAt(s.cfg.DailyAt)
		if err != nil {
			return false
		}
		return now.Hour() == hour && now.Minute() == minute
	}
	if s.cfg.IntervalMinutes <= 0 {
		return false
	}
	return lastRun.IsZero() || now.Sub(lastRun) >= time.Duration(s.cfg.IntervalMinutes)*time.Minute
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
