// Package retention purges tombstoned messages once their retention window has passed.
package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/metrics"
)

const (
	DefaultCron   = "0 * * * *"
	DefaultWindow = 24 * time.Hour
)

// Purger permanently removes messages tombstoned before cutoff
type Purger interface {
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper runs the purge on a cron schedule. Runs never overlap.
type Sweeper struct {
	purger Purger
	cron   string
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	running bool
}

func NewSweeper(purger Purger, cronExpr string, window time.Duration, now func() time.Time) (*Sweeper, error) {
	if cronExpr == "" {
		cronExpr = DefaultCron
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid retention cron expression: %s", cronExpr)
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{purger: purger, cron: cronExpr, window: window, now: now}, nil
}

// Start launches the scheduler and returns its stop function. Stop blocks
// until the scheduler goroutine has exited.
func (s *Sweeper) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	logger.Info("retention_scheduler_started", "cron", s.cron, "window", s.window.String())
	go func() {
		defer close(done)
		s.scheduleLoop(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *Sweeper) scheduleLoop(ctx context.Context) {
	for {
		now := s.now()
		next, err := gronx.NextTickAfter(s.cron, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", s.cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("retention_scheduler_stopping")
				return
			}
			continue
		}

		wait := next.Sub(now)
		if wait < time.Second {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			s.runJob(ctx)
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

func (s *Sweeper) runJob(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		logger.Error("retention_run_error", "error", err)
	}
}

// ErrRunning is returned by RunOnce while another sweep is in progress
var ErrRunning = errors.New("retention sweep already running")

// RunOnce performs a single sweep and returns the number of purged messages
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return 0, ErrRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	cutoff := s.now().Add(-s.window)
	logger.Debug("retention_run_start", "cutoff", cutoff)

	purged, err := s.purger.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		metrics.RetentionFailures.Inc()
		return 0, err
	}
	metrics.RetentionPurged.Add(float64(purged))
	if purged > 0 {
		logger.Info("retention_run_complete", "purged", purged)
	}
	return purged, nil
}
