package service

import (
	"log/slog"
	"time"
)

// HousekeepingService periodically sweeps expired keypad sessions and
// idle rate limiter windows so in-memory state does not grow without
// bound. Correctness never depends on the sweep; both structures also
// check expiry lazily.
type HousekeepingService struct {
	Sessions *Sessions
	Limiter  *Limiter
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 5 minutes.
func NewHousekeepingService(sessions *Sessions, limiter *Limiter, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &HousekeepingService{
		Sessions: sessions,
		Limiter:  limiter,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs the sweep.
// This is non-blocking. Call Stop() to gracefully shut down the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	expired := s.Sessions.SweepExpired()
	idle := s.Limiter.Sweep()
	s.Logger.Debug("housekeeping sweep completed",
		"expired_sessions", expired, "idle_limiter_windows", idle)
}
