package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/metrics"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/aussiebroadwan/authd/pkg/clockx"
)

// HousekeepingService periodically deletes expired sessions and
// verification codes. Expired records are already dead to the engine; this
// only bounds storage.
type HousekeepingService struct {
	Sessions store.Sessions
	Codes    store.VerificationCodes
	Clock    clockx.Clock
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(sessions store.Sessions, codes store.VerificationCodes, clock clockx.Clock, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if clock == nil {
		clock = clockx.System{}
	}

	return &HousekeepingService{
		Sessions: sessions,
		Codes:    codes,
		Clock:    clock,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// HousekeepingResult counts what one pass removed.
type HousekeepingResult struct {
	Sessions int64
	Codes    int64
}

// RunOnce performs one cleanup pass. Each deletion is independent; a
// failure in one does not stop the other.
func (s *HousekeepingService) RunOnce(ctx context.Context) HousekeepingResult {
	now := s.Clock.Now()
	var res HousekeepingResult
	var err error

	if res.Sessions, err = s.Sessions.DeleteExpiredSessions(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	}
	metrics.RecordHousekeeping("sessions", res.Sessions)

	if res.Codes, err = s.Codes.DeleteExpiredCodes(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired verification codes", "error", err)
	}
	metrics.RecordHousekeeping("verification_codes", res.Codes)

	s.Logger.Info("housekeeping cleanup completed", "sessions_deleted", res.Sessions, "codes_deleted", res.Codes)
	return res
}
