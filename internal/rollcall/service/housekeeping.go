package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
)

const (
	DefaultHousekeepingInterval = time.Hour
	DefaultTokenRetention       = 24 * time.Hour
)

// HousekeepingService periodically removes access tokens that expired more
// than Retention ago. Inside the window a late scan still gets "Token has
// expired." rather than "Invalid token.".
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Now       func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService fills in defaults for non-positive durations.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	if retention <= 0 {
		retention = DefaultTokenRetention
	}
	return &HousekeepingService{
		Store:     s,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		slog.Duration("interval", s.Interval),
		slog.Duration("retention", s.Retention),
	)
}

// Stop blocks until an in-flight cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass and reports how many tokens were removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	cutoff := now.Add(-s.Retention)

	n, err := s.Store.AccessTokens().DeleteExpiredAccessTokens(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete expired access tokens", slog.Any("error", err))
		return 0
	}
	s.Logger.Info("housekeeping cleanup completed",
		slog.Int64("deleted_tokens", n),
		slog.Time("cutoff", cutoff),
	)
	return n
}
