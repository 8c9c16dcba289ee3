package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type refreshTokenPurger interface {
	DeleteStaleRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionDeactivator interface {
	DeactivateBefore(ctx context.Context, day time.Time) (int64, error)
}

// MaintenanceService holds the periodic housekeeping tasks run by the scheduler.
type MaintenanceService struct {
	tokens   refreshTokenPurger
	sessions sessionDeactivator
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
}

// NewMaintenanceService wires housekeeping dependencies. cache may be nil.
func NewMaintenanceService(tokens refreshTokenPurger, sessions sessionDeactivator, cache *CacheService, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		tokens:   tokens,
		sessions: sessions,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PurgeRefreshTokens deletes refresh tokens that can no longer be exchanged.
func (s *MaintenanceService) PurgeRefreshTokens(ctx context.Context) error {
	removed, err := s.tokens.DeleteStaleRefreshTokens(ctx, s.now())
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("purged refresh tokens", zap.Int64("count", removed))
	}
	return nil
}

// DeactivatePastSessions marks sessions dated before today as inactive and
// drops cached course overviews when anything changed.
func (s *MaintenanceService) DeactivatePastSessions(ctx context.Context) error {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	changed, err := s.sessions.DeactivateBefore(ctx, today)
	if err != nil {
		return err
	}
	if changed == 0 {
		return nil
	}
	s.logger.Info("deactivated past sessions", zap.Int64("count", changed))
	if err := s.cache.Invalidate(ctx, overviewCachePattern); err != nil {
		s.logger.Warn("overview cache invalidation failed", zap.Error(err))
	}
	return nil
}
