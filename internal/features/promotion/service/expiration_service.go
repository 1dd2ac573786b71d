package service

import (
	"context"
	"sync"
	"time"

	"channel-market-backend/internal/common/logger"
	"channel-market-backend/internal/common/metrics"
	channelrepo "channel-market-backend/internal/features/channel/repository"
	channelservice "channel-market-backend/internal/features/channel/service"

	"github.com/rs/zerolog"
)

const sweepTimeout = time.Minute

// ExpirationService clears expired ULTRA TOP promotions on a timer. The sweep
// only refreshes the denormalized boolean: read paths compute effective
// promotion from the expiry timestamp and stay correct between passes.
type ExpirationService struct {
	ctx      context.Context
	cancel   context.CancelFunc
	repo     channelrepo.ChannelRepository
	catalog  channelservice.ChannelService
	interval time.Duration
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

func NewExpirationService(repo channelrepo.ChannelRepository, catalog channelservice.ChannelService, interval time.Duration) *ExpirationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExpirationService{
		ctx:      ctx,
		cancel:   cancel,
		repo:     repo,
		catalog:  catalog,
		interval: interval,
		logger:   logger.With("promotion_sweep"),
	}
}

func (s *ExpirationService) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting promotion expiration service")
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *ExpirationService) Stop() {
	s.logger.Info().Msg("Stopping promotion expiration service")
	s.cancel()
	s.wg.Wait()
}

func (s *ExpirationService) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, sweepTimeout)
	defer cancel()

	cleared, err := s.repo.ClearExpiredUltraTop(ctx, time.Now())
	if err != nil {
		// Ошибка прохода не фатальна: следующий тик попробует снова
		s.logger.Error().Err(err).Msg("Promotion sweep failed")
		return
	}

	if cleared > 0 {
		metrics.Default().PromotionSweepCleared.Add(float64(cleared))
		if s.catalog != nil {
			s.catalog.InvalidateCatalogCache(ctx)
		}
		s.logger.Info().Int64("cleared", cleared).Msg("Expired ULTRA TOP promotions cleared")
	}
}
