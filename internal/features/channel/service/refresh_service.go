package service

import (
	"context"
	"sync"
	"time"

	"channel-market-backend/internal/common/logger"
	"channel-market-backend/internal/features/channel/repository"
	"channel-market-backend/internal/platform/telegram"

	"github.com/rs/zerolog"
)

const refreshChannelTimeout = 15 * time.Second

// RefreshService periodically pulls subscriber counts from the Telegram Bot
// API for approved channels. Updates are column-scoped (subscribers only), so
// they never clobber concurrent promotion or moderation writes. A single
// channel's failure is logged and skipped, never aborting the batch.
type RefreshService struct {
	ctx      context.Context
	cancel   context.CancelFunc
	repo     repository.ChannelRepository
	telegram *telegram.Client
	interval time.Duration
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

func NewRefreshService(repo repository.ChannelRepository, tg *telegram.Client, interval time.Duration) *RefreshService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshService{
		ctx:      ctx,
		cancel:   cancel,
		repo:     repo,
		telegram: tg,
		interval: interval,
		logger:   logger.With("subscriber_refresh"),
	}
}

func (s *RefreshService) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting subscriber refresh service")
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.refreshAll()
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *RefreshService) Stop() {
	s.logger.Info().Msg("Stopping subscriber refresh service")
	s.cancel()
	s.wg.Wait()
}

func (s *RefreshService) refreshAll() {
	channels, err := s.repo.ListUsernamesForRefresh(s.ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list channels for refresh")
		return
	}

	updated := 0
	for _, ch := range channels {
		if err := s.refreshOne(ch.ID, ch.Username); err != nil {
			s.logger.Warn().Err(err).Str("username", ch.Username).Msg("Failed to refresh subscribers")
			continue
		}
		updated++
	}

	s.logger.Info().Int("total", len(channels)).Int("updated", updated).Msg("Subscriber refresh pass finished")
}

func (s *RefreshService) refreshOne(channelID int64, username string) error {
	ctx, cancel := context.WithTimeout(s.ctx, refreshChannelTimeout)
	defer cancel()

	count, err := s.telegram.GetChatMemberCount(ctx, username)
	if err != nil {
		return err
	}

	return s.repo.UpdateSubscribers(ctx, channelID, count)
}
