package service

import (
	"context"

	channelmodels "channel-market-backend/internal/features/channel/models"
)

// PromotionService is the engine behind paid placement. Every purchase runs
// the funds check, the balance debit, the channel flag mutation and the
// payment record as one database transaction: a half-applied promotion
// (debited but not promoted) cannot be observed or persisted.
type PromotionService interface {
	PromoteToTop(ctx context.Context, userID, channelID int64) (*channelmodels.Channel, error)
	PromoteToUltraTop(ctx context.Context, userID, channelID int64, days int) (*channelmodels.Channel, error)
}
