package models

import (
	"time"
)

type ChannelType string

const (
	ChannelTypeChannel ChannelType = "channel"
	ChannelTypeBot     ChannelType = "bot"
	ChannelTypeGroup   ChannelType = "group"
)

type ChannelStatus string

const (
	ChannelStatusPending  ChannelStatus = "pending"
	ChannelStatusApproved ChannelStatus = "approved"
	ChannelStatusRejected ChannelStatus = "rejected"
)

// Channel представляет канал, бота или группу в каталоге. Поля продвижения
// мутируются только промоушн-движком; публично листятся только approved.
type Channel struct {
	ID          int64         `json:"id"`
	OwnerID     int64         `json:"owner_id"`
	CategoryID  int64         `json:"category_id"`
	Type        ChannelType   `json:"type"`
	Username    string        `json:"username"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	AvatarURL   string        `json:"avatar_url"`
	Subscribers int           `json:"subscribers"`
	Status      ChannelStatus `json:"status"`

	IsTopPromoted      bool `json:"is_top_promoted"`
	IsUltraTopPromoted bool `json:"is_ultra_top_promoted"`
	// Обязателен, когда IsUltraTopPromoted == true
	UltraTopPromotionExpiry *time.Time `json:"ultra_top_promotion_expiry,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectivelyUltraTop reports whether the channel is ULTRA TOP right now.
// The expiry timestamp is the source of truth: the persisted boolean is only
// a denormalization hint refreshed by the periodic sweep, so readers must not
// trust it between sweep runs.
func (c *Channel) EffectivelyUltraTop(now time.Time) bool {
	return c.IsUltraTopPromoted &&
		c.UltraTopPromotionExpiry != nil &&
		c.UltraTopPromotionExpiry.After(now)
}

// ChannelResponse — публичное представление канала в каталоге
type ChannelResponse struct {
	ID                 int64       `json:"id"`
	CategoryID         int64       `json:"category_id"`
	Type               ChannelType `json:"type"`
	Username           string      `json:"username"`
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	AvatarURL          string      `json:"avatar_url"`
	ChannelURL         string      `json:"channel_url"`
	Subscribers        int         `json:"subscribers"`
	IsTopPromoted      bool        `json:"is_top_promoted"`
	IsUltraTopPromoted bool        `json:"is_ultra_top_promoted"`
}

// ToResponse готовит публичное представление; флаг ULTRA TOP вычисляется
// от expiry на момент чтения, а не берется из колонки
func (c *Channel) ToResponse(now time.Time) *ChannelResponse {
	return &ChannelResponse{
		ID:                 c.ID,
		CategoryID:         c.CategoryID,
		Type:               c.Type,
		Username:           c.Username,
		Name:               c.Name,
		Description:        c.Description,
		AvatarURL:          c.AvatarURL,
		ChannelURL:         "https://t.me/" + c.Username,
		Subscribers:        c.Subscribers,
		IsTopPromoted:      c.IsTopPromoted,
		IsUltraTopPromoted: c.EffectivelyUltraTop(now),
	}
}
