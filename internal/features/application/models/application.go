package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"channel-market-backend/internal/common/validation"
	channelmodels "channel-market-backend/internal/features/channel/models"

	"github.com/shopspring/decimal"
)

// ModeratorReward — вознаграждение модератора за рассмотренную заявку
var ModeratorReward = decimal.RequireFromString("0.25")

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Application — заявка на размещение канала. Жизненный цикл:
// pending -> approved | rejected, терминальные состояния не меняются.
type Application struct {
	ID          int64                     `json:"id"`
	ApplicantID int64                     `json:"applicant_id"`
	CategoryID  int64                     `json:"category_id"`
	Type        channelmodels.ChannelType `json:"type"`
	Username    string                    `json:"username"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	AvatarURL   string                    `json:"avatar_url"`
	// Цена категории, списанная при подаче
	Price           decimal.Decimal   `json:"price"`
	Status          ApplicationStatus `json:"status"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	ReviewerID      *int64            `json:"reviewer_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// IsTerminal reports whether the application has been decided.
func (a *Application) IsTerminal() bool {
	return a.Status != ApplicationStatusPending
}

// ParseChannelUsername derives the channel username from a submitted link.
// Accepts "https://t.me/name", "t.me/name", "@name" and bare "name".
func ParseChannelUsername(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("channel link is empty")
	}

	if strings.Contains(s, "/") {
		if !strings.Contains(s, "://") {
			s = "https://" + s
		}
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("malformed channel link")
		}
		host := strings.TrimPrefix(u.Hostname(), "www.")
		if host != "t.me" && host != "telegram.me" {
			return "", fmt.Errorf("link must point to t.me")
		}
		s = strings.Trim(u.Path, "/")
		if idx := strings.Index(s, "/"); idx >= 0 {
			s = s[:idx]
		}
	}

	s = strings.TrimPrefix(s, "@")
	if err := validation.ValidateChannelUsername(s); err != nil {
		return "", err
	}
	return strings.ToLower(s), nil
}
