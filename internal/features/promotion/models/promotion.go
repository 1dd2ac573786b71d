package models

import (
	"time"

	"channel-market-backend/internal/common/validation"

	"github.com/shopspring/decimal"
)

const (
	// MinUltraTopDays и MaxUltraTopDays ограничивают покупаемое окно
	MinUltraTopDays = 1
	MaxUltraTopDays = 365

	// Порог объемной скидки: от 7 дней действует скидка 10%
	UltraTopDiscountDays = 7
)

var (
	// TopPromotionFee — фиксированная цена бессрочного TOP
	TopPromotionFee = decimal.NewFromInt(50)

	// UltraTopDailyFee — цена одного дня ULTRA TOP
	UltraTopDailyFee = decimal.NewFromInt(500)

	ultraTopDiscountRate = decimal.NewFromFloat(0.9)
)

// UltraTopFee возвращает стоимость окна ULTRA TOP в days дней:
// 500 за день, при days >= 7 скидка 10% с округлением до целого.
func UltraTopFee(days int) decimal.Decimal {
	fee := UltraTopDailyFee.Mul(decimal.NewFromInt(int64(days)))
	if days >= UltraTopDiscountDays {
		fee = fee.Mul(ultraTopDiscountRate).Round(0)
	}
	return fee
}

// ParseDays строго разбирает количество дней из строки запроса. Ведущие нули
// ("010"), знаки и нечисловой ввод отклоняются, а не тихо коэрцируются.
func ParseDays(raw string) (int, error) {
	return validation.ParseStrictPositiveInt(raw)
}

// NextUltraTopExpiry computes the expiry for a new ULTRA TOP purchase.
// An unexpired window is extended from its current expiry (early renewal is
// rewarded); an expired or absent window starts from now. The decision is made
// from the expiry timestamp, never from the persisted boolean.
func NextUltraTopExpiry(current *time.Time, now time.Time, days int) time.Time {
	window := time.Duration(days) * 24 * time.Hour
	if current != nil && current.After(now) {
		return current.Add(window)
	}
	return now.Add(window)
}
