package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category — справочник категорий с ценой подачи заявки. Источник цены
// для channel_submission, только чтение со стороны приложения.
type Category struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	SubmissionPrice decimal.Decimal `json:"submission_price"`
	CreatedAt       time.Time       `json:"created_at"`
}
