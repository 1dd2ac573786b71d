package gateway

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"

	apperrors "channel-market-backend/internal/common/errors"

	"github.com/shopspring/decimal"
)

const ProviderFreeKassa = "freekassa"

// FreeKassa verifies form-encoded success callbacks. The gateway signs the
// callback with md5 over "merchant_id:amount:secret:order_id"; amount must be
// reproduced exactly as received, not re-formatted.
type FreeKassa struct {
	merchantID string
	secret     string
}

func NewFreeKassa(merchantID, secret string) *FreeKassa {
	return &FreeKassa{merchantID: merchantID, secret: secret}
}

// VerifyAndParse проверяет подпись callback-а и возвращает уведомление.
// Поля: MERCHANT_ID, AMOUNT, MERCHANT_ORDER_ID, intid, us_user_id, SIGN.
func (g *FreeKassa) VerifyAndParse(form url.Values) (*Notification, error) {
	if g.merchantID == "" || g.secret == "" {
		return nil, apperrors.New(apperrors.ErrCodeExternalAPI, "FreeKassa gateway is not configured")
	}

	merchantID := form.Get("MERCHANT_ID")
	amountStr := form.Get("AMOUNT")
	orderID := form.Get("MERCHANT_ORDER_ID")
	sign := form.Get("SIGN")

	if merchantID != g.merchantID {
		return nil, apperrors.New(apperrors.ErrCodeBadSignature, "Unknown merchant id")
	}
	if amountStr == "" || orderID == "" || sign == "" {
		return nil, apperrors.NewValidationError("callback", "missing required fields")
	}

	expected := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s:%s", g.merchantID, amountStr, g.secret, orderID)))
	expectedHex := hex.EncodeToString(expected[:])
	if subtle.ConstantTimeCompare([]byte(expectedHex), []byte(sign)) != 1 {
		return nil, apperrors.New(apperrors.ErrCodeBadSignature, "Invalid callback signature")
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil || !amount.IsPositive() {
		return nil, apperrors.NewValidationError("AMOUNT", "malformed amount")
	}

	userID, err := strconv.ParseInt(form.Get("us_user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return nil, apperrors.NewValidationError("us_user_id", "malformed user id")
	}

	return &Notification{
		Provider:      ProviderFreeKassa,
		UserID:        userID,
		Amount:        amount,
		InvoiceID:     ProviderFreeKassa + ":" + orderID,
		TransactionID: form.Get("intid"),
	}, nil
}
