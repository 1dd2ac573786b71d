package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	apperrors "channel-market-backend/internal/common/errors"

	"github.com/shopspring/decimal"
)

const ProviderCryptoPay = "cryptopay"

// SignatureHeader is the webhook signature header sent by Crypto Pay.
const SignatureHeader = "crypto-pay-api-signature"

// CryptoPay verifies JSON webhooks: HMAC-SHA256 over the raw body with
// SHA256(api token) as the key. Only invoice_paid updates with status "paid"
// are accepted as terminal success.
type CryptoPay struct {
	token string
}

func NewCryptoPay(token string) *CryptoPay {
	return &CryptoPay{token: token}
}

type cryptoPayUpdate struct {
	UpdateID   int64  `json:"update_id"`
	UpdateType string `json:"update_type"`
	Payload    struct {
		InvoiceID int64  `json:"invoice_id"`
		Status    string `json:"status"`
		Amount    string `json:"amount"`
		// payload несет наш собственный контекст: ID пользователя
		Payload string `json:"payload"`
	} `json:"payload"`
}

// VerifyAndParse проверяет подпись вебхука и возвращает уведомление
func (g *CryptoPay) VerifyAndParse(body []byte, signature string) (*Notification, error) {
	if g.token == "" {
		return nil, apperrors.New(apperrors.ErrCodeExternalAPI, "CryptoPay gateway is not configured")
	}
	if signature == "" {
		return nil, apperrors.New(apperrors.ErrCodeBadSignature, "Missing webhook signature")
	}

	key := sha256.Sum256([]byte(g.token))
	mac := hmac.New(sha256.New, key[:])
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, apperrors.New(apperrors.ErrCodeBadSignature, "Invalid webhook signature")
	}

	var update cryptoPayUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, apperrors.NewValidationError("body", "malformed webhook payload")
	}

	if update.UpdateType != "invoice_paid" || update.Payload.Status != "paid" {
		return nil, apperrors.NewValidationError("update_type", "not a terminal success notification")
	}

	amount, err := decimal.NewFromString(update.Payload.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "malformed amount")
	}

	userID, err := strconv.ParseInt(update.Payload.Payload, 10, 64)
	if err != nil || userID <= 0 {
		return nil, apperrors.NewValidationError("payload", "malformed user id")
	}

	invoiceID := strconv.FormatInt(update.Payload.InvoiceID, 10)

	return &Notification{
		Provider:      ProviderCryptoPay,
		UserID:        userID,
		Amount:        amount,
		InvoiceID:     ProviderCryptoPay + ":" + invoiceID,
		TransactionID: invoiceID,
	}, nil
}
