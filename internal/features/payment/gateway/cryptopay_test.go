package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cryptoPaySign(token string, body []byte) string {
	key := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, key[:])
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCryptoPayVerifyAndParse(t *testing.T) {
	g := NewCryptoPay("app-token")
	body := []byte(`{"update_id":1,"update_type":"invoice_paid","payload":{"invoice_id":555,"status":"paid","amount":"75.5","payload":"42"}}`)

	n, err := g.VerifyAndParse(body, cryptoPaySign("app-token", body))
	require.NoError(t, err)

	assert.Equal(t, ProviderCryptoPay, n.Provider)
	assert.Equal(t, int64(42), n.UserID)
	assert.Equal(t, "75.50", n.Amount.StringFixed(2))
	assert.Equal(t, "cryptopay:555", n.InvoiceID)
	assert.Equal(t, "555", n.TransactionID)
}

func TestCryptoPayRejectsBadSignature(t *testing.T) {
	g := NewCryptoPay("app-token")
	body := []byte(`{"update_id":1,"update_type":"invoice_paid","payload":{"invoice_id":555,"status":"paid","amount":"75.5","payload":"42"}}`)

	_, err := g.VerifyAndParse(body, cryptoPaySign("other-token", body))
	assert.Error(t, err)

	_, err = g.VerifyAndParse(body, "")
	assert.Error(t, err)
}

func TestCryptoPayRejectsNonTerminalUpdate(t *testing.T) {
	g := NewCryptoPay("app-token")

	// Подпись валидна, но уведомление не про оплаченный инвойс
	body := []byte(`{"update_id":1,"update_type":"invoice_paid","payload":{"invoice_id":555,"status":"active","amount":"75.5","payload":"42"}}`)
	_, err := g.VerifyAndParse(body, cryptoPaySign("app-token", body))
	assert.Error(t, err)

	body = []byte(`{"update_id":1,"update_type":"invoice_expired","payload":{"invoice_id":555,"status":"paid","amount":"75.5","payload":"42"}}`)
	_, err = g.VerifyAndParse(body, cryptoPaySign("app-token", body))
	assert.Error(t, err)
}

func TestCryptoPayRejectsTamperedBody(t *testing.T) {
	g := NewCryptoPay("app-token")
	body := []byte(`{"update_id":1,"update_type":"invoice_paid","payload":{"invoice_id":555,"status":"paid","amount":"75.5","payload":"42"}}`)
	sig := cryptoPaySign("app-token", body)

	tampered := []byte(`{"update_id":1,"update_type":"invoice_paid","payload":{"invoice_id":555,"status":"paid","amount":"9999","payload":"42"}}`)
	_, err := g.VerifyAndParse(tampered, sig)
	assert.Error(t, err)
}
