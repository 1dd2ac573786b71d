package gateway

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeKassaForm(merchantID, amount, orderID, secret string) url.Values {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s:%s", merchantID, amount, secret, orderID)))

	form := url.Values{}
	form.Set("MERCHANT_ID", merchantID)
	form.Set("AMOUNT", amount)
	form.Set("MERCHANT_ORDER_ID", orderID)
	form.Set("intid", "987654")
	form.Set("us_user_id", "42")
	form.Set("SIGN", hex.EncodeToString(sum[:]))
	return form
}

func TestFreeKassaVerifyAndParse(t *testing.T) {
	g := NewFreeKassa("merchant-1", "s3cret")

	n, err := g.VerifyAndParse(freeKassaForm("merchant-1", "150.00", "order-17", "s3cret"))
	require.NoError(t, err)

	assert.Equal(t, ProviderFreeKassa, n.Provider)
	assert.Equal(t, int64(42), n.UserID)
	assert.Equal(t, "150.00", n.Amount.StringFixed(2))
	assert.Equal(t, "freekassa:order-17", n.InvoiceID)
	assert.Equal(t, "987654", n.TransactionID)
}

func TestFreeKassaRejectsBadSignature(t *testing.T) {
	g := NewFreeKassa("merchant-1", "s3cret")

	form := freeKassaForm("merchant-1", "150.00", "order-17", "wrong-secret")
	_, err := g.VerifyAndParse(form)
	assert.Error(t, err)
}

func TestFreeKassaRejectsForeignMerchant(t *testing.T) {
	g := NewFreeKassa("merchant-1", "s3cret")

	_, err := g.VerifyAndParse(freeKassaForm("merchant-2", "150.00", "order-17", "s3cret"))
	assert.Error(t, err)
}

func TestFreeKassaRejectsTamperedAmount(t *testing.T) {
	g := NewFreeKassa("merchant-1", "s3cret")

	form := freeKassaForm("merchant-1", "150.00", "order-17", "s3cret")
	form.Set("AMOUNT", "9999.00")
	_, err := g.VerifyAndParse(form)
	assert.Error(t, err)
}

func TestFreeKassaUnconfigured(t *testing.T) {
	g := NewFreeKassa("", "")

	_, err := g.VerifyAndParse(freeKassaForm("merchant-1", "150.00", "order-17", "s3cret"))
	assert.Error(t, err)
}
