package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannelUsername(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://t.me/crypto_news", "crypto_news"},
		{"http://t.me/crypto_news/", "crypto_news"},
		{"t.me/Crypto_News", "crypto_news"},
		{"https://www.t.me/crypto_news", "crypto_news"},
		{"https://telegram.me/crypto_news", "crypto_news"},
		{"https://t.me/crypto_news/123", "crypto_news"},
		{"@crypto_news", "crypto_news"},
		{"crypto_news", "crypto_news"},
	}

	for _, tt := range tests {
		got, err := ParseChannelUsername(tt.raw)
		require.NoError(t, err, "input %q", tt.raw)
		assert.Equal(t, tt.want, got, "input %q", tt.raw)
	}
}

func TestParseChannelUsernameRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"https://example.com/crypto_news",
		"https://t.me/",
		"https://t.me/ab",
		"@bad name",
	} {
		_, err := ParseChannelUsername(raw)
		assert.Error(t, err, "input %q must be rejected", raw)
	}
}

func TestApplicationIsTerminal(t *testing.T) {
	app := &Application{Status: ApplicationStatusPending}
	assert.False(t, app.IsTerminal())

	app.Status = ApplicationStatusApproved
	assert.True(t, app.IsTerminal())

	app.Status = ApplicationStatusRejected
	assert.True(t, app.IsTerminal())
}
