package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"channel-market-backend/internal/common/logger"

	"github.com/rs/zerolog"
)

const apiBaseURL = "https://api.telegram.org"

// Client is a thin Bot API client used to read public channel display data:
// title and subscriber count. It never performs promotion or balance logic.
type Client struct {
	httpClient *http.Client
	token      string
	logger     zerolog.Logger
}

// Chat представляет информацию о чате/канале
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

// apiResponse представляет ответ от Telegram API
type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token:  token,
		logger: logger.With("telegram_client"),
	}
}

// GetChat returns public chat info for @username.
func (c *Client) GetChat(ctx context.Context, username string) (*Chat, error) {
	raw, err := c.call(ctx, "getChat", url.Values{"chat_id": {"@" + username}})
	if err != nil {
		return nil, err
	}

	var chat Chat
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("decode getChat result: %w", err)
	}
	return &chat, nil
}

// GetChatMemberCount returns the subscriber count for @username.
func (c *Client) GetChatMemberCount(ctx context.Context, username string) (int, error) {
	raw, err := c.call(ctx, "getChatMemberCount", url.Values{"chat_id": {"@" + username}})
	if err != nil {
		return 0, err
	}

	var count int
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, fmt.Errorf("decode getChatMemberCount result: %w", err)
	}
	return count, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	if c.token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s?%s", apiBaseURL, c.token, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read telegram api response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("decode telegram api response: %w", err)
	}
	if !apiResp.Ok {
		c.logger.Warn().Str("method", method).Str("description", apiResp.Description).Msg("Telegram API returned error")
		return nil, fmt.Errorf("telegram api error: %s", apiResp.Description)
	}

	return apiResp.Result, nil
}
