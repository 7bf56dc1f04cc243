// Package telegram is a thin Bot API client used for the welcome message
// sent when an account is created. It is an outbound collaborator: failures
// are logged and never fail the game request that triggered the send.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/CD-338080/Usdt-roller/internal/common/errors"
)

type Client struct {
	httpClient *http.Client
	token      string
}

type apiResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token: token,
	}
}

// SendMessage posts a Markdown message to the given chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTelegramAPIError("sendMessage", err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return apperrors.NewTelegramAPIError("sendMessage", err)
	}
	if !out.Ok {
		return apperrors.NewTelegramAPIError("sendMessage", fmt.Errorf("telegram api: %s", out.Description))
	}

	return nil
}

// SendWelcome greets a freshly created account with the game pitch.
func (c *Client) SendWelcome(ctx context.Context, chatID int64, firstName string) error {
	text := fmt.Sprintf("🚀 *Welcome %s!* 💰\n\n"+
		"🎲 *Roll Now & Claim 1 USDT!* 🎲\n\n"+
		"• 👆 Tap to earn USDT tokens\n"+
		"• 🔄 Upgrade for faster earnings\n"+
		"• 💤 Earn passively while away\n"+
		"• 🎁 Collect daily bonuses\n"+
		"• 👥 Invite friends for 25 usdt commission\n"+
		"• 💵 Withdraw to your wallet\n\n"+
		"⚡ *Start rolling now!* ⚡", firstName)

	return c.SendMessage(ctx, chatID, text)
}
