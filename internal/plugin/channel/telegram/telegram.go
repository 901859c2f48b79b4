// Package telegram implements the Reporter's "telegram" channel: a plain
// HTTPS POST to the Bot API's sendMessage endpoint.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/recurator/tram/internal/plugin/channel/logchannel"
	registrychannel "github.com/recurator/tram/internal/registry/channel"
)

func init() {
	registrychannel.Register(registrychannel.Plugin{
		Name: "telegram",
		Loader: func(_ context.Context) (registrychannel.Channel, error) {
			token := os.Getenv("TELEGRAM_BOT_TOKEN")
			chatID := os.Getenv("TELEGRAM_CHAT_ID")
			if token == "" || chatID == "" {
				log.Warn("telegram channel: TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID absent, falling back to log")
				return logchannel.New(), nil
			}
			return &Channel{token: token, chatID: chatID, client: &http.Client{Timeout: 10 * time.Second}}, nil
		},
	})
}

// Channel delivers notifications via the Telegram Bot API.
type Channel struct {
	token  string
	chatID string
	client *http.Client
}

// Name reports this channel's identifier.
func (c *Channel) Name() string { return "telegram" }

// Send posts the notification as a chat message.
func (c *Channel) Send(ctx context.Context, n registrychannel.Notification) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	payload, err := json.Marshal(map[string]string{
		"chat_id": c.chatID,
		"text":    n.Title + "\n\n" + n.Body,
	})
	if err != nil {
		return fmt.Errorf("encode telegram payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver telegram notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

var _ registrychannel.Channel = (*Channel)(nil)
