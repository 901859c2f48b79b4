// Package discord implements the Reporter's "discord" channel: a plain
// HTTPS POST to a configured Discord incoming webhook URL.
package discord

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
		Name: "discord",
		Loader: func(_ context.Context) (registrychannel.Channel, error) {
			webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
			if webhookURL == "" {
				log.Warn("discord channel: DISCORD_WEBHOOK_URL absent, falling back to log")
				return logchannel.New(), nil
			}
			return &Channel{webhookURL: webhookURL, client: &http.Client{Timeout: 10 * time.Second}}, nil
		},
	})
}

// Channel delivers notifications via a Discord incoming webhook.
type Channel struct {
	webhookURL string
	client     *http.Client
}

// Name reports this channel's identifier.
func (c *Channel) Name() string { return "discord" }

// Send posts the notification as a webhook message.
func (c *Channel) Send(ctx context.Context, n registrychannel.Notification) error {
	payload, err := json.Marshal(map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", n.Title, n.Body),
	})
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver discord notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

var _ registrychannel.Channel = (*Channel)(nil)
