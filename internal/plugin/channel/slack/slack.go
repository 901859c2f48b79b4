// Package slack implements the Reporter's "slack" channel: a plain HTTPS
// POST to a configured Slack incoming webhook URL.
package slack

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
		Name: "slack",
		Loader: func(_ context.Context) (registrychannel.Channel, error) {
			webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
			if webhookURL == "" {
				log.Warn("slack channel: SLACK_WEBHOOK_URL absent, falling back to log")
				return logchannel.New(), nil
			}
			return &Channel{webhookURL: webhookURL, client: &http.Client{Timeout: 10 * time.Second}}, nil
		},
	})
}

// Channel delivers notifications via a Slack incoming webhook.
type Channel struct {
	webhookURL string
	client     *http.Client
}

// Name reports this channel's identifier.
func (c *Channel) Name() string { return "slack" }

// Send posts the notification as a webhook message.
func (c *Channel) Send(ctx context.Context, n registrychannel.Notification) error {
	payload, err := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s*\n%s", n.Title, n.Body),
	})
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver slack notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

var _ registrychannel.Channel = (*Channel)(nil)
