// Package logchannel implements the Reporter's always-available "log"
// channel: it prints the notification via charmbracelet/log and never
// fails.
package logchannel

import (
	"context"

	"github.com/charmbracelet/log"

	registrychannel "github.com/recurator/tram/internal/registry/channel"
)

func init() {
	registrychannel.Register(registrychannel.Plugin{
		Name: "log",
		Loader: func(_ context.Context) (registrychannel.Channel, error) {
			return &Channel{}, nil
		},
	})
}

// Channel prints notifications to the process log.
type Channel struct{}

// New returns a log channel, used directly by other channel plugins as
// their absent-credential fallback.
func New() *Channel { return &Channel{} }

// Name reports this channel's identifier.
func (c *Channel) Name() string { return "log" }

// Send logs the notification at info level.
func (c *Channel) Send(_ context.Context, n registrychannel.Notification) error {
	args := []any{"title", n.Title, "body", n.Body}
	for k, v := range n.Metrics {
		args = append(args, k, v)
	}
	log.Info("reporter notification", args...)
	return nil
}

var _ registrychannel.Channel = (*Channel)(nil)
