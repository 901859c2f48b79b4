// Package none implements the Reporter's "none" channel: delivery always
// silently succeeds.
package none

import (
	"context"

	registrychannel "github.com/recurator/tram/internal/registry/channel"
)

func init() {
	registrychannel.Register(registrychannel.Plugin{
		Name: "none",
		Loader: func(_ context.Context) (registrychannel.Channel, error) {
			return &Channel{}, nil
		},
	})
}

// Channel discards every notification.
type Channel struct{}

// Name reports this channel's identifier.
func (c *Channel) Name() string { return "none" }

// Send does nothing and never errors.
func (c *Channel) Send(_ context.Context, _ registrychannel.Notification) error { return nil }

var _ registrychannel.Channel = (*Channel)(nil)
