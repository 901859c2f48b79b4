// Package channel defines the Reporter's notification-delivery contract and
// plugin registry.
package channel

import (
	"context"
	"fmt"
)

// Notification is one reportable event: a tuning adjustment, a daily
// summary, or a weekly summary.
type Notification struct {
	Title   string
	Body    string
	Metrics map[string]string
}

// Channel delivers a Notification somewhere (log line, chat webhook, none).
type Channel interface {
	Send(ctx context.Context, n Notification) error
	Name() string
}

// Loader creates a Channel. Each channel plugin reads its own credential
// from its environment variables (TELEGRAM_BOT_TOKEN, DISCORD_WEBHOOK_URL,
// SLACK_WEBHOOK_URL); "log" and "none" need none.
type Loader func(ctx context.Context) (Channel, error)

// Plugin represents a channel plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a channel plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered channel plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named channel plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown channel %q; valid: %v", name, Names())
}
