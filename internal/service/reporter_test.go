package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recurator/tram/internal/config"
	registrychannel "github.com/recurator/tram/internal/registry/channel"
	"github.com/recurator/tram/internal/service"
)

// captureChannel records every delivered Notification, standing in for the
// "log" channel so the test can inspect the exact message text.
type captureChannel struct {
	sent []registrychannel.Notification
}

func (c *captureChannel) Send(_ context.Context, n registrychannel.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureChannel) Name() string { return "capture" }

// fixedClock pins Now() to a single instant so two Report calls land on the
// same calendar day.
type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

// movingClock lets a test advance "now" between Report calls to exercise a
// calendar-day boundary crossing within one Reporter instance.
type movingClock struct{ now *time.Time }

func (m movingClock) Now() time.Time { return *m.now }

// TestReporterDailySummaryBatchesThenFlushes covers scenario
// 6: two adjustments within the same calendar day deliver nothing
// immediately and leave PendingCount()==2; Flush delivers one line
// containing "Daily" and "2 change(s)", then PendingCount resets to 0.
func TestReporterDailySummaryBatchesThenFlushes(t *testing.T) {
	ctx := context.Background()
	ch := &captureChannel{}
	clock := fixedClock{now: time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)}
	cfg := config.ReporterConfig{Enabled: true, Channel: config.ChannelLog, Frequency: config.FrequencyDailySummary}
	r := service.NewReporter(ch, cfg, clock)

	adj1 := service.Adjustment{Parameter: "importanceThreshold", OldValue: "0.5", NewValue: "0.55", Reason: "hot above target", Source: "auto", Timestamp: clock.now}
	adj2 := service.Adjustment{Parameter: "importanceThreshold", OldValue: "0.55", NewValue: "0.6", Reason: "hot above target", Source: "auto", Timestamp: clock.now.Add(time.Hour)}

	require.NoError(t, r.Report(ctx, adj1))
	require.NoError(t, r.Report(ctx, adj2))
	require.Empty(t, ch.sent)
	require.Equal(t, 2, r.PendingCount())

	require.NoError(t, r.Flush(ctx))
	require.Len(t, ch.sent, 1)
	require.Contains(t, ch.sent[0].Body, "Daily")
	require.Contains(t, ch.sent[0].Body, "2 change(s)")
	require.Equal(t, 0, r.PendingCount())
}

// TestReporterOnChangeDeliversImmediately asserts the on-change frequency
// delivers each adjustment without batching.
func TestReporterOnChangeDeliversImmediately(t *testing.T) {
	ctx := context.Background()
	ch := &captureChannel{}
	clock := fixedClock{now: time.Now().UTC()}
	cfg := config.ReporterConfig{Enabled: true, Channel: config.ChannelLog, Frequency: config.FrequencyOnChange}
	r := service.NewReporter(ch, cfg, clock)

	require.NoError(t, r.Report(ctx, service.Adjustment{Parameter: "importanceThreshold", OldValue: "0.5", NewValue: "0.55", Timestamp: clock.now}))
	require.Len(t, ch.sent, 1)
	require.Equal(t, 0, r.PendingCount())
}

// TestReporterDailySummaryFlushesOnDayBoundary asserts a batch that spans
// into a new calendar day auto-flushes the prior day's pending adjustments
// as soon as the next Report call observes the boundary.
func TestReporterDailySummaryFlushesOnDayBoundary(t *testing.T) {
	ctx := context.Background()
	ch := &captureChannel{}
	day1 := time.Date(2026, 7, 29, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 30, 1, 0, 0, 0, time.UTC)
	cfg := config.ReporterConfig{Enabled: true, Channel: config.ChannelLog, Frequency: config.FrequencyDailySummary}

	now := day1
	r := service.NewReporter(ch, cfg, movingClock{now: &now})
	require.NoError(t, r.Report(ctx, service.Adjustment{Parameter: "importanceThreshold", NewValue: "0.55", Timestamp: day1}))
	require.Empty(t, ch.sent)
	require.Equal(t, 1, r.PendingCount())

	now = day2
	require.NoError(t, r.Report(ctx, service.Adjustment{Parameter: "importanceThreshold", NewValue: "0.6", Timestamp: day2}))
	require.Len(t, ch.sent, 1)
	require.Contains(t, ch.sent[0].Body, "1 change(s)")
	require.Equal(t, 1, r.PendingCount())
}
