package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/recurator/tram/internal/config"
	registrychannel "github.com/recurator/tram/internal/registry/channel"
	registrystore "github.com/recurator/tram/internal/registry/store"
)

// Adjustment is one TuningEngine parameter change (or agent/user override)
// to report, paired with the tier counts observed when it was made.
type Adjustment struct {
	Parameter  string
	OldValue   string
	NewValue   string
	Reason     string
	Source     string
	Timestamp  time.Time
	TierCounts map[string]int
}

// Reporter formats TuningEngine adjustments into notifications and
// delivers them on-change or batches them into daily/weekly summaries.
type Reporter struct {
	channel        registrychannel.Channel
	frequency      config.ReporterFrequency
	includeMetrics bool
	clock          registrystore.Clock

	mu        sync.Mutex
	pending   []Adjustment
	batchDay  string // YYYY-MM-DD the pending batch belongs to (daily-summary)
	batchWeek string // ISO-year-week the pending batch belongs to (weekly-summary)
}

// NewReporter wires a Reporter against the resolved delivery channel.
func NewReporter(channel registrychannel.Channel, cfg config.ReporterConfig, clock registrystore.Clock) *Reporter {
	if clock == nil {
		clock = registrystore.SystemClock{}
	}
	return &Reporter{channel: channel, frequency: cfg.Frequency, includeMetrics: cfg.IncludeMetrics, clock: clock}
}

// PendingCount reports how many adjustments are queued for the next batch
// delivery, observability for daily-summary/weekly-summary modes.
func (r *Reporter) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Report records an adjustment, delivering it immediately in on-change
// mode or enqueuing it for the next day/week boundary (or explicit Flush)
// otherwise.
func (r *Reporter) Report(ctx context.Context, adj Adjustment) error {
	if r.frequency == config.FrequencyOnChange || r.frequency == "" {
		return r.deliver(ctx, Notification(r.formatSingle(adj)))
	}

	now := r.clock.Now()
	day := now.Format("2006-01-02")
	year, week := now.ISOWeek()
	weekKey := fmt.Sprintf("%04d-W%02d", year, week)

	r.mu.Lock()
	var toFlush []Adjustment
	switch r.frequency {
	case config.FrequencyDailySummary:
		if r.batchDay != "" && r.batchDay != day {
			toFlush = r.pending
			r.pending = nil
		}
		r.batchDay = day
	case config.FrequencyWeeklySummary:
		if r.batchWeek != "" && r.batchWeek != weekKey {
			toFlush = r.pending
			r.pending = nil
		}
		r.batchWeek = weekKey
	}
	r.pending = append(r.pending, adj)
	r.mu.Unlock()

	if len(toFlush) > 0 {
		return r.deliver(ctx, r.formatBatch(toFlush))
	}
	return nil
}

// Flush delivers any pending batched adjustments immediately and clears
// the queue. Called on shutdown before the store closes.
func (r *Reporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.batchDay = ""
	r.batchWeek = ""
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return r.deliver(ctx, r.formatBatch(batch))
}

func (r *Reporter) deliver(ctx context.Context, n Notification) error {
	if r.channel == nil {
		return nil
	}
	return r.channel.Send(ctx, registrychannel.Notification(n))
}

// Notification mirrors registrychannel.Notification to keep this file free
// of an import cycle concern while still sharing the same field shape.
type Notification registrychannel.Notification

func (r *Reporter) formatSingle(adj Adjustment) Notification {
	title := fmt.Sprintf("TRAM tuning: %s adjusted", adj.Parameter)
	body := fmt.Sprintf("%s: %s -> %s\nreason: %s\nat: %s",
		adj.Parameter, adj.OldValue, adj.NewValue, adj.Reason, adj.Timestamp.Format(time.RFC3339))
	n := Notification{Title: title, Body: body}
	if r.includeMetrics {
		n.Metrics = stringifyCounts(adj.TierCounts)
	}
	return n
}

func (r *Reporter) formatBatch(batch []Adjustment) Notification {
	kind := "Daily"
	if r.frequency == config.FrequencyWeeklySummary {
		kind = "Weekly"
	}
	title := fmt.Sprintf("TRAM tuning: %s Summary", kind)
	var lines []string
	lines = append(lines, fmt.Sprintf("%s Tuning Summary: %d change(s)", kind, len(batch)))
	for _, adj := range batch {
		lines = append(lines, fmt.Sprintf("- %s: %s -> %s (%s)", adj.Parameter, adj.OldValue, adj.NewValue, adj.Reason))
	}
	n := Notification{Title: title, Body: strings.Join(lines, "\n")}
	if r.includeMetrics && len(batch) > 0 {
		n.Metrics = stringifyCounts(batch[len(batch)-1].TierCounts)
	}
	return n
}

func stringifyCounts(counts map[string]int) map[string]string {
	if len(counts) == 0 {
		return nil
	}
	out := make(map[string]string, len(counts))
	for k, v := range counts {
		out[k] = fmt.Sprintf("%d", v)
	}
	return out
}
