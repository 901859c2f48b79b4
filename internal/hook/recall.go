// Package hook implements the two host-triggered hooks: AutoRecallHook
// (before_agent_start) and AutoCaptureHook (agent_end). Both sit on top of
// internal/core.Engine; key-term extraction follows the usual
// keyword-extraction shape
// (extractKeywords: lowercase, split on non-alphanumeric, drop short and
// stop words), also dropping purely numeric tokens and capping the term
// count.
package hook

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/recurator/tram/internal/allocator"
	"github.com/recurator/tram/internal/core"
	"github.com/recurator/tram/internal/model"
	"github.com/recurator/tram/internal/scoring"
	"github.com/recurator/tram/internal/search"
)

const maxKeyTerms = 20

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "are": true, "was": true, "were": true,
	"been": true, "have": true, "has": true, "had": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"can": true, "not": true, "but": true, "all": true, "any": true,
	"how": true, "when": true, "where": true, "what": true, "which": true,
	"who": true, "whom": true, "why": true, "use": true, "using": true,
	"used": true, "get": true, "set": true, "new": true, "make": true,
	"you": true, "your": true, "our": true, "their": true, "its": true,
	"about": true, "into": true, "than": true, "then": true, "them": true,
	"these": true, "those": true, "there": true, "here": true, "just": true,
}

// RequestContext carries the host-supplied identifiers a hook invocation
// needs to resolve profiles and tag feedback rows.
type RequestContext struct {
	SessionKey  string
	SessionType string
	AgentID     string
}

// AutoRecallHook assembles the context block injected before an agent
// run: search, allocate, bump access stats, record feedback.
type AutoRecallHook struct {
	Engine *core.Engine
}

// NewAutoRecallHook wraps engine.
func NewAutoRecallHook(engine *core.Engine) *AutoRecallHook {
	return &AutoRecallHook{Engine: engine}
}

// RecallResult is returned to the host on before_agent_start.
type RecallResult struct {
	ContextBlock     string
	MemoriesInjected int
	CurrentContext   bool
}

// extractKeyTerms lowercases the prompt, splits on non-alphanumerics,
// drops stop words and short or numeric tokens, dedupes preserving order,
// and caps the result at maxKeyTerms.
func extractKeyTerms(prompt string) []string {
	lower := strings.ToLower(prompt)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})

	seen := make(map[string]bool, len(words))
	var terms []string
	for _, w := range words {
		if len(w) < 3 || stopWords[w] || seen[w] {
			continue
		}
		if _, err := strconv.ParseFloat(w, 64); err == nil {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == maxKeyTerms {
			break
		}
	}
	return terms
}

// Run executes the before_agent_start flow. ctx cancellation before step 6
// (the first Store write) aborts with a partial-or-empty result and no
// mutations.
func (h *AutoRecallHook) Run(ctx context.Context, prompt string, rc RequestContext) (RecallResult, error) {
	cfg := h.Engine.Cfg
	sessionCfg := cfg.SessionConfig(rc.SessionType)
	if !sessionCfg.AutoInject {
		return RecallResult{}, nil
	}

	terms := extractKeyTerms(prompt)
	searchText := strings.Join(terms, " ")
	if searchText == "" {
		searchText = strings.TrimSpace(prompt)
	}
	if searchText == "" {
		return RecallResult{}, nil
	}

	profile, err := h.Engine.Resolver.ResolveRetrieval("", rc.AgentID)
	if err != nil {
		return RecallResult{}, err
	}

	maxItems := cfg.Injection.MaxItems
	if maxItems <= 0 {
		maxItems = 10
	}
	candidateLimit := maxItems * 3
	if candidateLimit < 30 {
		candidateLimit = 30
	}

	results, err := search.Search(ctx, h.Engine.St, h.Engine.Vector, h.Engine.Embedder, searchText, candidateLimit, search.Weights{})
	if err != nil {
		return RecallResult{}, err
	}

	now := h.Engine.Clock.Now()
	weights := scoring.DefaultWeights()
	candidates := make([]allocator.Candidate, 0, len(results))
	for _, r := range results {
		m, err := h.Engine.St.GetMemory(ctx, r.MemoryID)
		if err != nil {
			continue
		}
		if m.Forgotten() {
			continue
		}
		score := scoring.Score(m, r.VectorScore, now, weights)
		candidates = append(candidates, allocator.Candidate{Memory: m, Similarity: r.VectorScore, Score: score})
	}

	alloc := allocator.Allocate(candidates, maxItems, profile.Value)

	if ctx.Err() != nil {
		return RecallResult{}, ctx.Err()
	}

	sort.SliceStable(alloc.Selected, func(i, j int) bool {
		return alloc.Selected[i].Score > alloc.Selected[j].Score
	})

	for i := range alloc.Selected {
		m := alloc.Selected[i].Memory
		m.RecordUse(now)
		if err := h.Engine.St.UpdateMemory(ctx, m); err != nil {
			log.Error("hook: record-use update failed", "memory_id", m.ID, "err", err)
			continue
		}
		alloc.Selected[i].Memory = m
	}

	var b strings.Builder
	includesContext := false
	if cc, ok, err := h.Engine.GetContext(ctx); err == nil && ok {
		b.WriteString(cc.Text)
		b.WriteString("\n\n")
		includesContext = true
	}
	for i, c := range alloc.Selected {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.Memory.Text)
	}

	result := RecallResult{
		ContextBlock:     b.String(),
		MemoriesInjected: len(alloc.Selected),
		CurrentContext:   includesContext,
	}

	go h.recordFeedback(alloc, rc, now)

	return result, nil
}

// recordFeedback runs after the result has
// been returned to the host, so it must never block Run's caller. It uses a
// fresh background context since the host's ctx may already be done by the
// time this goroutine runs.
func (h *AutoRecallHook) recordFeedback(alloc allocator.Result, rc RequestContext, now time.Time) {
	if len(alloc.Selected) == 0 {
		return
	}
	sessionKey := rc.SessionKey
	if sessionKey == "" {
		sessionKey = "unknown"
	}
	density := float64(len(alloc.Selected)) / float64(alloc.TotalConsidered)

	ctx := context.Background()
	for _, c := range alloc.Selected {
		feedback := model.InjectionFeedback{
			ID:               model.NewID(),
			MemoryID:         c.Memory.ID,
			SessionKey:       sessionKey,
			InjectedAt:       now,
			AccessFrequency:  0,
			InjectionDensity: density,
			CreatedAt:        now,
		}
		if err := h.Engine.St.AppendFeedback(ctx, feedback); err != nil {
			log.Error("hook: feedback write failed", "memory_id", c.Memory.ID, "err", err)
		}
	}
}
