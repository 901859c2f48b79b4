// Package core wires Store, VectorIndex, Embedder, HybridSearch, Scorer,
// Allocator, and ProfileResolver into the tool-surface operations exposed
// as a Go API (store, recall, forget, restore, pin, unpin, explain,
// set_context, clear_context, tune), one method per public operation with
// an explicit options struct per operation.
package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/model"
	registrycache "github.com/recurator/tram/internal/registry/cache"
	registryembed "github.com/recurator/tram/internal/registry/embed"
	registrystore "github.com/recurator/tram/internal/registry/store"
	registryvector "github.com/recurator/tram/internal/registry/vector"
	"github.com/recurator/tram/internal/scoring"
	"github.com/recurator/tram/internal/search"
)

// duplicateSimilarityThreshold and duplicateLexicalOverlapThreshold gate
// duplicate detection: top-1 vector similarity >= 0.95 plus text identity
// or high lexical overlap.
const (
	duplicateSimilarityThreshold     = 0.95
	duplicateLexicalOverlapThreshold = 0.9
)

// Engine is the facade for the tool-surface operations. AutoRecallHook and
// some CLI commands (list, stats, index) also use the Store directly.
type Engine struct {
	St       registrystore.Store
	Vector   registryvector.Index
	Embedder registryembed.Embedder
	Cache    registrycache.SearchCache
	Cfg      *config.Config
	Resolver *config.Resolver
	Clock    registrystore.Clock
}

// New wires an Engine. cache may be nil (treated as always-miss).
func New(store registrystore.Store, vector registryvector.Index, embedder registryembed.Embedder, cache registrycache.SearchCache, cfg *config.Config, resolver *config.Resolver, clock registrystore.Clock) *Engine {
	if clock == nil {
		clock = registrystore.SystemClock{}
	}
	return &Engine{St: store, Vector: vector, Embedder: embedder, Cache: cache, Cfg: cfg, Resolver: resolver, Clock: clock}
}

// StoreOptions are the store() tool's arguments.
type StoreOptions struct {
	Text       string
	Tier       model.Tier
	MemoryType model.MemoryType
	Importance float64
	Pinned     bool
	Category   string
	Source     string
}

// StoreResult is the store() tool's return shape.
type StoreResult struct {
	ID          string
	Tier        model.Tier
	MemoryType  model.MemoryType
	IsDuplicate bool
	Similarity  float64
}

// Store inserts text as a new memory, or returns the existing memory's id
// with IsDuplicate=true when a near-identical memory already exists.
func (e *Engine) Store(ctx context.Context, opts StoreOptions) (StoreResult, error) {
	if strings.TrimSpace(opts.Text) == "" {
		return StoreResult{}, &model.InvalidInputError{Field: "text", Message: "must not be empty"}
	}
	tier := opts.Tier
	if tier == "" {
		tier = model.TierHot
	}
	if !model.ValidTier(tier) {
		return StoreResult{}, &model.InvalidInputError{Field: "tier", Message: fmt.Sprintf("unknown tier %q", tier)}
	}
	memType := opts.MemoryType
	if memType == "" {
		memType = model.TypeFactual
	}
	if !model.ValidMemoryType(memType) {
		return StoreResult{}, &model.InvalidInputError{Field: "memory_type", Message: fmt.Sprintf("unknown memory_type %q", memType)}
	}
	if opts.Importance < 0 || opts.Importance > 1 {
		return StoreResult{}, &model.InvalidInputError{Field: "importance", Message: "must be in [0,1]"}
	}

	var embedding []float32
	if e.Embedder != nil && e.Embedder.Dimension() > 0 {
		vecs, err := e.Embedder.EmbedTexts(ctx, []string{opts.Text})
		if err != nil {
			return StoreResult{}, &model.ResourceUnavailableError{Resource: "embedder", Cause: err}
		}
		if len(vecs) == 1 {
			embedding = vecs[0]
		}
	}

	if embedding != nil && e.Vector != nil {
		matches, err := e.Vector.Search(ctx, embedding, 1)
		if err != nil {
			return StoreResult{}, &model.ResourceUnavailableError{Resource: "vector index", Cause: err}
		}
		if len(matches) == 1 && matches[0].Score >= duplicateSimilarityThreshold {
			existing, err := e.St.GetMemory(ctx, matches[0].MemoryID)
			if err == nil && (existing.Text == opts.Text || lexicalOverlap(existing.Text, opts.Text) >= duplicateLexicalOverlapThreshold) {
				return StoreResult{ID: existing.ID, Tier: existing.Tier, MemoryType: existing.MemoryType, IsDuplicate: true, Similarity: matches[0].Score}, nil
			}
		}
	}

	now := e.Clock.Now()
	m := model.Memory{
		ID:             model.NewID(),
		Text:           opts.Text,
		Importance:     opts.Importance,
		Category:       opts.Category,
		CreatedAt:      now,
		Tier:           tier,
		MemoryType:     memType,
		Pinned:         opts.Pinned,
		LastAccessedAt: now,
		Source:         opts.Source,
	}

	if err := e.St.WithTx(ctx, func(ctx context.Context) error {
		if _, err := e.St.InsertMemory(ctx, m); err != nil {
			return err
		}
		if embedding != nil {
			return e.St.UpsertVector(ctx, model.Vector{MemoryID: m.ID, Values: embedding})
		}
		return nil
	}); err != nil {
		return StoreResult{}, fmt.Errorf("store memory: %w", err)
	}
	if embedding != nil && e.Vector != nil {
		if err := e.Vector.Upsert(ctx, m.ID, embedding); err != nil {
			log.Error("store: vector index upsert failed", "memory", m.ID, "err", err)
		}
	}

	return StoreResult{ID: m.ID, Tier: m.Tier, MemoryType: m.MemoryType}, nil
}

// lexicalOverlap returns the fraction of tokens in the shorter text that
// also appear in the longer one, a cheap stand-in for high lexical
// overlap.
func lexicalOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	small, big := ta, tb
	if len(tb) < len(ta) {
		small, big = tb, ta
	}
	shared := 0
	for tok := range small {
		if big[tok] {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

func tokenSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		if f != "" {
			out[f] = true
		}
	}
	return out
}

// RecallOptions are the recall() tool's arguments.
type RecallOptions struct {
	Query            string
	Limit            int
	Tier             model.Tier
	IncludeArchive   bool
	IncludeForgotten bool
}

// RecallHit is one recall() result row.
type RecallHit struct {
	ID         string
	Text       string
	Tier       model.Tier
	MemoryType model.MemoryType
	Score      float64
	Pinned     bool
	Forgotten  bool
}

// Recall runs HybridSearch + Scorer over stored memories and returns the
// top Limit hits, filtered per opts. With IncludeArchive and
// IncludeForgotten both false, only non-archived, non-forgotten memories
// come back.
func (e *Engine) Recall(ctx context.Context, opts RecallOptions) ([]RecallHit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	results, err := e.hybridSearch(ctx, opts.Query, limit*4)
	if err != nil {
		return nil, err
	}

	now := e.Clock.Now()
	weights := scoring.DefaultWeights()
	var hits []RecallHit
	for _, r := range results {
		m, err := e.St.GetMemory(ctx, r.MemoryID)
		if err != nil {
			continue
		}
		if !opts.IncludeForgotten && m.Forgotten() {
			continue
		}
		if !opts.IncludeArchive && m.Tier == model.TierArchive {
			continue
		}
		if opts.Tier != "" && m.Tier != opts.Tier {
			continue
		}
		score := scoring.Score(m, r.VectorScore, now, weights)
		hits = append(hits, RecallHit{
			ID: m.ID, Text: m.Text, Tier: m.Tier, MemoryType: m.MemoryType,
			Score: score, Pinned: m.Pinned, Forgotten: m.Forgotten(),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SearchRaw runs HybridSearch directly, exposing each candidate's lexical,
// vector, and combined leg scores without the Scorer/Allocator ranking
// Recall applies — the `search` CLI command's debugging view into why a
// memory did or didn't surface for a query.
func (e *Engine) SearchRaw(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.hybridSearch(ctx, query, limit)
}

// hybridSearch runs search.Search, transparently serving from Cache when
// available and wiring a cache miss's result back in.
func (e *Engine) hybridSearch(ctx context.Context, query string, limit int) ([]search.Result, error) {
	key := fmt.Sprintf("q=%s&limit=%d", query, limit)
	if e.Cache != nil && e.Cache.Available() {
		if cached, ok := e.Cache.Get(ctx, key); ok {
			return cached, nil
		}
	}
	results, err := search.Search(ctx, e.St, e.Vector, e.Embedder, query, limit, search.Weights{})
	if err != nil {
		return nil, err
	}
	if e.Cache != nil && e.Cache.Available() {
		e.Cache.Set(ctx, key, results, 0)
	}
	return results, nil
}

// Forget soft- or hard-deletes a memory.
func (e *Engine) Forget(ctx context.Context, id string, hard bool) error {
	m, err := e.St.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	now := e.Clock.Now()
	if hard {
		return e.St.WithTx(ctx, func(ctx context.Context) error {
			if e.Vector != nil {
				if err := e.Vector.Delete(ctx, id); err != nil {
					log.Error("forget: vector delete failed", "memory", id, "err", err)
				}
			}
			return e.St.HardDeleteMemory(ctx, id)
		})
	}
	return e.St.WithTx(ctx, func(ctx context.Context) error {
		if err := e.St.SoftDeleteMemory(ctx, id); err != nil {
			return err
		}
		return e.St.AppendAudit(ctx, model.AuditEntry{
			ID: model.NewID(), MemoryID: id, Action: model.ActionForget,
			OldValue: map[string]any{"do_not_inject": m.DoNotInject},
			NewValue: map[string]any{"do_not_inject": true},
			CreatedAt: now,
		})
	})
}

// Restore un-forgets a memory, failing with IllegalState if it was not
// forgotten.
func (e *Engine) Restore(ctx context.Context, id string) error {
	m, err := e.St.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if !m.Forgotten() {
		return &model.IllegalStateError{Message: fmt.Sprintf("memory %q is not forgotten", id)}
	}
	m.DoNotInject = false
	now := e.Clock.Now()
	return e.St.WithTx(ctx, func(ctx context.Context) error {
		if err := e.St.UpdateMemory(ctx, m); err != nil {
			return err
		}
		return e.St.AppendAudit(ctx, model.AuditEntry{
			ID: model.NewID(), MemoryID: id, Action: model.ActionRestore,
			OldValue: map[string]any{"do_not_inject": true},
			NewValue: map[string]any{"do_not_inject": false},
			CreatedAt: now,
		})
	})
}

// Pin pins a memory, promoting COLD/ARCHIVE memories to WARM. Fails with IllegalState if already pinned.
func (e *Engine) Pin(ctx context.Context, id string) error {
	m, err := e.St.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if m.Pinned {
		return &model.IllegalStateError{Message: fmt.Sprintf("memory %q is already pinned", id)}
	}
	oldTier := m.Tier
	m.Pinned = true
	if m.Tier == model.TierCold || m.Tier == model.TierArchive {
		m.Tier = model.TierWarm
	}
	now := e.Clock.Now()
	return e.St.WithTx(ctx, func(ctx context.Context) error {
		if err := e.St.UpdateMemory(ctx, m); err != nil {
			return err
		}
		return e.St.AppendAudit(ctx, model.AuditEntry{
			ID: model.NewID(), MemoryID: id, Action: model.ActionPin,
			OldValue: map[string]any{"pinned": false, "tier": string(oldTier)},
			NewValue: map[string]any{"pinned": true, "tier": string(m.Tier)},
			CreatedAt: now,
		})
	})
}

// Unpin unpins a memory. Fails with IllegalState if not pinned.
func (e *Engine) Unpin(ctx context.Context, id string) error {
	m, err := e.St.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if !m.Pinned {
		return &model.IllegalStateError{Message: fmt.Sprintf("memory %q is not pinned", id)}
	}
	m.Pinned = false
	now := e.Clock.Now()
	return e.St.WithTx(ctx, func(ctx context.Context) error {
		if err := e.St.UpdateMemory(ctx, m); err != nil {
			return err
		}
		return e.St.AppendAudit(ctx, model.AuditEntry{
			ID: model.NewID(), MemoryID: id, Action: model.ActionUnpin,
			OldValue: map[string]any{"pinned": true},
			NewValue: map[string]any{"pinned": false},
			CreatedAt: now,
		})
	})
}

// Explain returns the Scorer's breakdown for a memory, optionally against a
// query's similarity (0 if query is empty or embedding fails).
func (e *Engine) Explain(ctx context.Context, id string, query string) (scoring.Explanation, error) {
	m, err := e.St.GetMemory(ctx, id)
	if err != nil {
		return scoring.Explanation{}, err
	}
	similarity := 0.0
	if query != "" && e.Embedder != nil && e.Embedder.Dimension() > 0 && e.Vector != nil {
		vecs, err := e.Embedder.EmbedTexts(ctx, []string{query})
		if err == nil && len(vecs) == 1 {
			matches, err := e.Vector.Search(ctx, vecs[0], 50)
			if err == nil {
				for _, match := range matches {
					if match.MemoryID == id {
						similarity = match.Score
						break
					}
				}
			}
		}
	}
	return scoring.Explain(m, similarity, e.Clock.Now(), scoring.DefaultWeights()), nil
}

// SetContext upserts the ephemeral current-context note.
func (e *Engine) SetContext(ctx context.Context, text string, ttlHours float64) error {
	if ttlHours <= 0 {
		ttlHours = 4
	}
	return e.St.SetContext(ctx, model.CurrentContext{
		ID: "active", Text: text, CreatedAt: e.Clock.Now(),
		TTLSeconds: int(ttlHours * 3600),
	})
}

// ClearContext removes the current-context note.
func (e *Engine) ClearContext(ctx context.Context) error {
	return e.St.ClearContext(ctx)
}

// GetContext returns the current-context note, treating an expired row as
// absent. The sqlite Store returns rows even when stale; this layer does
// the TTL check and lazy cleanup.
func (e *Engine) GetContext(ctx context.Context) (model.CurrentContext, bool, error) {
	c, ok, err := e.St.GetContext(ctx)
	if err != nil || !ok {
		return model.CurrentContext{}, false, err
	}
	if c.Expired(e.Clock.Now()) {
		if err := e.St.ClearContext(ctx); err != nil {
			log.Warn("get_context: lazy cleanup of expired context failed", "err", err)
		}
		return model.CurrentContext{}, false, nil
	}
	return c, true, nil
}

// TuneScope selects where a profile override applies.
type TuneScope string

const (
	ScopeSession TuneScope = "session"
	ScopeAgent   TuneScope = "agent"
	ScopeGlobal  TuneScope = "global"
)

// TuneOptions are the tune() tool's arguments.
type TuneOptions struct {
	Retrieval string
	Decay     string
	Promotion string
	Persist   bool
	Scope     TuneScope
	AgentID   string
}

// TuneResult reports which profile names were resolved and verified.
type TuneResult struct {
	Retrieval string
	Decay     string
	Promotion string
}

// Tune validates and (if Persist) applies profile overrides, enforcing
// the session-scope restriction that decay/promotion profiles
// must not be set at session scope.
func (e *Engine) Tune(ctx context.Context, opts TuneOptions) (TuneResult, error) {
	scope := opts.Scope
	if scope == "" {
		scope = ScopeSession
	}
	if scope == ScopeSession && (opts.Decay != "" || opts.Promotion != "") {
		return TuneResult{}, &model.InvalidInputError{Field: "scope", Message: "decay and promotion profiles must not be set at session scope"}
	}

	var result TuneResult
	if opts.Retrieval != "" {
		if _, err := e.Resolver.ResolveRetrieval(opts.Retrieval, ""); err != nil {
			return TuneResult{}, &model.InvalidInputError{Field: "retrieval", Message: err.Error()}
		}
		result.Retrieval = opts.Retrieval
	}
	if opts.Decay != "" {
		if !e.knownDecayProfile(opts.Decay) {
			return TuneResult{}, &model.InvalidInputError{Field: "decay", Message: fmt.Sprintf("unknown decay profile %q", opts.Decay)}
		}
		result.Decay = opts.Decay
	}
	if opts.Promotion != "" {
		if !e.knownPromotionProfile(opts.Promotion) {
			return TuneResult{}, &model.InvalidInputError{Field: "promotion", Message: fmt.Sprintf("unknown promotion profile %q", opts.Promotion)}
		}
		result.Promotion = opts.Promotion
	}

	if opts.Persist {
		if scope == ScopeAgent && opts.AgentID == "" {
			return TuneResult{}, &model.InvalidInputError{Field: "agent", Message: "agent id is required when scope=agent and persist=true"}
		}
		if scope == ScopeGlobal {
			if result.Retrieval != "" {
				e.Cfg.GlobalRetrievalProfile = result.Retrieval
			}
			if result.Decay != "" {
				e.Cfg.GlobalDecayProfile = result.Decay
			}
			if result.Promotion != "" {
				e.Cfg.GlobalPromotionProfile = result.Promotion
			}
		} else if scope == ScopeAgent {
			a := e.Cfg.Agents[opts.AgentID]
			if result.Retrieval != "" {
				a.Retrieval = result.Retrieval
			}
			if result.Decay != "" {
				a.Decay = result.Decay
			}
			if result.Promotion != "" {
				a.Promotion = result.Promotion
			}
			e.Cfg.Agents[opts.AgentID] = a
		}
	}

	return result, nil
}

func (e *Engine) knownDecayProfile(name string) bool {
	if _, ok := e.Cfg.DecayProfiles[name]; ok {
		return true
	}
	_, ok := config.BuiltinDecayProfiles[name]
	return ok
}

func (e *Engine) knownPromotionProfile(name string) bool {
	if _, ok := e.Cfg.PromotionProfiles[name]; ok {
		return true
	}
	_, ok := config.BuiltinPromotionProfiles[name]
	return ok
}

