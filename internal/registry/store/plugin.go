// Package store defines the Store contract TRAM's memory backends implement,
// plus a plugin registry so the engine can select a backend by name at
// startup.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/recurator/tram/internal/model"
)

// TierFilter narrows ListByTier queries to one or more tiers. A nil
// or empty slice means "all tiers".
type TierFilter []model.Tier

// Contains reports whether t is present in f, or f is empty (match-all).
func (f TierFilter) Contains(t model.Tier) bool {
	if len(f) == 0 {
		return true
	}
	for _, x := range f {
		if x == t {
			return true
		}
	}
	return false
}

// LexicalHit is one scored result from the Store's inverted-index search.
type LexicalHit struct {
	MemoryID string
	Score    float64
}

// Store is the single owner of all persistent TRAM state: memories,
// vectors, current context, audit log, injection feedback, tuning log, and
// metadata. Implementations must serialize writes internally.
type Store interface {
	// Memories
	InsertMemory(ctx context.Context, m model.Memory) (model.Memory, error)
	GetMemory(ctx context.Context, id string) (model.Memory, error)
	UpdateMemory(ctx context.Context, m model.Memory) error
	SoftDeleteMemory(ctx context.Context, id string) error
	HardDeleteMemory(ctx context.Context, id string) error
	ListByTier(ctx context.Context, tiers TierFilter, includeForgotten bool) ([]model.Memory, error)
	ListAll(ctx context.Context, includeForgotten bool) ([]model.Memory, error)

	// Lexical search over an inverted index maintained from the memories
	// table.
	LexicalSearch(ctx context.Context, query string, limit int) ([]LexicalHit, error)
	RebuildLexicalIndex(ctx context.Context) error

	// Vectors
	UpsertVector(ctx context.Context, v model.Vector) error
	GetVector(ctx context.Context, memoryID string) (model.Vector, bool, error)
	DeleteVector(ctx context.Context, memoryID string) error
	AllVectors(ctx context.Context) ([]model.Vector, error)

	// Current context
	SetContext(ctx context.Context, c model.CurrentContext) error
	GetContext(ctx context.Context) (model.CurrentContext, bool, error)
	ClearContext(ctx context.Context) error

	// Audit
	AppendAudit(ctx context.Context, e model.AuditEntry) error
	QueryAudit(ctx context.Context, memoryID string, limit int) ([]model.AuditEntry, error)

	// Injection feedback
	AppendFeedback(ctx context.Context, f model.InjectionFeedback) error
	IncrementFeedbackAccess(ctx context.Context, memoryID string, sessionKey string) error
	QueryFeedback(ctx context.Context, memoryID string, limit int) ([]model.InjectionFeedback, error)

	// Tuning log
	AppendTuningLog(ctx context.Context, e model.TuningLogEntry) error
	QueryTuningLog(ctx context.Context, parameter string, limit int) ([]model.TuningLogEntry, error)
	LatestTuningValue(ctx context.Context, parameter string) (model.TuningLogEntry, bool, error)

	// Meta
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error

	// WithTx runs fn inside a transaction, retrying on lock contention up
	// to the backend's configured bound.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	Close() error
}

// Clock abstracts time.Now so the engines' time-dependent logic (TTLs,
// locks, report batching) is testable without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Loader creates a Store from a DSN-style path (for sqlite, a filesystem
// path).
type Loader func(ctx context.Context, path string) (Store, error)

// Plugin represents a store backend plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin. Called from backend packages' init().
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store backend %q; valid: %v", name, Names())
}
