// Package model defines the persistent entities TRAM operates over: memories,
// their vectors, audit trail, injection feedback, tuning log, and the small
// key/value meta map. These are plain Go structs — the store package owns
// their SQL mapping.
package model

import "time"

// Tier is an activity classification used by scoring, allocation, and decay.
type Tier string

const (
	TierHot     Tier = "HOT"
	TierWarm    Tier = "WARM"
	TierCold    Tier = "COLD"
	TierArchive Tier = "ARCHIVE"
)

// ValidTier reports whether t is one of the four defined tiers.
func ValidTier(t Tier) bool {
	switch t {
	case TierHot, TierWarm, TierCold, TierArchive:
		return true
	default:
		return false
	}
}

// MemoryType classifies a memory for recency half-life and decay/promotion
// profile lookups.
type MemoryType string

const (
	TypeProcedural MemoryType = "procedural"
	TypeFactual    MemoryType = "factual"
	TypeProject    MemoryType = "project"
	TypeEpisodic   MemoryType = "episodic"
)

// ValidMemoryType reports whether t is one of the four defined memory types.
func ValidMemoryType(t MemoryType) bool {
	switch t {
	case TypeProcedural, TypeFactual, TypeProject, TypeEpisodic:
		return true
	default:
		return false
	}
}

// Memory is a single stored item the agent may recall.
type Memory struct {
	ID             string
	Text           string
	Importance     float64
	Category       string
	CreatedAt      time.Time
	Tier           Tier
	MemoryType     MemoryType
	DoNotInject    bool
	Pinned         bool
	UseCount       int
	LastAccessedAt time.Time
	UseDays        []string // YYYY-MM-DD, ordered, no duplicates
	Source         string
	ParentID       string
}

// Forgotten reports whether the memory is soft-deleted (hidden from default
// queries, restorable until hard-deleted).
func (m *Memory) Forgotten() bool { return m.DoNotInject }

// Eligible reports whether the memory is a candidate for injection: pinned
// memories are always eligible; otherwise the memory must not be forgotten
// and must not be archived.
func (m *Memory) Eligible() bool {
	if m.Pinned {
		return true
	}
	return !m.DoNotInject && m.Tier != TierArchive
}

// HasUseDay reports whether day (YYYY-MM-DD) is already recorded.
func (m *Memory) HasUseDay(day string) bool {
	for _, d := range m.UseDays {
		if d == day {
			return true
		}
	}
	return false
}

// RecordUse increments use_count, bumps last_accessed_at, and adds today's
// date to use_days if not already present. Matches AutoRecallHook step 6 and
// the invariant use_count >= |use_days|.
func (m *Memory) RecordUse(now time.Time) {
	m.UseCount++
	m.LastAccessedAt = now
	day := now.UTC().Format("2006-01-02")
	if !m.HasUseDay(day) {
		m.UseDays = append(m.UseDays, day)
	}
}

// Vector is the float32 embedding for a Memory.
type Vector struct {
	MemoryID string
	Values   []float32
}

// CurrentContext is an ephemeral "active task" note.
type CurrentContext struct {
	ID         string
	Text       string
	CreatedAt  time.Time
	TTLSeconds int
}

// Expired reports whether the context has outlived its TTL as of now.
func (c *CurrentContext) Expired(now time.Time) bool {
	return now.After(c.CreatedAt.Add(time.Duration(c.TTLSeconds) * time.Second))
}

// AuditAction enumerates the recognized AuditEntry actions.
type AuditAction string

const (
	ActionForget  AuditAction = "forget"
	ActionRestore AuditAction = "restore"
	ActionPin     AuditAction = "pin"
	ActionUnpin   AuditAction = "unpin"
	ActionDemote  AuditAction = "demote"
	ActionPromote AuditAction = "promote"
)

// AuditEntry records one state change to a Memory.
type AuditEntry struct {
	ID        string
	MemoryID  string
	Action    AuditAction
	OldValue  map[string]any
	NewValue  map[string]any
	CreatedAt time.Time
}

// InjectionFeedback records one injected memory in one session.
type InjectionFeedback struct {
	ID               string
	MemoryID         string
	SessionKey       string
	InjectedAt       time.Time
	AccessFrequency  int
	SessionOutcome   *string
	InjectionDensity float64
	DecayResistance  *float64
	ProxyScore       *float64
	AgentScore       *float64
	AgentNotes       string
	CreatedAt        time.Time
}

// TuningSource enumerates who caused a TuningLogEntry.
type TuningSource string

const (
	TuningSourceAuto  TuningSource = "auto"
	TuningSourceAgent TuningSource = "agent"
	TuningSourceUser  TuningSource = "user"
)

// TuningLogEntry is an append-only record of a parameter change or override.
type TuningLogEntry struct {
	ID                string
	Timestamp         time.Time
	Parameter         string
	OldValue          string // JSON-encoded scalar
	NewValue          string // JSON-encoded scalar
	Reason            string
	Source            TuningSource
	UserOverrideUntil *time.Time
	Reverted          bool
}

// Meta keys used in the store's key/value map.
const (
	MetaLastDecayRun  = "last_decay_run"
	MetaSchemaVersion = "schema_version"
)

// CurrentSchemaVersion is the schema version this build expects meta's
// schema_version key to converge to after `migrate` runs. The sqlite Store
// applies its full CREATE TABLE IF NOT EXISTS schema unconditionally on
// Open, so migration is recorded in meta for observability rather than
// gating any DDL the Store itself already guarantees.
const CurrentSchemaVersion = "1"
