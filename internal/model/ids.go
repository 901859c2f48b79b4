package model

import "github.com/google/uuid"

// NewID mints a new opaque 128-bit identifier for a Memory, AuditEntry,
// InjectionFeedback, or TuningLogEntry.
func NewID() string {
	return uuid.New().String()
}
