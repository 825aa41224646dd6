package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	maxActionLength       = 128
	maxResourceTypeLength = 64
)

// Origin describes where an audited mutation came from.
type Origin struct {
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AuditRecord is an immutable trail entry for a sensitive mutation.
// ActorID is nil for system actions; Before/After are nil when the mutation has no prior or
// resulting state (create/delete).
type AuditRecord struct {
	ID           string          `json:"id"`
	ActorID      *string         `json:"actor_id,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   *string         `json:"resource_id,omitempty"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	Origin       Origin          `json:"origin"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Validate checks the fields every audit record must carry.
func (r *AuditRecord) Validate() error {
	action := strings.TrimSpace(r.Action)
	if action == "" {
		return &ValidationError{Field: "action", Message: "action is required"}
	}
	if len(action) > maxActionLength {
		return &ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("action must not exceed %d characters", maxActionLength),
		}
	}
	if strings.TrimSpace(r.ResourceType) == "" {
		return &ValidationError{Field: "resource_type", Message: "resource type is required"}
	}
	if len(r.ResourceType) > maxResourceTypeLength {
		return &ValidationError{
			Field:   "resource_type",
			Message: fmt.Sprintf("resource type must not exceed %d characters", maxResourceTypeLength),
		}
	}
	if len(r.Before) > 0 && !json.Valid(r.Before) {
		return &ValidationError{Field: "before", Message: "before must be valid JSON"}
	}
	if len(r.After) > 0 && !json.Valid(r.After) {
		return &ValidationError{Field: "after", Message: "after must be valid JSON"}
	}
	return nil
}

// DLQEntry is an audit record waiting in the dead-letter queue.
// ID is unique per enqueue so that two identical records never collide on removal.
type DLQEntry struct {
	ID         string      `json:"id"`
	Record     AuditRecord `json:"record"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

// Age returns how long the entry has been waiting at the given instant.
func (e *DLQEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.EnqueuedAt)
}

// IsStale reports whether the entry has waited longer than staleAfter.
func (e *DLQEntry) IsStale(now time.Time, staleAfter time.Duration) bool {
	return e.Age(now) > staleAfter
}
