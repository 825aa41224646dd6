package repository

import (
	"context"
	"time"

	"council-backend/internal/domain/entity"
)

const (
	// DefaultAuditQueryLimit is used when AuditFilter.Limit is zero.
	DefaultAuditQueryLimit = 100
	// MaxAuditQueryLimit caps a single page of audit records.
	MaxAuditQueryLimit = 1000
)

// AuditFilter contains optional filters for audit log queries.
// Nil pointer fields are not applied.
type AuditFilter struct {
	ActorID      *string    // Optional: exact actor match
	Action       *string    // Optional: exact action match
	ResourceType *string    // Optional: exact resource type match
	ResourceID   *string    // Optional: exact resource id match
	From         *time.Time // Optional: created_at >= From
	To           *time.Time // Optional: created_at <= To
	Limit        int
	Offset       int
}

// Normalize applies pagination defaults and bounds.
func (f AuditFilter) Normalize() AuditFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultAuditQueryLimit
	}
	if f.Limit > MaxAuditQueryLimit {
		f.Limit = MaxAuditQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// AuditLogRepository is the persistent log store for committed audit records.
type AuditLogRepository interface {
	// Insert durably appends a record. The record is committed once Insert returns nil.
	Insert(ctx context.Context, record *entity.AuditRecord) error
	// Select returns records matching the filter ordered by created_at DESC.
	// Returns an empty slice (not nil) when nothing matches.
	Select(ctx context.Context, filter AuditFilter) ([]*entity.AuditRecord, error)
}
