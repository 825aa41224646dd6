// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"fmt"
	"strings"

	"council-backend/internal/repository"
)

// AuditQueryBuilder builds WHERE clauses for audit log queries.
// It uses PostgreSQL numbered placeholders ($1, $2, etc.).
type AuditQueryBuilder struct{}

// NewAuditQueryBuilder creates a new query builder instance.
func NewAuditQueryBuilder() *AuditQueryBuilder {
	return &AuditQueryBuilder{}
}

// BuildWhereClause builds the WHERE clause and arguments for the given filter.
// Returns an empty clause when no filter field is set. The next free placeholder
// index is returned so callers can append LIMIT/OFFSET parameters.
func (qb *AuditQueryBuilder) BuildWhereClause(filter repository.AuditFilter) (clause string, args []interface{}, nextParam int) {
	var conditions []string
	paramIndex := 1

	add := func(cond string, arg interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, paramIndex))
		args = append(args, arg)
		paramIndex++
	}

	if filter.ActorID != nil {
		add("actor_id = $%d", *filter.ActorID)
	}
	if filter.Action != nil {
		add("action = $%d", *filter.Action)
	}
	if filter.ResourceType != nil {
		add("resource_type = $%d", *filter.ResourceType)
	}
	if filter.ResourceID != nil {
		add("resource_id = $%d", *filter.ResourceID)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}

	if len(conditions) == 0 {
		return "", args, paramIndex
	}
	return "WHERE " + strings.Join(conditions, " AND "), args, paramIndex
}
