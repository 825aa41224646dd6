package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"council-backend/internal/domain/entity"
	"council-backend/internal/repository"
)

// DBTX is the part of *sql.DB the repository needs. A circuit-breaker guarded
// connection satisfies it as well.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type AuditLogRepo struct {
	db DBTX
	qb *AuditQueryBuilder
}

func NewAuditLogRepo(db DBTX) repository.AuditLogRepository {
	return &AuditLogRepo{db: db, qb: NewAuditQueryBuilder()}
}

const auditColumns = `id, actor_id, action, resource_type, resource_id,
before_value, after_value, ip_address, user_agent, metadata, created_at`

func (repo *AuditLogRepo) Insert(ctx context.Context, record *entity.AuditRecord) error {
	const query = `
INSERT INTO audit_logs (` + auditColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`

	metadata, err := marshalMetadata(record.Origin.Metadata)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	_, err = repo.db.ExecContext(ctx, query,
		record.ID,
		record.ActorID,
		record.Action,
		record.ResourceType,
		record.ResourceID,
		nullableJSON(record.Before),
		nullableJSON(record.After),
		nullableString(record.Origin.IPAddress),
		nullableString(record.Origin.UserAgent),
		metadata,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

func (repo *AuditLogRepo) Select(ctx context.Context, filter repository.AuditFilter) ([]*entity.AuditRecord, error) {
	filter = filter.Normalize()
	where, args, next := repo.qb.BuildWhereClause(filter)

	query := fmt.Sprintf(`
SELECT %s
FROM audit_logs
%s
ORDER BY created_at DESC, id DESC
LIMIT $%d OFFSET $%d`, auditColumns, where, next, next+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Select: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*entity.AuditRecord, 0, filter.Limit)
	for rows.Next() {
		record, err := scanAuditRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("Select: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanAuditRecord(rows *sql.Rows) (*entity.AuditRecord, error) {
	var (
		record                 entity.AuditRecord
		actorID, resourceID    sql.NullString
		ipAddress, userAgent   sql.NullString
		before, after, rawMeta []byte
	)
	if err := rows.Scan(
		&record.ID, &actorID, &record.Action, &record.ResourceType, &resourceID,
		&before, &after, &ipAddress, &userAgent, &rawMeta, &record.CreatedAt,
	); err != nil {
		return nil, err
	}

	if actorID.Valid {
		record.ActorID = &actorID.String
	}
	if resourceID.Valid {
		record.ResourceID = &resourceID.String
	}
	if len(before) > 0 {
		record.Before = json.RawMessage(before)
	}
	if len(after) > 0 {
		record.After = json.RawMessage(after)
	}
	record.Origin.IPAddress = ipAddress.String
	record.Origin.UserAgent = userAgent.String
	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &record.Origin.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &record, nil
}

func marshalMetadata(m map[string]any) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return b, nil
}

// nullableJSON maps an empty payload to SQL NULL instead of an empty JSONB value.
func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
