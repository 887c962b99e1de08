package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBInterface defines the minimal interface needed by the audit store.
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists audit events. Rows are insert-only; there is no
// update or delete path.
type PostgresStore struct {
	db DBInterface
}

// NewPostgresStore creates a Postgres-backed audit store.
func NewPostgresStore(db DBInterface) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert writes one audit event.
func (s *PostgresStore) Insert(ctx context.Context, event *Event) error {
	oldValues, err := marshalValues(event.OldValues)
	if err != nil {
		return fmt.Errorf("encoding old values: %w", err)
	}
	newValues, err := marshalValues(event.NewValues)
	if err != nil {
		return fmt.Errorf("encoding new values: %w", err)
	}
	query, args, err := squirrel.Insert("audit_events").
		Columns(
			"id", "tenant_id", "actor_id", "actor_type", "actor_email",
			"credential_id", "action", "resource_type", "resource_id",
			"method", "path", "old_values", "new_values",
			"status", "status_code", "error_code", "severity",
			"ip", "user_agent", "latency_ms", "created_at",
		).
		Values(
			event.ID, event.TenantID, event.ActorID, event.ActorType, event.ActorEmail,
			event.CredentialID, event.Action, event.ResourceType, event.ResourceID,
			event.Method, event.Path, oldValues, newValues,
			event.Status, event.StatusCode, event.ErrorCode, event.Severity,
			event.IP, event.UserAgent, event.LatencyMS, event.CreatedAt,
		).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building audit insert: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

func marshalValues(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
