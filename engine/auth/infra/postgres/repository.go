package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/auth/principal"
	"github.com/kishore28kumar/pulss/engine/core"
)

// DBInterface defines the minimal interface needed by the repository
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements the credential repository interface using PostgreSQL
type Repository struct {
	db DBInterface
}

// NewRepository creates a new credential repository
func NewRepository(db DBInterface) credential.Repository {
	return &Repository{db: db}
}

var credentialColumns = []string{
	"id", "tenant_id", "principal_id", "key_hash", "fingerprint", "key_prefix",
	"name", "scopes", "permissions", "status", "expires_at",
	"rate_limit_per_minute", "rate_limit_per_hour", "rate_limit_per_day", "rate_limit_per_month",
	"usage_total", "usage_success", "usage_failure",
	"last_used_at", "created_at", "updated_at",
}

// credentialRow flattens the credential for scanning; limits and usage
// counters live in plain columns.
type credentialRow struct {
	ID                 core.ID    `db:"id"`
	TenantID           *core.ID   `db:"tenant_id"`
	PrincipalID        core.ID    `db:"principal_id"`
	KeyHash            string     `db:"key_hash"`
	Fingerprint        []byte     `db:"fingerprint"`
	KeyPrefix          string     `db:"key_prefix"`
	Name               string     `db:"name"`
	Scopes             []string   `db:"scopes"`
	Permissions        []byte     `db:"permissions"`
	Status             string     `db:"status"`
	ExpiresAt          *time.Time `db:"expires_at"`
	RateLimitPerMinute int        `db:"rate_limit_per_minute"`
	RateLimitPerHour   int        `db:"rate_limit_per_hour"`
	RateLimitPerDay    int        `db:"rate_limit_per_day"`
	RateLimitPerMonth  int        `db:"rate_limit_per_month"`
	UsageTotal         int64      `db:"usage_total"`
	UsageSuccess       int64      `db:"usage_success"`
	UsageFailure       int64      `db:"usage_failure"`
	LastUsedAt         *time.Time `db:"last_used_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (row *credentialRow) toDomain() (*credential.Credential, error) {
	var permissions map[string][]string
	if len(row.Permissions) > 0 {
		if err := json.Unmarshal(row.Permissions, &permissions); err != nil {
			return nil, fmt.Errorf("decoding credential permissions: %w", err)
		}
	}
	return &credential.Credential{
		ID:          row.ID,
		TenantID:    row.TenantID,
		PrincipalID: row.PrincipalID,
		KeyHash:     row.KeyHash,
		Fingerprint: row.Fingerprint,
		KeyPrefix:   row.KeyPrefix,
		Name:        row.Name,
		Scopes:      row.Scopes,
		Permissions: permissions,
		Status:      credential.Status(row.Status),
		ExpiresAt:   row.ExpiresAt,
		Limits: credential.WindowLimits{
			PerMinute: row.RateLimitPerMinute,
			PerHour:   row.RateLimitPerHour,
			PerDay:    row.RateLimitPerDay,
			PerMonth:  row.RateLimitPerMonth,
		},
		Usage: credential.UsageCounters{
			Total:   row.UsageTotal,
			Success: row.UsageSuccess,
			Failure: row.UsageFailure,
		},
		LastUsedAt: row.LastUsedAt,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// Create persists a new credential
func (r *Repository) Create(ctx context.Context, cred *credential.Credential) error {
	permissions, err := json.Marshal(cred.Permissions)
	if err != nil {
		return fmt.Errorf("encoding credential permissions: %w", err)
	}
	query, args, err := squirrel.Insert("credentials").
		Columns(credentialColumns...).
		Values(
			cred.ID, cred.TenantID, cred.PrincipalID, cred.KeyHash, cred.Fingerprint, cred.KeyPrefix,
			cred.Name, cred.Scopes, permissions, cred.Status, cred.ExpiresAt,
			cred.Limits.PerMinute, cred.Limits.PerHour, cred.Limits.PerDay, cred.Limits.PerMonth,
			cred.Usage.Total, cred.Usage.Success, cred.Usage.Failure,
			cred.LastUsedAt, cred.CreatedAt, cred.UpdatedAt,
		).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting credential: %w", err)
	}
	return nil
}

// GetByID retrieves a credential by ID
func (r *Repository) GetByID(ctx context.Context, id core.ID) (*credential.Credential, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByFingerprint retrieves a credential by its SHA-256 fingerprint
func (r *Repository) GetByFingerprint(ctx context.Context, fingerprint []byte) (*credential.Credential, error) {
	return r.getOne(ctx, squirrel.Eq{"fingerprint": fingerprint})
}

func (r *Repository) getOne(ctx context.Context, pred squirrel.Eq) (*credential.Credential, error) {
	query, args, err := squirrel.Select(credentialColumns...).
		From("credentials").
		Where(pred).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var row credentialRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("scanning credential: %w", err)
	}
	return row.toDomain()
}

// List retrieves credentials within a tenant with pagination
func (r *Repository) List(ctx context.Context, tenantID core.ID, limit, offset int) ([]*credential.Credential, error) {
	query, args, err := squirrel.Select(credentialColumns...).
		From("credentials").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var rows []*credentialRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("scanning credentials: %w", err)
	}
	creds := make([]*credential.Credential, 0, len(rows))
	for _, row := range rows {
		cred, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// UpdateStatus transitions a credential's status
func (r *Repository) UpdateStatus(ctx context.Context, id core.ID, status credential.Status) error {
	query, args, err := squirrel.Update("credentials").
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating credential status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return credential.ErrNotFound
	}
	return nil
}

// TouchLastUsed updates the last-used timestamp and total usage counter in
// one statement
func (r *Repository) TouchLastUsed(ctx context.Context, id core.ID, at time.Time) error {
	query, args, err := squirrel.Update("credentials").
		Set("last_used_at", at).
		Set("usage_total", squirrel.Expr("usage_total + 1")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("touching credential: %w", err)
	}
	return nil
}

// RecordOutcome increments the success or failure usage counter
func (r *Repository) RecordOutcome(ctx context.Context, id core.ID, success bool) error {
	column := "usage_failure"
	if success {
		column = "usage_success"
	}
	query, args, err := squirrel.Update("credentials").
		Set(column, squirrel.Expr(column+" + 1")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("recording credential outcome: %w", err)
	}
	return nil
}

// GetPrincipal retrieves the principal behind a credential
func (r *Repository) GetPrincipal(ctx context.Context, id core.ID) (*principal.Principal, error) {
	query, args, err := squirrel.
		Select("p.id", "p.tenant_id", "p.type", "p.email", "p.super_admin", "p.legacy_role", "p.status", "p.created_at").
		From("principals p").
		Join("credentials c ON c.principal_id = p.id").
		Where(squirrel.Eq{"c.id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var prin principal.Principal
	if err := pgxscan.Get(ctx, r.db, &prin, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("scanning principal: %w", err)
	}
	return &prin, nil
}
