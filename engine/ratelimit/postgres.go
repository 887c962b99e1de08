package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kishore28kumar/pulss/engine/core"
)

// DBInterface defines the minimal interface needed by the postgres store.
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCounterStore implements CounterStore on the relational store. Old
// window rows are never deleted here; they persist for audit and analytics
// (pruning is a retention-policy concern).
type PostgresCounterStore struct {
	db DBInterface
}

// NewPostgresCounterStore creates a Postgres-backed counter store.
func NewPostgresCounterStore(db DBInterface) *PostgresCounterStore {
	return &PostgresCounterStore{db: db}
}

type counterRow struct {
	WindowType string `db:"window_type"`
	Count      int64  `db:"count"`
}

// Counts reads the current window counters in one query.
func (s *PostgresCounterStore) Counts(
	ctx context.Context,
	credentialID core.ID,
	now time.Time,
) (map[Window]int64, error) {
	conds := make(squirrel.Or, 0, len(Windows))
	for _, w := range Windows {
		conds = append(conds, squirrel.And{
			squirrel.Eq{"window_type": string(w)},
			squirrel.Eq{"window_start": w.Start(now)},
		})
	}
	query, args, err := squirrel.Select("window_type", "count").
		From("rate_window_counters").
		Where(squirrel.And{squirrel.Eq{"credential_id": credentialID}, conds}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building counter select: %w", err)
	}
	var rows []counterRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("scanning counters: %w", err)
	}
	counts := make(map[Window]int64, len(Windows))
	for _, row := range rows {
		counts[Window(row.WindowType)] = row.Count
	}
	return counts, nil
}

// IncrementAll upserts all four window rows in a single statement so the
// create-or-increment is indivisible per window and the statement is atomic
// across windows.
func (s *PostgresCounterStore) IncrementAll(
	ctx context.Context,
	credentialID core.ID,
	now time.Time,
) error {
	builder := squirrel.Insert("rate_window_counters").
		Columns("credential_id", "window_type", "window_start", "count").
		Suffix("ON CONFLICT (credential_id, window_type, window_start) " +
			"DO UPDATE SET count = rate_window_counters.count + 1").
		PlaceholderFormat(squirrel.Dollar)
	for _, w := range Windows {
		builder = builder.Values(credentialID, string(w), w.Start(now), 1)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("building counter upsert: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting counters: %w", err)
	}
	return nil
}
