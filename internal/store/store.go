// Package store persists check and booking results to Postgres. The core
// treats persistence as best-effort: a nil *Store is a valid "disabled"
// sink and every method on it is a no-op.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/darren-wangg/court-booker-sub000/internal/models"
)

const (
	KindCheck   = "check"
	KindBooking = "booking"
)

var ErrDuplicate = errors.New("result already recorded")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS results (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	account_id TEXT NOT NULL,
	source TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_results_kind_created ON results(kind, created_at DESC);
`

// Record is one persisted result row. Payload holds the full result
// document as it was produced by the core.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	AccountID string          `json:"accountId"`
	Source    string          `json:"source"`
	Success   bool            `json:"success"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Store struct {
	pool *pgxpool.Pool
}

// Open connects, verifies the connection and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) SaveCheck(ctx context.Context, result models.CheckResult, source, accountID string) error {
	if s == nil {
		return nil
	}
	return s.insert(ctx, KindCheck, accountID, source, result.Success, result)
}

func (s *Store) SaveBooking(ctx context.Context, result models.BookingResult, source, accountID string) error {
	if s == nil {
		return nil
	}
	return s.insert(ctx, KindBooking, accountID, source, result.Success, result)
}

func (s *Store) insert(ctx context.Context, kind, accountID, source string, success bool, payload any) error {
	doc, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", kind, err)
	}
	query, args, err := buildInsert(uuid.New(), kind, accountID, source, success, doc)
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("insert %s result: %w", kind, err)
	}
	return nil
}

// Recent returns the newest records of one kind, newest first. An empty
// kind returns all kinds. A nil store returns no rows.
func (s *Store) Recent(ctx context.Context, kind string, limit int) ([]Record, error) {
	if s == nil {
		return []Record{}, nil
	}
	query, args, err := buildRecent(kind, limit)
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.AccountID, &rec.Source, &rec.Success, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return out, nil
}

func buildInsert(id uuid.UUID, kind, accountID, source string, success bool, payload []byte) (string, []any, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Insert("results").
		Columns("id", "kind", "account_id", "source", "success", "payload").
		Values(id, kind, accountID, source, success, payload).
		ToSql()
}

func buildRecent(kind string, limit int) (string, []any, error) {
	if limit <= 0 {
		limit = 20
	}
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select("id", "kind", "account_id", "source", "success", "payload", "created_at").
		From("results").
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if kind != "" {
		query = query.Where(squirrel.Eq{"kind": kind})
	}
	return query.ToSql()
}
