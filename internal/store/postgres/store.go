// Package postgres implements core.Store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/pokedex/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PoolOptions configures the connection pool.
type PoolOptions struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens and verifies a connection pool.
func Connect(ctx context.Context, opts PoolOptions) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	slog.Info("connected to database", "database", poolConfig.ConnConfig.Database)
	return pool, nil
}

// Store is the PostgreSQL record store.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// New creates a Store on an open pool. The caller owns the pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the record table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table %s: %w", TableName, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create inserts f under max id + 1. The advisory lock serializes id
// assignment across connections until the transaction ends.
func (s *Store) Create(ctx context.Context, f core.Fields) (core.Record, error) {
	var rec core.Record
	err := s.withIDLock(ctx, func(tx pgx.Tx, nextID int64) error {
		sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			TableName, selectList, placeholders(len(insertColumns)), selectList)
		var err error
		rec, err = scanRecord(tx.QueryRow(ctx, sql, rowValues(nextID, f)...))
		return err
	})
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}
	return rec, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id int64) (core.Record, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectList, TableName)
	rec, err := scanRecord(s.pool.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Record{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return rec, nil
}

// List runs a filtered, ordered, paginated select.
func (s *Store) List(ctx context.Context, q core.ListQuery) ([]core.Record, error) {
	if q.Empty() {
		return []core.Record{}, nil
	}

	sql, args := buildListSQL(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []core.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Replace overwrites every attribute of an existing record.
func (s *Store) Replace(ctx context.Context, id int64, f core.Fields) (core.Record, error) {
	assignments := make([]core.Assignment, 0, len(insertColumns)-1)
	values := rowValues(id, f)
	for i, col := range insertColumns[1:] {
		assignments = append(assignments, core.Assignment{Column: col, Value: values[i+1]})
	}
	return s.update(ctx, id, assignments)
}

// Patch overwrites the supplied attributes of an existing record.
func (s *Store) Patch(ctx context.Context, id int64, p core.Patch) (core.Record, error) {
	assignments := p.Assignments()
	if len(assignments) == 0 {
		return s.Get(ctx, id)
	}
	return s.update(ctx, id, assignments)
}

func (s *Store) update(ctx context.Context, id int64, assignments []core.Assignment) (core.Record, error) {
	sql, args := buildPatchSQL(id, assignments)
	rec, err := scanRecord(s.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Record{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("update record %d: %w", id, err)
	}
	return rec, nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", TableName), id)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{ID: id}
	}
	return nil
}

// BulkCreate copies every entry in with consecutive ids in one transaction.
// On any failure the transaction is rolled back and a *core.StoreError is
// returned.
func (s *Store) BulkCreate(ctx context.Context, batch []core.Fields) (core.BulkResult, error) {
	if len(batch) == 0 {
		return core.BulkResult{}, nil
	}

	var res core.BulkResult
	err := s.withIDLock(ctx, func(tx pgx.Tx, first int64) error {
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{TableName},
			insertColumns,
			pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
				return rowValues(first+int64(i), batch[i]), nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
		res = core.BulkResult{
			FirstID:  first,
			LastID:   first + n - 1,
			Inserted: int(n),
		}
		return nil
	})
	if err != nil {
		return core.BulkResult{}, &core.StoreError{Op: "bulk insert", Err: err}
	}
	return res, nil
}

// withIDLock runs fn in a transaction holding the id-assignment lock, passing
// the next free id. The transaction commits only when fn succeeds.
func (s *Store) withIDLock(ctx context.Context, fn func(tx pgx.Tx, nextID int64) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op if already committed

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", idLockKey); err != nil {
		return fmt.Errorf("acquire id lock: %w", err)
	}

	var maxID int64
	if err := tx.QueryRow(ctx, fmt.Sprintf("SELECT COALESCE(MAX(id), 0) FROM %s", TableName)).Scan(&maxID); err != nil {
		return fmt.Errorf("read max id: %w", err)
	}

	if err := fn(tx, maxID+1); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (core.Record, error) {
	var (
		r  core.Record
		id int32
	)
	err := row.Scan(
		&id, &r.Name, &r.Type1, &r.Type2, &r.Total, &r.HP, &r.Attack,
		&r.Defense, &r.SpAtk, &r.SpDef, &r.Speed, &r.Generation, &r.Legendary,
	)
	r.ID = int64(id)
	return r, err
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ps, ", ")
}
