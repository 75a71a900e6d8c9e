// Package postgres stores the LibraryHub collections in PostgreSQL tables.
// Statements are built with goqu and executed through sqlx over lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // register the postgres dialect
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aoideee/libraryhub/internal/data"
)

const (
	dialectPostgres = "postgres"

	tableBooks      = "books"
	tableMembers    = "members"
	tableBorrowings = "borrowings"

	uniqueViolation = "23505"
)

var dialect = goqu.Dialect(dialectPostgres)

// schema is applied on every Open; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		seq bigint GENERATED ALWAYS AS IDENTITY,
		id uuid PRIMARY KEY,
		title text NOT NULL,
		author text NOT NULL,
		isbn text NOT NULL,
		category text NOT NULL DEFAULT '',
		published_year integer NOT NULL,
		quantity integer NOT NULL CHECK (quantity >= 1),
		available_quantity integer NOT NULL CHECK (available_quantity >= 0 AND available_quantity <= quantity),
		description text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS books_category_created_at_idx ON books (category, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS members (
		seq bigint GENERATED ALWAYS AS IDENTITY,
		id uuid PRIMARY KEY,
		name text NOT NULL,
		email text NOT NULL,
		phone text NOT NULL,
		address text NOT NULL DEFAULT '',
		membership_type text NOT NULL,
		status text NOT NULL,
		membership_date timestamptz NOT NULL,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS members_email_key ON members (lower(email))`,
	`CREATE TABLE IF NOT EXISTS borrowings (
		seq bigint GENERATED ALWAYS AS IDENTITY,
		id uuid PRIMARY KEY,
		book_id uuid NOT NULL,
		member_id uuid NOT NULL,
		book_title text NOT NULL,
		member_name text NOT NULL,
		borrow_date timestamptz NOT NULL,
		due_date timestamptz NOT NULL,
		return_date timestamptz,
		status text NOT NULL,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS borrowings_status_created_at_idx ON borrowings (status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS borrowings_member_status_idx ON borrowings (member_id, status)`,
}

// Config holds the connection pool settings.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
	PingDeadline time.Duration
}

// Store owns the connection pool.
type Store struct {
	db *sqlx.DB
}

// Open creates the pool, pings the server within cfg.PingDeadline and applies
// the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingDeadline)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres: migrate: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Models exposes the Store through the data contracts.
func (s *Store) Models() data.Models {
	return data.Models{
		Books:      BookStore{db: s.db},
		Members:    MemberStore{db: s.db},
		Borrowings: BorrowingStore{db: s.db},
	}
}

// Close releases the pool.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

// Truncate empties every table. Only the integration tests call it.
func (s *Store) Truncate(ctx context.Context) error {
	query, _, err := dialect.Truncate(tableBooks, tableMembers, tableBorrowings).ToSQL()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query)
	return err
}

// now is truncated to the microsecond precision timestamptz keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// validID reports whether id is a canonical UUID. Malformed ids never match.
func validID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// exists tells a failed conditional update on a missing row apart from one
// whose guard did not hold.
func exists(ctx context.Context, db *sqlx.DB, table, id string) (bool, error) {
	query, args, err := dialect.From(table).Prepared(true).
		Select(goqu.L("1")).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return false, err
	}

	var one int
	err = db.GetContext(ctx, &one, query, args...)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

func count(ctx context.Context, db *sqlx.DB, table string, where ...goqu.Expression) (int, error) {
	query, args, err := dialect.From(table).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(where...).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}

	var n int
	if err := db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}
	return n, nil
}

// execGuarded runs an UPDATE and reports whether it touched a row.
func execGuarded(ctx context.Context, db *sqlx.DB, ds *goqu.UpdateDataset) (bool, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
