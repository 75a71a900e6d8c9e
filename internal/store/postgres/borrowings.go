package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aoideee/libraryhub/internal/data"
)

var borrowingColumns = []any{
	"id", "book_id", "member_id", "book_title", "member_name", "borrow_date",
	"due_date", "return_date", "status", "created_at", "updated_at",
}

type borrowingRow struct {
	ID         string     `db:"id"`
	BookID     string     `db:"book_id"`
	MemberID   string     `db:"member_id"`
	BookTitle  string     `db:"book_title"`
	MemberName string     `db:"member_name"`
	BorrowDate time.Time  `db:"borrow_date"`
	DueDate    time.Time  `db:"due_date"`
	ReturnDate *time.Time `db:"return_date"`
	Status     string     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (r borrowingRow) record() *data.BorrowRecord {
	record := &data.BorrowRecord{
		ID:         r.ID,
		BookID:     r.BookID,
		MemberID:   r.MemberID,
		BookTitle:  r.BookTitle,
		MemberName: r.MemberName,
		BorrowDate: r.BorrowDate.UTC(),
		DueDate:    r.DueDate.UTC(),
		Status:     r.Status,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
	if r.ReturnDate != nil {
		returned := r.ReturnDate.UTC()
		record.ReturnDate = &returned
	}
	return record
}

// BorrowingStore implements data.BorrowingStore over the borrowings table.
type BorrowingStore struct {
	db *sqlx.DB
}

// Insert adds a row for record.
func (m BorrowingStore) Insert(ctx context.Context, record *data.BorrowRecord) error {
	if !validID(record.BookID) {
		return fmt.Errorf("postgres: insert borrowing: malformed book id %q", record.BookID)
	}
	if !validID(record.MemberID) {
		return fmt.Errorf("postgres: insert borrowing: malformed member id %q", record.MemberID)
	}

	ts := now()
	id := uuid.NewString()
	borrowDate := record.BorrowDate.UTC().Truncate(time.Microsecond)
	dueDate := record.DueDate.UTC().Truncate(time.Microsecond)

	query, args, err := dialect.Insert(tableBorrowings).Prepared(true).
		Rows(goqu.Record{
			"id":          id,
			"book_id":     record.BookID,
			"member_id":   record.MemberID,
			"book_title":  record.BookTitle,
			"member_name": record.MemberName,
			"borrow_date": borrowDate,
			"due_date":    dueDate,
			"status":      record.Status,
			"created_at":  ts,
			"updated_at":  ts,
		}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: insert borrowing: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert borrowing: %w", err)
	}

	record.ID = id
	record.BorrowDate = borrowDate
	record.DueDate = dueDate
	record.CreatedAt = ts
	record.UpdatedAt = ts
	return nil
}

// Get selects one loan by id.
func (m BorrowingStore) Get(ctx context.Context, id string) (*data.BorrowRecord, error) {
	if !validID(id) {
		return nil, data.ErrRecordNotFound
	}

	query, args, err := dialect.From(tableBorrowings).Prepared(true).
		Select(borrowingColumns...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: get borrowing: %w", err)
	}

	var row borrowingRow
	if err := m.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrRecordNotFound
		}
		return nil, fmt.Errorf("postgres: get borrowing: %w", err)
	}
	return row.record(), nil
}

// GetAll selects the loans matching filter, newest first.
func (m BorrowingStore) GetAll(ctx context.Context, filter data.BorrowingFilter) ([]*data.BorrowRecord, error) {
	where, ok := borrowingWhere(filter)
	if !ok {
		return []*data.BorrowRecord{}, nil
	}

	ds := dialect.From(tableBorrowings).Prepared(true).
		Select(borrowingColumns...).
		Where(where...).
		Order(goqu.I("created_at").Desc(), goqu.I("seq").Desc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: list borrowings: %w", err)
	}

	var rows []borrowingRow
	if err := m.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("postgres: list borrowings: %w", err)
	}

	records := make([]*data.BorrowRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

// MarkReturned sets the loan returned with an UPDATE guarded on status borrowed.
func (m BorrowingStore) MarkReturned(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return data.ErrRecordNotFound
	}

	returnedAt := at.UTC().Truncate(time.Microsecond)
	ds := dialect.Update(tableBorrowings).Prepared(true).
		Set(goqu.Record{
			"status":      data.StatusReturned,
			"return_date": returnedAt,
			"updated_at":  returnedAt,
		}).
		Where(goqu.C("id").Eq(id), goqu.C("status").Eq(data.StatusBorrowed))

	updated, err := execGuarded(ctx, m.db, ds)
	if err != nil {
		return fmt.Errorf("postgres: mark returned: %w", err)
	}
	if updated {
		return nil
	}

	found, err := exists(ctx, m.db, tableBorrowings, id)
	if err != nil {
		return fmt.Errorf("postgres: mark returned: %w", err)
	}
	if !found {
		return data.ErrRecordNotFound
	}
	return data.ErrAlreadyReturned
}

// Count returns the number of loan rows.
func (m BorrowingStore) Count(ctx context.Context) (int, error) {
	return count(ctx, m.db, tableBorrowings)
}
