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

var bookColumns = []any{
	"id", "title", "author", "isbn", "category", "published_year",
	"quantity", "available_quantity", "description", "created_at", "updated_at",
}

type bookRow struct {
	ID                string    `db:"id"`
	Title             string    `db:"title"`
	Author            string    `db:"author"`
	ISBN              string    `db:"isbn"`
	Category          string    `db:"category"`
	PublishedYear     int       `db:"published_year"`
	Quantity          int       `db:"quantity"`
	AvailableQuantity int       `db:"available_quantity"`
	Description       string    `db:"description"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r bookRow) book() *data.Book {
	return &data.Book{
		ID:                r.ID,
		Title:             r.Title,
		Author:            r.Author,
		ISBN:              r.ISBN,
		Category:          r.Category,
		PublishedYear:     r.PublishedYear,
		Quantity:          r.Quantity,
		AvailableQuantity: r.AvailableQuantity,
		Description:       r.Description,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

// BookStore implements data.BookStore over the books table.
type BookStore struct {
	db *sqlx.DB
}

// Insert adds a row for book and writes the generated id and timestamps back.
func (m BookStore) Insert(ctx context.Context, book *data.Book) error {
	ts := now()
	id := uuid.NewString()

	query, args, err := dialect.Insert(tableBooks).Prepared(true).
		Rows(goqu.Record{
			"id":                 id,
			"title":              book.Title,
			"author":             book.Author,
			"isbn":               book.ISBN,
			"category":           book.Category,
			"published_year":     book.PublishedYear,
			"quantity":           book.Quantity,
			"available_quantity": book.AvailableQuantity,
			"description":        book.Description,
			"created_at":         ts,
			"updated_at":         ts,
		}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: insert book: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert book: %w", err)
	}

	book.ID = id
	book.CreatedAt = ts
	book.UpdatedAt = ts
	return nil
}

// Get selects one book by id.
func (m BookStore) Get(ctx context.Context, id string) (*data.Book, error) {
	if !validID(id) {
		return nil, data.ErrRecordNotFound
	}

	query, args, err := dialect.From(tableBooks).Prepared(true).
		Select(bookColumns...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: get book: %w", err)
	}

	var row bookRow
	if err := m.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrRecordNotFound
		}
		return nil, fmt.Errorf("postgres: get book: %w", err)
	}
	return row.book(), nil
}

// GetAll selects one page of the books matching filter along with the total.
func (m BookStore) GetAll(ctx context.Context, filter data.BookFilter) ([]*data.Book, data.Metadata, error) {
	where := bookWhere(filter)

	total, err := count(ctx, m.db, tableBooks, where...)
	if err != nil {
		return nil, data.Metadata{}, err
	}

	query, args, err := selectPage(tableBooks, bookColumns, where, filter.Filters).ToSQL()
	if err != nil {
		return nil, data.Metadata{}, fmt.Errorf("postgres: list books: %w", err)
	}

	var rows []bookRow
	if err := m.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, data.Metadata{}, fmt.Errorf("postgres: list books: %w", err)
	}

	books := make([]*data.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.book())
	}
	return books, data.CalculateMetadata(total, filter.Filters), nil
}

// Update rewrites the row if quantity still equals previousQuantity, shifting available_quantity by the difference.
func (m BookStore) Update(ctx context.Context, book *data.Book, previousQuantity int) error {
	if !validID(book.ID) {
		return data.ErrRecordNotFound
	}

	delta := book.Quantity - previousQuantity
	query, args, err := dialect.Update(tableBooks).Prepared(true).
		Set(goqu.Record{
			"title":              book.Title,
			"author":             book.Author,
			"isbn":               book.ISBN,
			"category":           book.Category,
			"published_year":     book.PublishedYear,
			"quantity":           book.Quantity,
			"available_quantity": goqu.L("available_quantity + ?", delta),
			"description":        book.Description,
			"updated_at":         now(),
		}).
		Where(
			goqu.C("id").Eq(book.ID),
			goqu.C("quantity").Eq(previousQuantity),
			goqu.C("available_quantity").Gte(-delta),
		).
		Returning(bookColumns...).
		ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: update book: %w", err)
	}

	var row bookRow
	if err := m.db.GetContext(ctx, &row, query, args...); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("postgres: update book: %w", err)
		}
		found, existsErr := exists(ctx, m.db, tableBooks, book.ID)
		if existsErr != nil {
			return fmt.Errorf("postgres: update book: %w", existsErr)
		}
		if !found {
			return data.ErrRecordNotFound
		}
		return data.ErrEditConflict
	}

	*book = *row.book()
	return nil
}

// Delete removes one book row.
func (m BookStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return data.ErrRecordNotFound
	}

	query, args, err := dialect.Delete(tableBooks).Prepared(true).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: delete book: %w", err)
	}

	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: delete book: %w", err)
	}
	if n == 0 {
		return data.ErrRecordNotFound
	}
	return nil
}

// Count returns the number of book rows.
func (m BookStore) Count(ctx context.Context) (int, error) {
	return count(ctx, m.db, tableBooks)
}

// ReserveCopy decrements available_quantity with an UPDATE guarded on it being positive.
func (m BookStore) ReserveCopy(ctx context.Context, id string) error {
	return m.adjustCopies(ctx, id, -1,
		goqu.C("available_quantity").Gt(0),
		data.ErrNoCopiesAvailable,
	)
}

// ReleaseCopy increments available_quantity with an UPDATE guarded on it being below quantity.
func (m BookStore) ReleaseCopy(ctx context.Context, id string) error {
	return m.adjustCopies(ctx, id, 1,
		goqu.C("available_quantity").Lt(goqu.I("quantity")),
		data.ErrInventoryFull,
	)
}

// adjustCopies applies delta to available_quantity in one UPDATE guarded by
// guard, returning guardErr when the book exists but the guard fails.
func (m BookStore) adjustCopies(ctx context.Context, id string, delta int, guard goqu.Expression, guardErr error) error {
	if !validID(id) {
		return data.ErrRecordNotFound
	}

	ds := dialect.Update(tableBooks).Prepared(true).
		Set(goqu.Record{
			"available_quantity": goqu.L("available_quantity + ?", delta),
			"updated_at":         now(),
		}).
		Where(goqu.C("id").Eq(id), guard)

	updated, err := execGuarded(ctx, m.db, ds)
	if err != nil {
		return fmt.Errorf("postgres: adjust copies: %w", err)
	}
	if updated {
		return nil
	}

	found, err := exists(ctx, m.db, tableBooks, id)
	if err != nil {
		return fmt.Errorf("postgres: adjust copies: %w", err)
	}
	if !found {
		return data.ErrRecordNotFound
	}
	return guardErr
}
