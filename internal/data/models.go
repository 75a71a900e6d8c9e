// Package data holds the LibraryHub record types and the contracts every
// storage backend implements for the books, members and borrowings
// collections.
package data

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/aoideee/libraryhub/internal/validator"
)

var (
	// ErrRecordNotFound is returned when no document matches the given id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrEditConflict is returned when a document changed between read and write.
	ErrEditConflict = errors.New("edit conflict")
	// ErrDuplicateEmail is returned when a member with the email already exists.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrNoCopiesAvailable is returned by ReserveCopy when availableQuantity is zero.
	ErrNoCopiesAvailable = errors.New("no copies available")
	// ErrInventoryFull is returned by ReleaseCopy when availableQuantity already equals quantity.
	ErrInventoryFull = errors.New("all copies already on shelf")
	// ErrAlreadyReturned is returned by MarkReturned when the loan is not outstanding.
	ErrAlreadyReturned = errors.New("borrowing already returned")
)

// Models groups the three collection stores. It is built once at start-up by
// whichever backend was configured and handed to the HTTP layer.
type Models struct {
	Books      BookStore
	Members    MemberStore
	Borrowings BorrowingStore
}

// BookStore is the inventory ledger.
type BookStore interface {
	Insert(ctx context.Context, book *Book) error
	Get(ctx context.Context, id string) (*Book, error)
	GetAll(ctx context.Context, filter BookFilter) ([]*Book, Metadata, error)
	// Update writes the editable fields of book. The write only applies while
	// the stored quantity still equals previousQuantity; availableQuantity is
	// shifted by the quantity delta in the same operation.
	Update(ctx context.Context, book *Book, previousQuantity int) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// ReserveCopy decrements availableQuantity if it is positive, atomically.
	ReserveCopy(ctx context.Context, id string) error
	// ReleaseCopy increments availableQuantity if it is below quantity, atomically.
	ReleaseCopy(ctx context.Context, id string) error
}

// MemberStore holds library members.
type MemberStore interface {
	Insert(ctx context.Context, member *Member) error
	Get(ctx context.Context, id string) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	GetAll(ctx context.Context, filter MemberFilter) ([]*Member, Metadata, error)
	Update(ctx context.Context, member *Member) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// BorrowingStore is the loan record store. GetAll matches stored fields only;
// overdue projection is the caller's job.
type BorrowingStore interface {
	Insert(ctx context.Context, record *BorrowRecord) error
	Get(ctx context.Context, id string) (*BorrowRecord, error)
	GetAll(ctx context.Context, filter BorrowingFilter) ([]*BorrowRecord, error)
	// MarkReturned flips a borrowed record to returned at the given time, atomically.
	MarkReturned(ctx context.Context, id string, at time.Time) error
	Count(ctx context.Context) (int, error)
}

// Filters holds pagination and sorting parameters extracted from URL query strings.
// A PageSize of zero disables pagination.
type Filters struct {
	Page         int
	PageSize     int
	Sort         string
	SortSafeList []string
}

// DefaultSort is used by every list endpoint when no sort is given.
const DefaultSort = "-createdAt"

// ValidateFilters checks the page bounds and that Sort is in the safe list.
func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(f.PageSize <= 100, "page_size", "must be a maximum of 100")
	v.Check(validator.PermittedValue(f.Sort, f.SortSafeList...), "sort", "invalid sort value")
}

// SortField returns the field name to sort by, without the direction prefix.
func (f Filters) SortField() string {
	for _, safe := range f.SortSafeList {
		if f.Sort == safe {
			return strings.TrimPrefix(f.Sort, "-")
		}
	}
	return "createdAt"
}

// SortDescending reports whether Sort carries the "-" prefix. An unknown sort
// falls back to newest first.
func (f Filters) SortDescending() bool {
	for _, safe := range f.SortSafeList {
		if f.Sort == safe {
			return strings.HasPrefix(f.Sort, "-")
		}
	}
	return true
}

// Limit returns the page size, or zero when pagination is disabled.
func (f Filters) Limit() int {
	if f.PageSize < 0 {
		return 0
	}
	return f.PageSize
}

// Offset returns the number of records to skip.
func (f Filters) Offset() int {
	if f.Page < 1 || f.PageSize < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Metadata contains pagination information returned alongside list responses.
type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

// CalculateMetadata computes page metadata from the total record count and filter values.
func CalculateMetadata(totalRecords int, f Filters) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	page, pageSize := f.Page, f.PageSize
	if pageSize < 1 {
		page, pageSize = 1, totalRecords
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}

// Paginate cuts one page out of items, which must already be sorted.
func Paginate[T any](items []T, f Filters) ([]T, Metadata) {
	metadata := CalculateMetadata(len(items), f)
	start := min(f.Offset(), len(items))
	end := len(items)
	if limit := f.Limit(); limit > 0 {
		end = min(start+limit, len(items))
	}
	page := items[start:end]
	if page == nil {
		page = []T{}
	}
	return page, metadata
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
