// Package memory is an in-process backend for the LibraryHub stores. A single
// mutex serialises every operation, which makes the conditional inventory
// and loan updates atomic. It is used by the tests and for local runs.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aoideee/libraryhub/internal/data"
)

// Store keeps the three collections in maps keyed by id.
type Store struct {
	mu         sync.Mutex
	books      map[string]data.Book
	members    map[string]data.Member
	borrowings map[string]data.BorrowRecord
	// inserted records the insertion order of every id, used to break sort ties.
	inserted map[string]uint64
	next     uint64
	now      func() time.Time
}

// New returns an empty Store stamping records with time.Now.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty Store stamping records with now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		books:      make(map[string]data.Book),
		members:    make(map[string]data.Member),
		borrowings: make(map[string]data.BorrowRecord),
		inserted:   make(map[string]uint64),
		now:        now,
	}
}

// Models exposes the Store through the data contracts.
func (s *Store) Models() data.Models {
	return data.Models{
		Books:      BookStore{s},
		Members:    MemberStore{s},
		Borrowings: BorrowingStore{s},
	}
}

// newID must be called with the lock held.
func (s *Store) newID() string {
	id := uuid.NewString()
	s.next++
	s.inserted[id] = s.next
	return id
}

// Close satisfies the same lifecycle as the networked backends.
func (s *Store) Close(context.Context) error { return nil }

// BookStore implements data.BookStore.
type BookStore struct{ s *Store }

// Insert assigns book a new id and timestamps and stores a copy of it.
func (m BookStore) Insert(_ context.Context, book *data.Book) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	now := m.s.now().UTC()
	book.ID = m.s.newID()
	book.CreatedAt = now
	book.UpdatedAt = now
	m.s.books[book.ID] = *book
	return nil
}

// Get returns a copy of the book with the given id.
func (m BookStore) Get(_ context.Context, id string) (*data.Book, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	book, ok := m.s.books[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &book, nil
}

// GetAll returns one page of the books matching filter.
func (m BookStore) GetAll(_ context.Context, filter data.BookFilter) ([]*data.Book, data.Metadata, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	books := []*data.Book{}
	for _, b := range m.s.books {
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if filter.Search != "" &&
			!data.ContainsFold(b.Title, filter.Search) &&
			!data.ContainsFold(b.Author, filter.Search) &&
			!data.ContainsFold(b.ISBN, filter.Search) {
			continue
		}
		book := b
		books = append(books, &book)
	}

	sortRecords(books, filter.Filters, m.s.inserted, func(b *data.Book) string { return b.ID }, func(b *data.Book, field string) any {
		switch field {
		case "title":
			return strings.ToLower(b.Title)
		case "author":
			return strings.ToLower(b.Author)
		case "publishedYear":
			return b.PublishedYear
		default:
			return b.CreatedAt
		}
	})

	page, metadata := data.Paginate(books, filter.Filters)
	return page, metadata, nil
}

// Update saves book if its stored quantity still equals previousQuantity.
func (m BookStore) Update(_ context.Context, book *data.Book, previousQuantity int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.books[book.ID]
	if !ok {
		return data.ErrRecordNotFound
	}
	delta := book.Quantity - stored.Quantity
	if stored.Quantity != previousQuantity || stored.AvailableQuantity+delta < 0 {
		return data.ErrEditConflict
	}

	stored.Title = book.Title
	stored.Author = book.Author
	stored.ISBN = book.ISBN
	stored.Category = book.Category
	stored.PublishedYear = book.PublishedYear
	stored.Description = book.Description
	stored.AvailableQuantity += delta
	stored.Quantity = book.Quantity
	stored.UpdatedAt = m.s.now().UTC()
	m.s.books[book.ID] = stored

	*book = stored
	return nil
}

// Delete removes the book with the given id.
func (m BookStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.books[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.s.books, id)
	delete(m.s.inserted, id)
	return nil
}

// Count returns the number of books held.
func (m BookStore) Count(context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.books), nil
}

// ReserveCopy takes one copy off the shelf if any is left.
func (m BookStore) ReserveCopy(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	book, ok := m.s.books[id]
	if !ok {
		return data.ErrRecordNotFound
	}
	if book.AvailableQuantity <= 0 {
		return data.ErrNoCopiesAvailable
	}
	book.AvailableQuantity--
	book.UpdatedAt = m.s.now().UTC()
	m.s.books[id] = book
	return nil
}

// ReleaseCopy puts one copy back unless every copy is already on the shelf.
func (m BookStore) ReleaseCopy(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	book, ok := m.s.books[id]
	if !ok {
		return data.ErrRecordNotFound
	}
	if book.AvailableQuantity >= book.Quantity {
		return data.ErrInventoryFull
	}
	book.AvailableQuantity++
	book.UpdatedAt = m.s.now().UTC()
	m.s.books[id] = book
	return nil
}

// MemberStore implements data.MemberStore.
type MemberStore struct{ s *Store }

// Insert stores member unless its email is already on file in any letter case.
func (m MemberStore) Insert(_ context.Context, member *data.Member) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if m.emailTaken(member.Email, "") {
		return data.ErrDuplicateEmail
	}

	now := m.s.now().UTC()
	member.ID = m.s.newID()
	member.CreatedAt = now
	member.UpdatedAt = now
	m.s.members[member.ID] = *member
	return nil
}

// emailTaken must be called with the lock held.
func (m MemberStore) emailTaken(email, exceptID string) bool {
	for id, existing := range m.s.members {
		if id != exceptID && strings.EqualFold(existing.Email, email) {
			return true
		}
	}
	return false
}

// Get returns a copy of the member with the given id.
func (m MemberStore) Get(_ context.Context, id string) (*data.Member, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	member, ok := m.s.members[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &member, nil
}

// GetByEmail finds a member by email, ignoring letter case.
func (m MemberStore) GetByEmail(_ context.Context, email string) (*data.Member, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, member := range m.s.members {
		if strings.EqualFold(member.Email, email) {
			return &member, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

// GetAll returns one page of the members matching filter.
func (m MemberStore) GetAll(_ context.Context, filter data.MemberFilter) ([]*data.Member, data.Metadata, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	members := []*data.Member{}
	for _, mb := range m.s.members {
		if filter.Status != "" && mb.Status != filter.Status {
			continue
		}
		if filter.Search != "" &&
			!data.ContainsFold(mb.Name, filter.Search) &&
			!data.ContainsFold(mb.Email, filter.Search) &&
			!data.ContainsFold(mb.Phone, filter.Search) {
			continue
		}
		member := mb
		members = append(members, &member)
	}

	sortRecords(members, filter.Filters, m.s.inserted, func(mb *data.Member) string { return mb.ID }, func(mb *data.Member, field string) any {
		switch field {
		case "name":
			return strings.ToLower(mb.Name)
		case "email":
			return strings.ToLower(mb.Email)
		case "membershipDate":
			return mb.MembershipDate
		default:
			return mb.CreatedAt
		}
	})

	page, metadata := data.Paginate(members, filter.Filters)
	return page, metadata, nil
}

// Update saves member unless another member holds its email.
func (m MemberStore) Update(_ context.Context, member *data.Member) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.members[member.ID]
	if !ok {
		return data.ErrRecordNotFound
	}
	if m.emailTaken(member.Email, member.ID) {
		return data.ErrDuplicateEmail
	}

	member.CreatedAt = stored.CreatedAt
	member.UpdatedAt = m.s.now().UTC()
	m.s.members[member.ID] = *member
	return nil
}

// Delete removes the member with the given id.
func (m MemberStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.members[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.s.members, id)
	delete(m.s.inserted, id)
	return nil
}

// Count returns the number of members held.
func (m MemberStore) Count(context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.members), nil
}

// BorrowingStore implements data.BorrowingStore.
type BorrowingStore struct{ s *Store }

// Insert assigns record a new id and timestamps and stores it.
func (m BorrowingStore) Insert(_ context.Context, record *data.BorrowRecord) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	now := m.s.now().UTC()
	record.ID = m.s.newID()
	record.CreatedAt = now
	record.UpdatedAt = now
	m.s.borrowings[record.ID] = *record
	return nil
}

// Get returns a copy of the loan with the given id.
func (m BorrowingStore) Get(_ context.Context, id string) (*data.BorrowRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	record, ok := m.s.borrowings[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return &record, nil
}

// GetAll returns every loan matching filter, newest first.
func (m BorrowingStore) GetAll(_ context.Context, filter data.BorrowingFilter) ([]*data.BorrowRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	records := []*data.BorrowRecord{}
	for _, r := range m.s.borrowings {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.BookID != "" && r.BookID != filter.BookID {
			continue
		}
		if filter.MemberID != "" && r.MemberID != filter.MemberID {
			continue
		}
		if !filter.DueBefore.IsZero() && !r.DueDate.Before(filter.DueBefore) {
			continue
		}
		if filter.Search != "" &&
			!data.ContainsFold(r.BookTitle, filter.Search) &&
			!data.ContainsFold(r.MemberName, filter.Search) {
			continue
		}
		record := r
		records = append(records, &record)
	}

	slices.SortStableFunc(records, func(a, b *data.BorrowRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(m.s.inserted[b.ID], m.s.inserted[a.ID])
	})

	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

// MarkReturned closes a borrowed loan at the given time.
func (m BorrowingStore) MarkReturned(_ context.Context, id string, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	record, ok := m.s.borrowings[id]
	if !ok {
		return data.ErrRecordNotFound
	}
	if record.Status != data.StatusBorrowed {
		return data.ErrAlreadyReturned
	}
	returnedAt := at.UTC()
	record.Status = data.StatusReturned
	record.ReturnDate = &returnedAt
	record.UpdatedAt = returnedAt
	m.s.borrowings[id] = record
	return nil
}

// Count returns the number of loans held.
func (m BorrowingStore) Count(context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.borrowings), nil
}

// sortRecords orders records by the key extracted for the filter's sort
// field, then by insertion order. Keys are strings, ints or times. It must be
// called with the lock held.
func sortRecords[T any](records []*T, f data.Filters, inserted map[string]uint64, id func(*T) string, key func(*T, string) any) {
	field := f.SortField()
	desc := f.SortDescending()
	slices.SortFunc(records, func(a, b *T) int {
		c := compareKeys(key(a, field), key(b, field))
		if c == 0 {
			c = cmp.Compare(inserted[id(a)], inserted[id(b)])
		}
		if desc {
			return -c
		}
		return c
	})
}

func compareKeys(a, b any) int {
	switch av := a.(type) {
	case string:
		return cmp.Compare(av, b.(string))
	case int:
		return cmp.Compare(av, b.(int))
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	return 0
}
