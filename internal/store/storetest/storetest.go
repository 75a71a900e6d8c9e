// Package storetest is a behavioural test suite every data.Models backend
// must pass. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/libraryhub/internal/data"
)

// Open returns an empty set of stores. It is called once per subtest.
type Open func(t *testing.T) data.Models

// MissingID matches no record in any backend.
const MissingID = "00000000-0000-4000-8000-000000000000"

// Run executes the suite against the backend produced by open.
func Run(t *testing.T, open Open) {
	tests := []struct {
		name string
		run  func(t *testing.T, ctx context.Context, m data.Models)
	}{
		{"book_insert_and_get", bookInsertAndGet},
		{"book_unknown_ids", bookUnknownIDs},
		{"book_list_search_and_sort", bookListSearchAndSort},
		{"book_sort_ignores_letter_case", bookSortIgnoresLetterCase},
		{"book_update_shifts_available_copies", bookUpdateShiftsAvailable},
		{"book_update_rejects_stale_quantity", bookUpdateRejectsStaleQuantity},
		{"book_reserve_and_release_guards", bookReserveAndReleaseGuards},
		{"book_concurrent_reserve", bookConcurrentReserve},
		{"book_delete", bookDelete},
		{"member_duplicate_email", memberDuplicateEmail},
		{"member_list_filters", memberListFilters},
		{"member_update_and_delete", memberUpdateAndDelete},
		{"borrowing_insert_and_filters", borrowingInsertAndFilters},
		{"borrowing_mark_returned_once", borrowingMarkReturnedOnce},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			tc.run(t, ctx, open(t))
		})
	}
}

func givenBook(t *testing.T, ctx context.Context, m data.Models, title string, quantity int) *data.Book {
	t.Helper()

	book := &data.Book{
		Title:             title,
		Author:            "Octavia E. Butler",
		ISBN:              "9780446675505",
		Category:          "Fiction",
		PublishedYear:     1993,
		Quantity:          quantity,
		AvailableQuantity: quantity,
	}
	require.NoError(t, m.Books.Insert(ctx, book))
	return book
}

func givenMember(t *testing.T, ctx context.Context, m data.Models, name, email string) *data.Member {
	t.Helper()

	member := &data.Member{
		Name:           name,
		Email:          email,
		Phone:          "555-0100",
		Address:        "1 Library Lane",
		MembershipType: data.MembershipStandard,
		Status:         data.MemberActive,
		MembershipDate: time.Now().UTC(),
	}
	require.NoError(t, m.Members.Insert(ctx, member))
	return member
}

func bookInsertAndGet(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	book := givenBook(t, ctx, m, "Parable of the Sower", 3)

	// act
	got, err := m.Books.Get(ctx, book.ID)

	// assert
	require.NoError(t, err)
	assert.NotEmpty(t, book.ID)
	assert.False(t, book.CreatedAt.IsZero())
	assert.Equal(t, book.Title, got.Title)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, 3, got.AvailableQuantity)
	assert.True(t, book.CreatedAt.Equal(got.CreatedAt))

	n, err := m.Books.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func bookUnknownIDs(t *testing.T, ctx context.Context, m data.Models) {
	for _, id := range []string{MissingID, "not-an-id", ""} {
		_, err := m.Books.Get(ctx, id)
		assert.ErrorIs(t, err, data.ErrRecordNotFound, "get %q", id)
		assert.ErrorIs(t, m.Books.Delete(ctx, id), data.ErrRecordNotFound, "delete %q", id)
		assert.ErrorIs(t, m.Books.ReserveCopy(ctx, id), data.ErrRecordNotFound, "reserve %q", id)
		assert.ErrorIs(t, m.Books.ReleaseCopy(ctx, id), data.ErrRecordNotFound, "release %q", id)
	}
}

func bookListSearchAndSort(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	givenBook(t, ctx, m, "Kindred", 1)
	givenBook(t, ctx, m, "Dawn", 1)
	givenBook(t, ctx, m, "Wolf at 100%", 1)
	givenBook(t, ctx, m, "Wolf at 1000", 1)

	// act
	byTitle, _, err := m.Books.GetAll(ctx, data.BookFilter{Filters: data.Filters{
		Page: 1, PageSize: 2, Sort: "title", SortSafeList: data.BookSortSafeList,
	}})
	require.NoError(t, err)
	literal, _, err := m.Books.GetAll(ctx, data.BookFilter{Search: "0%", Filters: data.Filters{
		Page: 1, PageSize: 20, Sort: data.DefaultSort, SortSafeList: data.BookSortSafeList,
	}})
	require.NoError(t, err)
	newest, metadata, err := m.Books.GetAll(ctx, data.BookFilter{Search: "WOLF", Filters: data.Filters{
		Page: 1, PageSize: 20, Sort: data.DefaultSort, SortSafeList: data.BookSortSafeList,
	}})
	require.NoError(t, err)

	// assert
	require.Len(t, byTitle, 2)
	assert.Equal(t, "Dawn", byTitle[0].Title)
	assert.Equal(t, "Kindred", byTitle[1].Title)

	require.Len(t, literal, 1)
	assert.Equal(t, "Wolf at 100%", literal[0].Title)

	require.Len(t, newest, 2)
	assert.Equal(t, "Wolf at 1000", newest[0].Title)
	assert.Equal(t, 2, metadata.TotalRecords)
	assert.Equal(t, 1, metadata.LastPage)
}

func bookSortIgnoresLetterCase(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	givenBook(t, ctx, m, "cherry", 1)
	givenBook(t, ctx, m, "Banana", 1)
	givenBook(t, ctx, m, "apple", 1)
	page := data.Filters{Page: 1, PageSize: 20, SortSafeList: data.BookSortSafeList}

	// act
	ascending := page
	ascending.Sort = "title"
	up, _, err := m.Books.GetAll(ctx, data.BookFilter{Filters: ascending})
	require.NoError(t, err)

	descending := page
	descending.Sort = "-title"
	down, _, err := m.Books.GetAll(ctx, data.BookFilter{Filters: descending})
	require.NoError(t, err)

	// assert
	assert.Equal(t, []string{"apple", "Banana", "cherry"}, titles(up))
	assert.Equal(t, []string{"cherry", "Banana", "apple"}, titles(down))
}

func titles(books []*data.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func bookUpdateShiftsAvailable(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	book := givenBook(t, ctx, m, "Wild Seed", 3)
	require.NoError(t, m.Books.ReserveCopy(ctx, book.ID))

	// act
	edit := *book
	edit.Quantity = 5
	edit.Title = "Wild Seed (Reissue)"
	err := m.Books.Update(ctx, &edit, 3)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 5, edit.Quantity)
	assert.Equal(t, 4, edit.AvailableQuantity)

	got, err := m.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wild Seed (Reissue)", got.Title)
	assert.Equal(t, 4, got.AvailableQuantity)
}

func bookUpdateRejectsStaleQuantity(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	book := givenBook(t, ctx, m, "Fledgling", 2)
	require.NoError(t, m.Books.ReserveCopy(ctx, book.ID))
	require.NoError(t, m.Books.ReserveCopy(ctx, book.ID))

	// act
	stale := *book
	stale.Quantity = 4
	staleErr := m.Books.Update(ctx, &stale, 1)

	shrink := *book
	shrink.Quantity = 1
	shrinkErr := m.Books.Update(ctx, &shrink, 2)

	missing := *book
	missing.ID = MissingID
	missingErr := m.Books.Update(ctx, &missing, 2)

	// assert
	assert.ErrorIs(t, staleErr, data.ErrEditConflict)
	assert.ErrorIs(t, shrinkErr, data.ErrEditConflict)
	assert.ErrorIs(t, missingErr, data.ErrRecordNotFound)

	got, err := m.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, 0, got.AvailableQuantity)
}

func bookReserveAndReleaseGuards(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	book := givenBook(t, ctx, m, "Imago", 1)

	// act & assert
	assert.ErrorIs(t, m.Books.ReleaseCopy(ctx, book.ID), data.ErrInventoryFull)
	require.NoError(t, m.Books.ReserveCopy(ctx, book.ID))
	assert.ErrorIs(t, m.Books.ReserveCopy(ctx, book.ID), data.ErrNoCopiesAvailable)
	require.NoError(t, m.Books.ReleaseCopy(ctx, book.ID))

	got, err := m.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableQuantity)
}

func bookConcurrentReserve(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	const copies, callers = 3, 12
	book := givenBook(t, ctx, m, "Adulthood Rites", copies)

	// act
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Books.ReserveCopy(ctx, book.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// assert
	assert.Equal(t, copies, succeeded)
	got, err := m.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableQuantity)
}

func bookDelete(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	book := givenBook(t, ctx, m, "Mind of My Mind", 1)

	// act
	err := m.Books.Delete(ctx, book.ID)

	// assert
	require.NoError(t, err)
	_, err = m.Books.Get(ctx, book.ID)
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
	assert.ErrorIs(t, m.Books.Delete(ctx, book.ID), data.ErrRecordNotFound)
}

func memberDuplicateEmail(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	first := givenMember(t, ctx, m, "Lauren Olamina", "lauren@example.com")

	// act
	dup := &data.Member{
		Name:           "Another Lauren",
		Email:          "LAUREN@example.com",
		Phone:          "555-0101",
		MembershipType: data.MembershipStandard,
		Status:         data.MemberInactive,
		MembershipDate: time.Now().UTC(),
	}
	insertErr := m.Members.Insert(ctx, dup)
	found, lookupErr := m.Members.GetByEmail(ctx, "Lauren@Example.com")

	// assert
	assert.ErrorIs(t, insertErr, data.ErrDuplicateEmail)
	require.NoError(t, lookupErr)
	assert.Equal(t, first.ID, found.ID)

	_, err := m.Members.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
}

func memberListFilters(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	givenMember(t, ctx, m, "Anyanwu", "anyanwu@example.com")
	doro := givenMember(t, ctx, m, "Doro", "doro@example.com")
	doro.Status = data.MemberInactive
	require.NoError(t, m.Members.Update(ctx, doro))

	// act
	active, metadata, err := m.Members.GetAll(ctx, data.MemberFilter{Status: data.MemberActive, Filters: data.Filters{
		Page: 1, PageSize: 20, Sort: "name", SortSafeList: data.MemberSortSafeList,
	}})
	require.NoError(t, err)
	searched, _, err := m.Members.GetAll(ctx, data.MemberFilter{Search: "DORO@", Filters: data.Filters{
		Page: 1, PageSize: 20, Sort: data.DefaultSort, SortSafeList: data.MemberSortSafeList,
	}})
	require.NoError(t, err)

	// assert
	require.Len(t, active, 1)
	assert.Equal(t, "Anyanwu", active[0].Name)
	assert.Equal(t, 1, metadata.TotalRecords)
	require.Len(t, searched, 1)
	assert.Equal(t, doro.ID, searched[0].ID)
}

func memberUpdateAndDelete(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	a := givenMember(t, ctx, m, "Shori", "shori@example.com")
	b := givenMember(t, ctx, m, "Wright", "wright@example.com")

	// act
	b.Email = "Shori@example.com"
	dupErr := m.Members.Update(ctx, b)

	a.Phone = "555-0199"
	updateErr := m.Members.Update(ctx, a)

	// assert
	assert.ErrorIs(t, dupErr, data.ErrDuplicateEmail)
	require.NoError(t, updateErr)

	got, err := m.Members.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-0199", got.Phone)

	require.NoError(t, m.Members.Delete(ctx, a.ID))
	assert.ErrorIs(t, m.Members.Delete(ctx, a.ID), data.ErrRecordNotFound)

	n, err := m.Members.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func borrowingInsertAndFilters(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	book := givenBook(t, ctx, m, "Clay's Ark", 5)
	alice := givenMember(t, ctx, m, "Alice", "alice@example.com")
	bob := givenMember(t, ctx, m, "Bob", "bob@example.com")

	start := time.Now().UTC().Truncate(time.Millisecond)
	var ids []string
	for i, member := range []*data.Member{alice, bob, alice} {
		record := &data.BorrowRecord{
			BookID:     book.ID,
			MemberID:   member.ID,
			BookTitle:  book.Title,
			MemberName: member.Name,
			BorrowDate: start,
			DueDate:    start.Add(time.Duration(i+1) * 24 * time.Hour),
			Status:     data.StatusBorrowed,
		}
		require.NoError(t, m.Borrowings.Insert(ctx, record))
		ids = append(ids, record.ID)
	}

	// act
	all, err := m.Borrowings.GetAll(ctx, data.BorrowingFilter{})
	require.NoError(t, err)
	forAlice, err := m.Borrowings.GetAll(ctx, data.BorrowingFilter{MemberID: alice.ID, Limit: 1})
	require.NoError(t, err)
	dueSoon, err := m.Borrowings.GetAll(ctx, data.BorrowingFilter{DueBefore: start.Add(36 * time.Hour)})
	require.NoError(t, err)
	searched, err := m.Borrowings.GetAll(ctx, data.BorrowingFilter{Search: "BOB"})
	require.NoError(t, err)
	malformed, err := m.Borrowings.GetAll(ctx, data.BorrowingFilter{BookID: "not-an-id"})
	require.NoError(t, err)

	// assert
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	require.Len(t, forAlice, 1)
	assert.Equal(t, ids[2], forAlice[0].ID)

	require.Len(t, dueSoon, 1)
	assert.Equal(t, ids[0], dueSoon[0].ID)

	require.Len(t, searched, 1)
	assert.Equal(t, bob.ID, searched[0].MemberID)

	assert.Empty(t, malformed)

	got, err := m.Borrowings.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, book.ID, got.BookID)
	assert.Equal(t, "Bob", got.MemberName)
	assert.Nil(t, got.ReturnDate)

	n, err := m.Borrowings.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func borrowingMarkReturnedOnce(t *testing.T, ctx context.Context, m data.Models) {
	// arrange
	book := givenBook(t, ctx, m, "Survivor", 1)
	member := givenMember(t, ctx, m, "Alanna", "alanna@example.com")
	borrowed := time.Now().UTC().Truncate(time.Millisecond)
	record := &data.BorrowRecord{
		BookID:     book.ID,
		MemberID:   member.ID,
		BookTitle:  book.Title,
		MemberName: member.Name,
		BorrowDate: borrowed,
		DueDate:    borrowed.Add(data.LoanPeriod),
		Status:     data.StatusBorrowed,
	}
	require.NoError(t, m.Borrowings.Insert(ctx, record))
	returnedAt := borrowed.Add(time.Hour)

	// act
	first := m.Borrowings.MarkReturned(ctx, record.ID, returnedAt)
	second := m.Borrowings.MarkReturned(ctx, record.ID, returnedAt.Add(time.Hour))
	missing := m.Borrowings.MarkReturned(ctx, MissingID, returnedAt)

	// assert
	require.NoError(t, first)
	assert.ErrorIs(t, second, data.ErrAlreadyReturned)
	assert.ErrorIs(t, missing, data.ErrRecordNotFound)

	got, err := m.Borrowings.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, data.StatusReturned, got.Status)
	require.NotNil(t, got.ReturnDate)
	assert.True(t, returnedAt.Equal(*got.ReturnDate), "return date %s", got.ReturnDate)
}
