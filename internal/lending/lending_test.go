package lending_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/libraryhub/internal/data"
	"github.com/aoideee/libraryhub/internal/lending"
	"github.com/aoideee/libraryhub/internal/store/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ctx     context.Context
	clock   *clock
	models  data.Models
	service *lending.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := &clock{now: time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)}
	models := memory.NewWithClock(c.Now).Models()

	return &fixture{
		ctx:     context.Background(),
		clock:   c,
		models:  models,
		service: newService(models, c),
	}
}

func newService(models data.Models, c *clock) *lending.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return lending.NewService(models, logger, lending.WithClock(c.Now))
}

func (f *fixture) givenBook(t *testing.T, quantity, available int) *data.Book {
	t.Helper()

	book := &data.Book{
		Title:             "The Left Hand of Darkness",
		Author:            "Ursula K. Le Guin",
		ISBN:              "9780441478125",
		Category:          "Fiction",
		PublishedYear:     1969,
		Quantity:          quantity,
		AvailableQuantity: available,
	}
	require.NoError(t, f.models.Books.Insert(f.ctx, book))
	return book
}

func (f *fixture) givenMember(t *testing.T, name, email string) *data.Member {
	t.Helper()

	member := &data.Member{
		Name:           name,
		Email:          email,
		Phone:          "555-0100",
		Address:        "1 Library Lane",
		MembershipType: data.MembershipStandard,
		Status:         data.MemberActive,
		MembershipDate: f.clock.Now(),
	}
	require.NoError(t, f.models.Members.Insert(f.ctx, member))
	return member
}

func (f *fixture) availableQuantity(t *testing.T, bookID string) int {
	t.Helper()

	book, err := f.models.Books.Get(f.ctx, bookID)
	require.NoError(t, err)
	return book.AvailableQuantity
}

func (f *fixture) storedBorrowings(t *testing.T) []*data.BorrowRecord {
	t.Helper()

	records, err := f.models.Borrowings.GetAll(f.ctx, data.BorrowingFilter{})
	require.NoError(t, err)
	return records
}

func Test_Checkout_Success_DecrementsInventoryAndCreatesLoan(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 3, 3)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")

	// act
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})

	// assert
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, data.StatusBorrowed, record.Status)
	assert.Equal(t, book.ID, record.BookID)
	assert.Equal(t, member.ID, record.MemberID)
	assert.Equal(t, book.Title, record.BookTitle)
	assert.Equal(t, member.Name, record.MemberName)
	assert.True(t, record.BorrowDate.Equal(f.clock.Now()))
	assert.True(t, record.DueDate.Equal(f.clock.Now().Add(14*24*time.Hour)))
	assert.Nil(t, record.ReturnDate)
	assert.Equal(t, 2, f.availableQuantity(t, book.ID))
	assert.Len(t, f.storedBorrowings(t), 1)
}

func Test_Checkout_KeepsCallerSuppliedNames(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")

	// act
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{
		BookID:     book.ID,
		MemberID:   member.ID,
		BookTitle:  "Left Hand",
		MemberName: "A. Lovelace",
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Left Hand", record.BookTitle)
	assert.Equal(t, "A. Lovelace", record.MemberName)
}

func Test_Checkout_Fails_WhenNoCopyAvailable(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 2, 0)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")

	// act
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})

	// assert
	assert.ErrorIs(t, err, lending.ErrBookUnavailable)
	assert.Nil(t, record)
	assert.Equal(t, 0, f.availableQuantity(t, book.ID))
	assert.Empty(t, f.storedBorrowings(t))
}

func Test_Checkout_Fails_WhenBookUnknown(t *testing.T) {
	// arrange
	f := newFixture(t)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")

	// act
	_, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: "missing", MemberID: member.ID})

	// assert
	assert.ErrorIs(t, err, lending.ErrBookUnavailable)
	assert.Empty(t, f.storedBorrowings(t))
}

func Test_Checkout_Fails_WhenMemberUnknown(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)

	// act
	_, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: "missing"})

	// assert
	assert.ErrorIs(t, err, lending.ErrMemberNotFound)
	assert.Equal(t, 1, f.availableQuantity(t, book.ID))
	assert.Empty(t, f.storedBorrowings(t))
}

func Test_Checkout_Fails_WhenIDsMissing(t *testing.T) {
	// arrange
	f := newFixture(t)

	// act
	_, err := f.service.Checkout(f.ctx, lending.CheckoutInput{})

	// assert
	var verr *lending.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "bookId")
	assert.Contains(t, verr.Errors, "memberId")
}

type failingBorrowings struct {
	data.BorrowingStore
}

func (failingBorrowings) Insert(context.Context, *data.BorrowRecord) error {
	return errors.New("connection reset")
}

func Test_Checkout_PutsCopyBack_WhenLoanInsertFails(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")

	models := f.models
	models.Borrowings = failingBorrowings{f.models.Borrowings}
	service := newService(models, f.clock)

	// act
	_, err := service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})

	// assert
	require.Error(t, err)
	assert.NotErrorIs(t, err, lending.ErrBookUnavailable)
	assert.Equal(t, 1, f.availableQuantity(t, book.ID))
	assert.Empty(t, f.storedBorrowings(t))
}

// contextBooks refuses ReleaseCopy on a finished context, as the database
// drivers do.
type contextBooks struct {
	data.BookStore
}

func (b contextBooks) ReleaseCopy(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.BookStore.ReleaseCopy(ctx, id)
}

// cancellingBorrowings cancels the request context in the middle of a write,
// the way a client disconnect does.
type cancellingBorrowings struct {
	data.BorrowingStore
	cancel context.CancelFunc
}

func (b cancellingBorrowings) Insert(context.Context, *data.BorrowRecord) error {
	b.cancel()
	return context.Canceled
}

func (b cancellingBorrowings) MarkReturned(ctx context.Context, id string, at time.Time) error {
	err := b.BorrowingStore.MarkReturned(ctx, id, at)
	b.cancel()
	return err
}

func Test_Checkout_PutsCopyBack_WhenRequestCancelledDuringInsert(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 3, 3)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")

	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()

	models := f.models
	models.Books = contextBooks{f.models.Books}
	models.Borrowings = cancellingBorrowings{BorrowingStore: f.models.Borrowings, cancel: cancel}
	service := newService(models, f.clock)

	// act
	_, err := service.Checkout(ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})

	// assert
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, f.availableQuantity(t, book.ID))
	assert.Empty(t, f.storedBorrowings(t))
}

func Test_Return_PutsCopyBack_WhenRequestCancelledAfterLoanClosed(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 3, 3)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()

	models := f.models
	models.Books = contextBooks{f.models.Books}
	models.Borrowings = cancellingBorrowings{BorrowingStore: f.models.Borrowings, cancel: cancel}
	service := newService(models, f.clock)

	// act
	err = service.Return(ctx, lending.ReturnInput{ID: record.ID, Action: "return"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, f.availableQuantity(t, book.ID))

	stored, err := f.models.Borrowings.Get(f.ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, data.StatusReturned, stored.Status)
}

func Test_Checkout_LendsLastCopyOnce_WhenCalledConcurrently(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	// act
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// assert
	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, lending.ErrBookUnavailable)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, f.availableQuantity(t, book.ID))
	assert.Len(t, f.storedBorrowings(t), 1)
}

func Test_Return_Success_RestoresInventoryAndClosesLoan(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 3, 3)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)
	f.clock.Advance(3 * 24 * time.Hour)

	// act
	err = f.service.Return(f.ctx, lending.ReturnInput{ID: record.ID, BookID: book.ID, Action: "return"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, f.availableQuantity(t, book.ID))

	stored, err := f.models.Borrowings.Get(f.ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, data.StatusReturned, stored.Status)
	require.NotNil(t, stored.ReturnDate)
	assert.True(t, stored.ReturnDate.Equal(f.clock.Now()))
}

func Test_Return_Rejected_WhenAlreadyReturned(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 2, 2)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	first, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)
	_, err = f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)
	require.NoError(t, f.service.Return(f.ctx, lending.ReturnInput{ID: first.ID, Action: "return"}))

	// act
	err = f.service.Return(f.ctx, lending.ReturnInput{ID: first.ID, BookID: book.ID, Action: "return"})

	// assert
	assert.ErrorIs(t, err, data.ErrAlreadyReturned)
	assert.Equal(t, 1, f.availableQuantity(t, book.ID))
}

func Test_Return_Rejected_WhenActionIsNotReturn(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)

	// act
	err = f.service.Return(f.ctx, lending.ReturnInput{ID: record.ID, BookID: book.ID, Action: "renew"})

	// assert
	assert.ErrorIs(t, err, lending.ErrInvalidAction)
	assert.Equal(t, 0, f.availableQuantity(t, book.ID))
}

func Test_Return_Rejected_WhenBookDoesNotMatchLoan(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)
	other := f.givenBook(t, 1, 1)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)

	// act
	err = f.service.Return(f.ctx, lending.ReturnInput{ID: record.ID, BookID: other.ID, Action: "return"})

	// assert
	var verr *lending.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "bookId")
	assert.Equal(t, 0, f.availableQuantity(t, book.ID))
	assert.Equal(t, 1, f.availableQuantity(t, other.ID))
}

func Test_Return_Fails_WhenLoanUnknown(t *testing.T) {
	// arrange
	f := newFixture(t)

	// act
	err := f.service.Return(f.ctx, lending.ReturnInput{ID: "missing", Action: "return"})

	// assert
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
}

func Test_Return_NeverPushesInventoryAboveQuantity(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)
	require.NoError(t, f.models.Books.ReleaseCopy(f.ctx, book.ID))

	// act
	err = f.service.Return(f.ctx, lending.ReturnInput{ID: record.ID, Action: "return"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, f.availableQuantity(t, book.ID))
}

func Test_Lending_InventoryFollowsCheckoutsAndReturns(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 5, 5)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")

	var loans []*data.BorrowRecord
	for range 4 {
		record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
		require.NoError(t, err)
		loans = append(loans, record)
	}

	// act
	for _, record := range loans[:3] {
		require.NoError(t, f.service.Return(f.ctx, lending.ReturnInput{ID: record.ID, Action: "return"}))
	}

	// assert
	available := f.availableQuantity(t, book.ID)
	assert.Equal(t, 5-4+3, available)
	assert.GreaterOrEqual(t, available, 0)
	assert.LessOrEqual(t, available, 5)
}

func Test_List_ProjectsOverdue_WithoutRewritingStorage(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 2, 2)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	late, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)
	f.clock.Advance(10 * 24 * time.Hour)
	onTime, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)
	f.clock.Advance(5 * 24 * time.Hour)

	// act
	all, _, err := f.service.List(f.ctx, lending.ListInput{})
	require.NoError(t, err)
	overdue, _, err := f.service.List(f.ctx, lending.ListInput{Status: data.StatusOverdue})
	require.NoError(t, err)
	borrowed, _, err := f.service.List(f.ctx, lending.ListInput{Status: data.StatusBorrowed})
	require.NoError(t, err)

	// assert
	require.Len(t, all, 2)
	assert.Equal(t, onTime.ID, all[0].ID)
	assert.Equal(t, data.StatusBorrowed, all[0].Status)
	assert.Equal(t, late.ID, all[1].ID)
	assert.Equal(t, data.StatusOverdue, all[1].Status)

	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
	require.Len(t, borrowed, 1)
	assert.Equal(t, onTime.ID, borrowed[0].ID)

	stored, err := f.models.Borrowings.Get(f.ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, data.StatusBorrowed, stored.Status)
}

func Test_List_ReturnedLoanIsNeverOverdue(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)
	f.clock.Advance(20 * 24 * time.Hour)
	require.NoError(t, f.service.Return(f.ctx, lending.ReturnInput{ID: record.ID, Action: "return"}))

	// act
	returned, _, err := f.service.List(f.ctx, lending.ListInput{Status: data.StatusReturned})

	// assert
	require.NoError(t, err)
	require.Len(t, returned, 1)
	assert.Equal(t, data.StatusReturned, returned[0].Status)
}

func Test_List_SearchMatchesTitleOrMemberIgnoringCase(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 3, 3)
	ada := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	grace := f.givenMember(t, "Grace Hopper", "grace@example.com")
	_, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: ada.ID})
	require.NoError(t, err)
	_, err = f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: grace.ID})
	require.NoError(t, err)

	// act
	byMember, _, err := f.service.List(f.ctx, lending.ListInput{Search: "HOPPER"})
	require.NoError(t, err)
	byTitle, _, err := f.service.List(f.ctx, lending.ListInput{Search: "left hand"})
	require.NoError(t, err)

	// assert
	require.Len(t, byMember, 1)
	assert.Equal(t, grace.ID, byMember[0].MemberID)
	assert.Len(t, byTitle, 2)
}

func Test_List_Paginates_AfterProjection(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 5, 5)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	for range 5 {
		_, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
	}

	// act
	page, metadata, err := f.service.List(f.ctx, lending.ListInput{
		Filters: data.Filters{Page: 2, PageSize: 2, Sort: "-createdAt", SortSafeList: lending.BorrowingSortSafeList},
	})

	// assert
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, data.Metadata{CurrentPage: 2, PageSize: 2, FirstPage: 1, LastPage: 3, TotalRecords: 5}, metadata)
}

func Test_List_Fails_WhenStatusUnknown(t *testing.T) {
	// arrange
	f := newFixture(t)

	// act
	_, _, err := f.service.List(f.ctx, lending.ListInput{Status: "lost"})

	// assert
	var verr *lending.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "status")
}

func Test_Get_ProjectsOverdue(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)
	f.clock.Advance(15 * 24 * time.Hour)

	// act
	got, err := f.service.Get(f.ctx, record.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, data.StatusOverdue, got.Status)
}

func Test_MemberBorrowings_ReturnsOnlyThatMember(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 3, 3)
	ada := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	grace := f.givenMember(t, "Grace Hopper", "grace@example.com")
	_, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: ada.ID})
	require.NoError(t, err)
	_, err = f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: grace.ID})
	require.NoError(t, err)

	// act
	records, err := f.service.MemberBorrowings(f.ctx, ada.ID)
	_, unknownErr := f.service.MemberBorrowings(f.ctx, "missing")

	// assert
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ada.ID, records[0].MemberID)
	assert.ErrorIs(t, unknownErr, data.ErrRecordNotFound)
}

func Test_Stats_CountsWithOverdueProjection(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 7, 7)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	f.givenMember(t, "Grace Hopper", "grace@example.com")

	var loans []*data.BorrowRecord
	for range 6 {
		record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
		require.NoError(t, err)
		loans = append(loans, record)
	}
	require.NoError(t, f.service.Return(f.ctx, lending.ReturnInput{ID: loans[0].ID, Action: "return"}))
	f.clock.Advance(15 * 24 * time.Hour)
	_, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)

	// act
	stats, err := f.service.Stats(f.ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalBooks)
	assert.Equal(t, 2, stats.TotalMembers)
	assert.Equal(t, 6, stats.ActiveBorrowings)
	assert.Equal(t, 5, stats.OverdueCount)
	require.Len(t, stats.RecentBorrowings, 5)
	assert.Equal(t, data.StatusBorrowed, stats.RecentBorrowings[0].Status)
	assert.Equal(t, data.StatusOverdue, stats.RecentBorrowings[1].Status)
}

func Test_Apply_CreatesInactiveMember_FoundByEmail(t *testing.T) {
	// arrange
	f := newFixture(t)

	// act
	member, err := f.service.Apply(f.ctx, lending.ApplicationInput{
		Name:    "Katherine Johnson",
		Email:   "katherine@example.com",
		Phone:   "555-0199",
		Address: "12 Orbit Road",
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, data.MemberInactive, member.Status)
	assert.Equal(t, data.MembershipStandard, member.MembershipType)

	members, _, err := f.models.Members.GetAll(f.ctx, data.MemberFilter{Search: "katherine@example.com"})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, member.ID, members[0].ID)
	assert.Equal(t, data.MemberInactive, members[0].Status)
}

func Test_Apply_Rejected_WhenEmailAlreadyOnFile(t *testing.T) {
	// arrange
	f := newFixture(t)
	f.givenMember(t, "Ada Lovelace", "ada@example.com")

	// act
	_, err := f.service.Apply(f.ctx, lending.ApplicationInput{
		Name:    "Ada L.",
		Email:   "ada@example.com",
		Phone:   "555-0101",
		Address: "2 Library Lane",
	})

	// assert
	assert.ErrorIs(t, err, data.ErrDuplicateEmail)
	count, countErr := f.models.Members.Count(f.ctx)
	require.NoError(t, countErr)
	assert.Equal(t, 1, count)
}

func Test_Apply_Rejected_WhenRequiredFieldsMissing(t *testing.T) {
	// arrange
	f := newFixture(t)

	// act
	_, err := f.service.Apply(f.ctx, lending.ApplicationInput{Name: "Ada", Phone: "  "})

	// assert
	var verr *lending.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"email":   "must be provided",
		"phone":   "must be provided",
		"address": "must be provided",
	}, verr.Errors)
}

func Test_Apply_Rejected_WhenMembershipTypeUnknown(t *testing.T) {
	// arrange
	f := newFixture(t)

	// act
	_, err := f.service.Apply(f.ctx, lending.ApplicationInput{
		Name:           "Ada Lovelace",
		Email:          "ada@example.com",
		Phone:          "555-0100",
		Address:        "1 Library Lane",
		MembershipType: "gold",
	})

	// assert
	var verr *lending.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "membershipType")
}

func Test_DeleteMember_Rejected_WhileHoldingLoans(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 1, 1)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	record, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)

	// act
	blocked := f.service.DeleteMember(f.ctx, member.ID)
	require.NoError(t, f.service.Return(f.ctx, lending.ReturnInput{ID: record.ID, Action: "return"}))
	allowed := f.service.DeleteMember(f.ctx, member.ID)

	// assert
	assert.ErrorIs(t, blocked, lending.ErrMemberHasLoans)
	assert.NoError(t, allowed)
	_, err = f.models.Members.Get(f.ctx, member.ID)
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
}

func Test_DeleteBook_Rejected_WhileCopiesOnLoan(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.givenBook(t, 2, 2)
	member := f.givenMember(t, "Ada Lovelace", "ada@example.com")
	_, err := f.service.Checkout(f.ctx, lending.CheckoutInput{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)

	// act
	err = f.service.DeleteBook(f.ctx, book.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrBookOnLoan)
	assert.ErrorIs(t, f.service.DeleteBook(f.ctx, "missing"), data.ErrRecordNotFound)
}
