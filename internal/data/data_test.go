package data_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/libraryhub/internal/data"
	"github.com/aoideee/libraryhub/internal/validator"
)

var now = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

func Test_ProjectStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		due    time.Time
		want   string
	}{
		{"borrowed_past_due", data.StatusBorrowed, now.Add(-time.Second), data.StatusOverdue},
		{"borrowed_due_now", data.StatusBorrowed, now, data.StatusBorrowed},
		{"borrowed_not_due", data.StatusBorrowed, now.Add(time.Hour), data.StatusBorrowed},
		{"returned_past_due", data.StatusReturned, now.Add(-time.Hour), data.StatusReturned},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			record := &data.BorrowRecord{Status: tc.status, DueDate: tc.due}

			projected := data.ProjectStatus(record, now)

			assert.Equal(t, tc.want, projected.Status)
			assert.Equal(t, tc.status, record.Status, "stored record must not change")
		})
	}
}

func Test_ProjectAll_KeepsOrder(t *testing.T) {
	// arrange
	records := []*data.BorrowRecord{
		{ID: "a", Status: data.StatusBorrowed, DueDate: now.Add(-time.Hour)},
		{ID: "b", Status: data.StatusReturned, DueDate: now.Add(-time.Hour)},
	}

	// act
	projected := data.ProjectAll(records, now)

	// assert
	require.Len(t, projected, 2)
	assert.Equal(t, "a", projected[0].ID)
	assert.Equal(t, data.StatusOverdue, projected[0].Status)
	assert.True(t, projected[0].Outstanding())
	assert.False(t, projected[1].Outstanding())
}

func Test_Filters_SortFieldAndDirection(t *testing.T) {
	tests := []struct {
		name      string
		sort      string
		wantField string
		wantDesc  bool
	}{
		{"ascending", "title", "title", false},
		{"descending", "-publishedYear", "publishedYear", true},
		{"unknown_falls_back", "rating", "createdAt", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := data.Filters{Sort: tc.sort, SortSafeList: data.BookSortSafeList}

			assert.Equal(t, tc.wantField, f.SortField())
			assert.Equal(t, tc.wantDesc, f.SortDescending())
		})
	}
}

func Test_ValidateFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters data.Filters
		invalid []string
	}{
		{"valid", data.Filters{Page: 1, PageSize: 20, Sort: "-createdAt"}, nil},
		{"zero_page", data.Filters{Page: 0, PageSize: 20, Sort: "-createdAt"}, []string{"page"}},
		{"page_size_too_large", data.Filters{Page: 1, PageSize: 101, Sort: "-createdAt"}, []string{"page_size"}},
		{"bad_sort", data.Filters{Page: 1, PageSize: 20, Sort: "rating"}, []string{"sort"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := validator.New()
			tc.filters.SortSafeList = data.BookSortSafeList

			data.ValidateFilters(v, tc.filters)

			assert.Len(t, v.Errors, len(tc.invalid))
			for _, key := range tc.invalid {
				assert.Contains(t, v.Errors, key)
			}
		})
	}
}

func Test_Paginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name     string
		filters  data.Filters
		want     []int
		lastPage int
	}{
		{"first_page", data.Filters{Page: 1, PageSize: 2}, []int{1, 2}, 3},
		{"last_partial_page", data.Filters{Page: 3, PageSize: 2}, []int{5}, 3},
		{"past_the_end", data.Filters{Page: 9, PageSize: 2}, []int{}, 3},
		{"unpaginated", data.Filters{}, []int{1, 2, 3, 4, 5}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, metadata := data.Paginate(items, tc.filters)

			assert.Equal(t, tc.want, page)
			assert.Equal(t, 5, metadata.TotalRecords)
			assert.Equal(t, tc.lastPage, metadata.LastPage)
		})
	}
}

func Test_Paginate_EmptyInput_ReturnsEmptySliceAndZeroMetadata(t *testing.T) {
	page, metadata := data.Paginate([]string(nil), data.Filters{Page: 1, PageSize: 20})

	assert.NotNil(t, page)
	assert.Empty(t, page)
	assert.Equal(t, data.Metadata{}, metadata)
}

func Test_ValidateBook(t *testing.T) {
	valid := func() *data.Book {
		return &data.Book{
			Title:             "Kindred",
			Author:            "Octavia E. Butler",
			ISBN:              "9780807083697",
			PublishedYear:     1979,
			Quantity:          2,
			AvailableQuantity: 2,
		}
	}

	tests := []struct {
		name   string
		modify func(*data.Book)
		field  string
	}{
		{"missing_title", func(b *data.Book) { b.Title = "  " }, "title"},
		{"future_year", func(b *data.Book) { b.PublishedYear = now.Year() + 1 }, "publishedYear"},
		{"no_copies", func(b *data.Book) { b.Quantity, b.AvailableQuantity = 0, 0 }, "quantity"},
		{"fewer_than_on_loan", func(b *data.Book) { b.AvailableQuantity = -1 }, "quantity"},
		{"shelf_exceeds_owned", func(b *data.Book) { b.AvailableQuantity = 3 }, "availableQuantity"},
	}

	t.Run("valid", func(t *testing.T) {
		v := validator.New()
		data.ValidateBook(v, valid(), now)
		assert.True(t, v.Valid(), v.Errors)
	})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			book := valid()
			tc.modify(book)
			v := validator.New()

			data.ValidateBook(v, book, now)

			assert.Contains(t, v.Errors, tc.field)
		})
	}
}

func Test_ValidateMember(t *testing.T) {
	valid := func() *data.Member {
		return &data.Member{
			Name:           "Lauren Olamina",
			Email:          "lauren@example.com",
			Phone:          "555-0100",
			MembershipType: data.MembershipStandard,
			Status:         data.MemberActive,
		}
	}

	tests := []struct {
		name   string
		modify func(*data.Member)
		field  string
	}{
		{"bad_email", func(m *data.Member) { m.Email = "lauren" }, "email"},
		{"missing_phone", func(m *data.Member) { m.Phone = "" }, "phone"},
		{"unknown_type", func(m *data.Member) { m.MembershipType = "gold" }, "membershipType"},
		{"unknown_status", func(m *data.Member) { m.Status = "suspended" }, "status"},
	}

	t.Run("valid", func(t *testing.T) {
		v := validator.New()
		data.ValidateMember(v, valid())
		assert.True(t, v.Valid(), v.Errors)
	})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			member := valid()
			tc.modify(member)
			v := validator.New()

			data.ValidateMember(v, member)

			assert.Contains(t, v.Errors, tc.field)
		})
	}
}

func Test_ValidateBook_JudgesFutureYears_ByGivenTime(t *testing.T) {
	// arrange
	book := &data.Book{
		Title:             "Kindred",
		Author:            "Octavia E. Butler",
		ISBN:              "9780807083697",
		PublishedYear:     2031,
		Quantity:          1,
		AvailableQuantity: 1,
	}
	before := validator.New()
	after := validator.New()

	// act
	data.ValidateBook(before, book, time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC))
	data.ValidateBook(after, book, time.Date(2031, time.January, 1, 0, 0, 0, 0, time.UTC))

	// assert
	assert.Contains(t, before.Errors, "publishedYear")
	assert.True(t, after.Valid(), after.Errors)
}

func Test_Book_OnLoan(t *testing.T) {
	book := &data.Book{Quantity: 5, AvailableQuantity: 2}
	assert.Equal(t, 3, book.OnLoan())
}
