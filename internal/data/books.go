package data

import (
	"time"

	"github.com/aoideee/libraryhub/internal/validator"
)

// Book is one title in the inventory ledger. Quantity is the number of copies
// owned, AvailableQuantity the number currently on the shelf.
type Book struct {
	ID                string    `json:"_id"`
	Title             string    `json:"title"`
	Author            string    `json:"author"`
	ISBN              string    `json:"isbn"`
	Category          string    `json:"category"`
	PublishedYear     int       `json:"publishedYear"`
	Quantity          int       `json:"quantity"`
	AvailableQuantity int       `json:"availableQuantity"`
	Description       string    `json:"description,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// OnLoan returns the number of copies currently lent out.
func (b *Book) OnLoan() int {
	return b.Quantity - b.AvailableQuantity
}

// CreateBookInput holds the fields a client supplies when adding a title.
type CreateBookInput struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	Category      string `json:"category"`
	PublishedYear int    `json:"publishedYear"`
	Quantity      int    `json:"quantity"`
	Description   string `json:"description,omitempty"`
}

// UpdateBookInput holds the fields a client may supply when partially updating
// a book. A nil field is left as-is. AvailableQuantity is not editable; it
// follows quantity changes and the lending workflow.
type UpdateBookInput struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	ISBN          *string `json:"isbn"`
	Category      *string `json:"category"`
	PublishedYear *int    `json:"publishedYear"`
	Quantity      *int    `json:"quantity"`
	Description   *string `json:"description"`
}

// BookFilter narrows a book listing. Search matches title, author or isbn.
type BookFilter struct {
	Search   string
	Category string
	Filters
}

// BookSortSafeList is the set of sort values accepted for books.
var BookSortSafeList = []string{
	"createdAt", "title", "author", "publishedYear",
	"-createdAt", "-title", "-author", "-publishedYear",
}

// ValidateBook checks the fields an administrator controls. now decides which
// publication years lie in the future.
func ValidateBook(v *validator.Validator, book *Book, now time.Time) {
	v.Check(validator.NotBlank(book.Title), "title", "must be provided")
	v.Check(validator.MaxChars(book.Title, 500), "title", "must not be more than 500 characters long")
	v.Check(validator.NotBlank(book.Author), "author", "must be provided")
	v.Check(validator.MaxChars(book.Author, 200), "author", "must not be more than 200 characters long")
	v.Check(validator.NotBlank(book.ISBN), "isbn", "must be provided")
	v.Check(validator.MaxChars(book.ISBN, 20), "isbn", "must not be more than 20 characters long")
	v.Check(validator.MaxChars(book.Category, 100), "category", "must not be more than 100 characters long")
	v.Check(book.PublishedYear != 0, "publishedYear", "must be provided")
	v.Check(book.PublishedYear <= now.Year(), "publishedYear", "must not be in the future")
	v.Check(book.Quantity >= 1, "quantity", "must be at least 1")
	v.Check(book.AvailableQuantity >= 0, "quantity", "must not be less than the copies on loan")
	v.Check(book.AvailableQuantity <= book.Quantity, "availableQuantity", "must not exceed quantity")
}
