// cmd/api/books.go
// This file contains the HTTP handlers for the books inventory.
package main

import (
	"errors"
	"net/http"

	"github.com/aoideee/libraryhub/internal/data"
	"github.com/aoideee/libraryhub/internal/validator"
)

// createBookHandler handles POST /v1/books.
// Every copy of a new title starts on the shelf.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input data.CreateBookInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book := &data.Book{
		Title:             input.Title,
		Author:            input.Author,
		ISBN:              input.ISBN,
		Category:          input.Category,
		PublishedYear:     input.PublishedYear,
		Quantity:          input.Quantity,
		AvailableQuantity: input.Quantity,
		Description:       input.Description,
	}

	v := validator.New()
	if data.ValidateBook(v, book, app.now()); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// Insert() writes the generated ID and timestamps back into book.
	err = app.models.Books.Insert(r.Context(), book)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/books/"+book.ID)

	err = app.writeJSON(w, http.StatusCreated, envelope{"book": book}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /v1/books/:id.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBooksHandler handles GET /v1/books.
// Query parameters: search, category, page, page_size, sort.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	var input data.BookFilter

	v := validator.New()
	qs := r.URL.Query()

	input.Search = app.readString(qs, "search", "")
	input.Category = app.readString(qs, "category", "")
	input.Filters = app.readFilters(qs, data.BookSortSafeList, v)

	if data.ValidateFilters(v, input.Filters); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.GetAll(r.Context(), input)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"books": books, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PATCH /v1/books/:id.
// Only the fields present in the body change. A quantity change moves the
// shelf count by the same amount, and is refused if it would leave fewer
// copies than are on loan.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	var input data.UpdateBookInput
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	previousQuantity := book.Quantity

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.ISBN != nil {
		book.ISBN = *input.ISBN
	}
	if input.Category != nil {
		book.Category = *input.Category
	}
	if input.PublishedYear != nil {
		book.PublishedYear = *input.PublishedYear
	}
	if input.Quantity != nil {
		book.AvailableQuantity += *input.Quantity - book.Quantity
		book.Quantity = *input.Quantity
	}
	if input.Description != nil {
		book.Description = *input.Description
	}

	v := validator.New()
	if data.ValidateBook(v, book, app.now()); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Books.Update(r.Context(), book, previousQuantity)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrEditConflict):
			app.editConflictResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /v1/books/:id.
// A book with copies on loan cannot be deleted.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.lending.DeleteBook(r.Context(), id)
	if err != nil {
		app.lendingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "book successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
