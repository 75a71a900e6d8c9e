// cmd/api/borrowings.go
// This file contains the HTTP handlers for the borrowing workflow: checkout,
// return and the loan listings.
package main

import (
	"net/http"

	"github.com/aoideee/libraryhub/internal/data"
	"github.com/aoideee/libraryhub/internal/lending"
	"github.com/aoideee/libraryhub/internal/validator"
)

// checkoutHandler handles POST /v1/borrowings.
// Body: {bookId, memberId, bookTitle, memberName}. Responds 201 with the new
// loan, or 400 {"error": "Book not available"} when no copy is on the shelf.
func (app *applicationDependencies) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	var input lending.CheckoutInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	record, err := app.lending.Checkout(r.Context(), input)
	if err != nil {
		app.lendingErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/borrowings/"+record.ID)

	err = app.writeJSON(w, http.StatusCreated, envelope{"borrowing": record}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// returnHandler handles PUT /v1/borrowings.
// Body: {_id, bookId, action}. Only action "return" is understood.
func (app *applicationDependencies) returnHandler(w http.ResponseWriter, r *http.Request) {
	var input lending.ReturnInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.lending.Return(r.Context(), input)
	if err != nil {
		app.lendingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"success": true}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBorrowingHandler handles GET /v1/borrowings/:id.
func (app *applicationDependencies) showBorrowingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	record, err := app.lending.Get(r.Context(), id)
	if err != nil {
		app.lendingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"borrowing": record}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBorrowingsHandler handles GET /v1/borrowings.
// Query parameters: status (borrowed, returned, overdue), search, page,
// page_size, sort. Status is matched after the overdue projection.
func (app *applicationDependencies) listBorrowingsHandler(w http.ResponseWriter, r *http.Request) {
	var input lending.ListInput

	v := validator.New()
	qs := r.URL.Query()

	input.Status = app.readString(qs, "status", "")
	input.Search = app.readString(qs, "search", "")
	input.Filters = app.readFilters(qs, lending.BorrowingSortSafeList, v)

	if data.ValidateFilters(v, input.Filters); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	records, metadata, err := app.lending.List(r.Context(), input)
	if err != nil {
		app.lendingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"borrowings": records, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
