// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the configured router wrapped
// in the middleware chain.
//
// Middleware chain (outermost → innermost):
//
//	recoverPanic → logRequest → rateLimit → router
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON responses.
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	// Inventory
	router.HandlerFunc(http.MethodGet, "/v1/books", app.listBooksHandler)
	router.HandlerFunc(http.MethodPost, "/v1/books", app.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id", app.showBookHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/books/:id", app.updateBookHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/books/:id", app.deleteBookHandler)

	// Members
	router.HandlerFunc(http.MethodGet, "/v1/members", app.listMembersHandler)
	router.HandlerFunc(http.MethodPost, "/v1/members", app.createMemberHandler)
	router.HandlerFunc(http.MethodGet, "/v1/members/:id", app.showMemberHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/members/:id", app.updateMemberHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/members/:id", app.deleteMemberHandler)
	router.HandlerFunc(http.MethodGet, "/v1/members/:id/borrowings", app.listMemberBorrowingsHandler)

	// Public membership application
	router.HandlerFunc(http.MethodPost, "/v1/membership", app.applyMembershipHandler)

	// Borrowing workflow
	router.HandlerFunc(http.MethodGet, "/v1/borrowings", app.listBorrowingsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/borrowings", app.checkoutHandler)
	router.HandlerFunc(http.MethodPut, "/v1/borrowings", app.returnHandler)
	router.HandlerFunc(http.MethodGet, "/v1/borrowings/:id", app.showBorrowingHandler)

	router.HandlerFunc(http.MethodGet, "/v1/stats", app.statsHandler)

	// recoverPanic is outermost so it catches panics from every later layer.
	return app.recoverPanic(app.logRequest(app.rateLimit(router)))
}
