// cmd/api/membership.go
// This file contains the public membership application handler.
package main

import (
	"errors"
	"net/http"

	"github.com/aoideee/libraryhub/internal/lending"
)

// requiredApplicationFields are the fields whose absence is a 400 rather than
// a 422, matching what the application form has always received.
var requiredApplicationFields = []string{"name", "email", "phone", "address"}

// applyMembershipHandler handles POST /v1/membership.
// The new member is created inactive; an administrator activates it later.
func (app *applicationDependencies) applyMembershipHandler(w http.ResponseWriter, r *http.Request) {
	var input lending.ApplicationInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	member, err := app.lending.Apply(r.Context(), input)
	if err != nil {
		var validationErr *lending.ValidationError
		if errors.As(err, &validationErr) && missingRequired(validationErr) {
			app.errorResponse(w, r, http.StatusBadRequest, validationErr.Errors)
			return
		}
		app.lendingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{
		"success":  true,
		"message":  "Membership application submitted successfully",
		"memberId": member.ID,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// missingRequired reports whether the failure is a required field left blank.
func missingRequired(err *lending.ValidationError) bool {
	for _, field := range requiredApplicationFields {
		if err.Errors[field] == "must be provided" {
			return true
		}
	}
	return false
}
