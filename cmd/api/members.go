// cmd/api/members.go
// This file contains the HTTP handlers for administering library members.
package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aoideee/libraryhub/internal/data"
	"github.com/aoideee/libraryhub/internal/validator"
)

// createMemberHandler handles POST /v1/members.
// Members added by an administrator are active straight away.
func (app *applicationDependencies) createMemberHandler(w http.ResponseWriter, r *http.Request) {
	var input data.CreateMemberInput

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	member := &data.Member{
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.TrimSpace(input.Email),
		Phone:          strings.TrimSpace(input.Phone),
		Address:        strings.TrimSpace(input.Address),
		MembershipType: input.MembershipType,
		Status:         data.MemberActive,
		MembershipDate: app.now(),
	}
	if member.MembershipType == "" {
		member.MembershipType = data.MembershipStandard
	}

	v := validator.New()
	if data.ValidateMember(v, member); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Members.Insert(r.Context(), member)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateEmail):
			app.duplicateEmailResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/members/"+member.ID)

	err = app.writeJSON(w, http.StatusCreated, envelope{"member": member}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showMemberHandler handles GET /v1/members/:id.
func (app *applicationDependencies) showMemberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	member, err := app.models.Members.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"member": member}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listMembersHandler handles GET /v1/members.
// Query parameters: search, status, page, page_size, sort.
func (app *applicationDependencies) listMembersHandler(w http.ResponseWriter, r *http.Request) {
	var input data.MemberFilter

	v := validator.New()
	qs := r.URL.Query()

	input.Search = app.readString(qs, "search", "")
	input.Status = app.readString(qs, "status", "")
	input.Filters = app.readFilters(qs, data.MemberSortSafeList, v)

	v.Check(input.Status == "" || validator.PermittedValue(input.Status, data.MemberActive, data.MemberInactive),
		"status", "must be active or inactive")
	if data.ValidateFilters(v, input.Filters); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	members, metadata, err := app.models.Members.GetAll(r.Context(), input)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"members": members, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateMemberHandler handles PATCH /v1/members/:id.
// This is how an administrator activates an applicant.
func (app *applicationDependencies) updateMemberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	member, err := app.models.Members.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	var input data.UpdateMemberInput
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Name != nil {
		member.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		member.Email = strings.TrimSpace(*input.Email)
	}
	if input.Phone != nil {
		member.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		member.Address = strings.TrimSpace(*input.Address)
	}
	if input.MembershipType != nil {
		member.MembershipType = *input.MembershipType
	}
	if input.Status != nil {
		member.Status = *input.Status
	}

	v := validator.New()
	if data.ValidateMember(v, member); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Members.Update(r.Context(), member)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, data.ErrDuplicateEmail):
			app.duplicateEmailResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"member": member}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteMemberHandler handles DELETE /v1/members/:id.
// A member still holding borrowed books cannot be deleted.
func (app *applicationDependencies) deleteMemberHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.lending.DeleteMember(r.Context(), id)
	if err != nil {
		app.lendingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "member successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listMemberBorrowingsHandler handles GET /v1/members/:id/borrowings.
func (app *applicationDependencies) listMemberBorrowingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	records, err := app.lending.MemberBorrowings(r.Context(), id)
	if err != nil {
		app.lendingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"borrowings": records}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
