package lending

import (
	"context"
	"errors"
	"strings"

	"github.com/aoideee/libraryhub/internal/data"
	"github.com/aoideee/libraryhub/internal/validator"
)

// ApplicationInput is the body of a public membership application.
type ApplicationInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	MembershipType string `json:"membershipType"`
}

// Apply records a membership application. The member is created inactive and
// waits for an administrator to activate it. An email already on file fails
// with data.ErrDuplicateEmail.
func (s *Service) Apply(ctx context.Context, input ApplicationInput) (*data.Member, error) {
	v := validator.New()
	v.Check(validator.NotBlank(input.Name), "name", "must be provided")
	v.Check(validator.NotBlank(input.Email), "email", "must be provided")
	v.Check(validator.NotBlank(input.Phone), "phone", "must be provided")
	v.Check(validator.NotBlank(input.Address), "address", "must be provided")
	if !v.Valid() {
		return nil, &ValidationError{Errors: v.Errors}
	}

	now := s.currentTime()
	member := &data.Member{
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.TrimSpace(input.Email),
		Phone:          strings.TrimSpace(input.Phone),
		Address:        strings.TrimSpace(input.Address),
		MembershipType: input.MembershipType,
		Status:         data.MemberInactive,
		MembershipDate: now,
	}
	if member.MembershipType == "" {
		member.MembershipType = data.MembershipStandard
	}

	if data.ValidateMember(v, member); !v.Valid() {
		return nil, &ValidationError{Errors: v.Errors}
	}

	_, err := s.models.Members.GetByEmail(ctx, member.Email)
	switch {
	case err == nil:
		return nil, data.ErrDuplicateEmail
	case !errors.Is(err, data.ErrRecordNotFound):
		return nil, wrap("apply: look up email", err)
	}

	err = s.models.Members.Insert(ctx, member)
	if err != nil {
		if errors.Is(err, data.ErrDuplicateEmail) {
			return nil, data.ErrDuplicateEmail
		}
		return nil, wrap("apply: insert member", err)
	}
	return member, nil
}

// DeleteMember removes a member who holds no outstanding loans.
func (s *Service) DeleteMember(ctx context.Context, id string) error {
	records, err := s.models.Borrowings.GetAll(ctx, data.BorrowingFilter{
		MemberID: id,
		Status:   data.StatusBorrowed,
		Limit:    1,
	})
	if err != nil {
		return wrap("delete member: find loans", err)
	}
	if len(records) > 0 {
		return ErrMemberHasLoans
	}
	return s.models.Members.Delete(ctx, id)
}

// DeleteBook removes a book none of whose copies are lent out.
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	book, err := s.models.Books.Get(ctx, id)
	if err != nil {
		return err
	}
	if book.OnLoan() > 0 {
		return ErrBookOnLoan
	}
	return s.models.Books.Delete(ctx, id)
}
