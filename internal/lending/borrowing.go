package lending

import (
	"context"
	"errors"
	"slices"

	"github.com/aoideee/libraryhub/internal/data"
	"github.com/aoideee/libraryhub/internal/validator"
)

// ReturnAction is the only action accepted by Return.
const ReturnAction = "return"

// CheckoutInput is the body of a checkout request. BookTitle and MemberName
// are copied into the loan record; they default to the current book title and
// member name when omitted.
type CheckoutInput struct {
	BookID     string `json:"bookId"`
	MemberID   string `json:"memberId"`
	BookTitle  string `json:"bookTitle"`
	MemberName string `json:"memberName"`
}

// ReturnInput is the body of a return request.
type ReturnInput struct {
	ID     string `json:"_id"`
	BookID string `json:"bookId"`
	Action string `json:"action"`
}

// ListInput narrows a borrowing listing. Status is matched against the
// projected status, so "overdue" finds loans stored as borrowed.
type ListInput struct {
	Status string
	Search string
	data.Filters
}

// BorrowingSortSafeList is the set of sort values accepted for borrowings.
var BorrowingSortSafeList = []string{"createdAt", "-createdAt"}

// Checkout lends one copy of a book to a member. The copy is taken off the
// shelf with a single conditional decrement before the loan record is
// written; if writing the record fails the copy is put back, even when ctx
// has been cancelled by then.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (*data.BorrowRecord, error) {
	v := validator.New()
	v.Check(validator.NotBlank(input.BookID), "bookId", "must be provided")
	v.Check(validator.NotBlank(input.MemberID), "memberId", "must be provided")
	if !v.Valid() {
		return nil, &ValidationError{Errors: v.Errors}
	}

	book, err := s.models.Books.Get(ctx, input.BookID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrBookUnavailable
		}
		return nil, wrap("checkout: get book", err)
	}
	if book.AvailableQuantity <= 0 {
		return nil, ErrBookUnavailable
	}

	member, err := s.models.Members.Get(ctx, input.MemberID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, wrap("checkout: get member", err)
	}

	err = s.models.Books.ReserveCopy(ctx, book.ID)
	if err != nil {
		if errors.Is(err, data.ErrNoCopiesAvailable) || errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrBookUnavailable
		}
		return nil, wrap("checkout: reserve copy", err)
	}

	now := s.currentTime()
	record := &data.BorrowRecord{
		BookID:     book.ID,
		MemberID:   member.ID,
		BookTitle:  input.BookTitle,
		MemberName: input.MemberName,
		BorrowDate: now,
		DueDate:    now.Add(data.LoanPeriod),
		Status:     data.StatusBorrowed,
	}
	if record.BookTitle == "" {
		record.BookTitle = book.Title
	}
	if record.MemberName == "" {
		record.MemberName = member.Name
	}

	err = s.models.Borrowings.Insert(ctx, record)
	if err != nil {
		releaseCtx, cancel := followUp(ctx)
		defer cancel()
		if releaseErr := s.models.Books.ReleaseCopy(releaseCtx, book.ID); releaseErr != nil {
			s.logger.Error("checkout compensation failed, inventory is short by one copy",
				"book_id", book.ID,
				"member_id", member.ID,
				"error", releaseErr.Error(),
			)
		}
		return nil, wrap("checkout: insert borrowing", err)
	}

	return record, nil
}

// Return closes a loan and puts the copy back on the shelf. Once the loan is
// closed the copy is released regardless of ctx cancellation. A loan that is
// already returned is rejected with data.ErrAlreadyReturned and the shelf is
// left untouched.
func (s *Service) Return(ctx context.Context, input ReturnInput) error {
	if input.Action != ReturnAction {
		return ErrInvalidAction
	}

	v := validator.New()
	v.Check(validator.NotBlank(input.ID), "_id", "must be provided")
	if !v.Valid() {
		return &ValidationError{Errors: v.Errors}
	}

	record, err := s.models.Borrowings.Get(ctx, input.ID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return data.ErrRecordNotFound
		}
		return wrap("return: get borrowing", err)
	}

	v.Check(input.BookID == "" || input.BookID == record.BookID, "bookId", "does not match the borrowing")
	if !v.Valid() {
		return &ValidationError{Errors: v.Errors}
	}

	err = s.models.Borrowings.MarkReturned(ctx, record.ID, s.currentTime())
	if err != nil {
		switch {
		case errors.Is(err, data.ErrAlreadyReturned), errors.Is(err, data.ErrRecordNotFound):
			return err
		default:
			return wrap("return: mark returned", err)
		}
	}

	releaseCtx, cancel := followUp(ctx)
	defer cancel()

	err = s.models.Books.ReleaseCopy(releaseCtx, record.BookID)
	switch {
	case err == nil:
	case errors.Is(err, data.ErrInventoryFull):
		s.logger.Warn("returned copy not counted, all copies already on shelf",
			"book_id", record.BookID,
			"borrowing_id", record.ID,
		)
	case errors.Is(err, data.ErrRecordNotFound):
		s.logger.Warn("returned copy belongs to a deleted book",
			"book_id", record.BookID,
			"borrowing_id", record.ID,
		)
	default:
		s.logger.Error("loan closed but copy not put back on shelf",
			"book_id", record.BookID,
			"borrowing_id", record.ID,
			"error", err.Error(),
		)
		return wrap("return: release copy", err)
	}

	return nil
}

// Get returns one loan with its projected status.
func (s *Service) Get(ctx context.Context, id string) (*data.BorrowRecord, error) {
	record, err := s.models.Borrowings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return data.ProjectStatus(record, s.currentTime()), nil
}

// List returns loans with their projected status. The store is queried
// broadly, the overdue projection applied, and only then is the status
// filter and pagination applied, so overdue loans are never missed.
func (s *Service) List(ctx context.Context, input ListInput) ([]*data.BorrowRecord, data.Metadata, error) {
	v := validator.New()
	v.Check(input.Status == "" ||
		validator.PermittedValue(input.Status, data.StatusBorrowed, data.StatusReturned, data.StatusOverdue),
		"status", "must be borrowed, returned or overdue")
	if !v.Valid() {
		return nil, data.Metadata{}, &ValidationError{Errors: v.Errors}
	}

	filter := data.BorrowingFilter{Search: input.Search}
	switch input.Status {
	case data.StatusBorrowed, data.StatusOverdue:
		filter.Status = data.StatusBorrowed
	case data.StatusReturned:
		filter.Status = data.StatusReturned
	}

	records, err := s.models.Borrowings.GetAll(ctx, filter)
	if err != nil {
		return nil, data.Metadata{}, wrap("list borrowings", err)
	}

	projected := data.ProjectAll(records, s.currentTime())
	if input.Status != "" {
		projected = slices.DeleteFunc(projected, func(r *data.BorrowRecord) bool {
			return r.Status != input.Status
		})
	}
	if !input.SortDescending() {
		slices.Reverse(projected)
	}

	page, metadata := data.Paginate(projected, input.Filters)
	return page, metadata, nil
}

// MemberBorrowings returns every loan of one member, newest first, projected.
func (s *Service) MemberBorrowings(ctx context.Context, memberID string) ([]*data.BorrowRecord, error) {
	_, err := s.models.Members.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	records, err := s.models.Borrowings.GetAll(ctx, data.BorrowingFilter{MemberID: memberID})
	if err != nil {
		return nil, wrap("member borrowings", err)
	}
	return data.ProjectAll(records, s.currentTime()), nil
}
