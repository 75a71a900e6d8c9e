// Package lending implements the borrowing workflow: lending a copy to a
// member, taking it back, and presenting loans with their overdue status.
// It keeps the books inventory ledger and the borrowings collection in step.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/aoideee/libraryhub/internal/data"
)

var (
	// ErrBookUnavailable is returned when a checkout finds no copy on the shelf.
	ErrBookUnavailable = errors.New("book not available")
	// ErrMemberNotFound is returned when a checkout names an unknown member.
	ErrMemberNotFound = errors.New("member not found")
	// ErrInvalidAction is returned for any return request whose action is not "return".
	ErrInvalidAction = errors.New("invalid action")
	// ErrMemberHasLoans is returned when deleting a member who still holds copies.
	ErrMemberHasLoans = errors.New("member still has borrowed books")
	// ErrBookOnLoan is returned when deleting a book with copies lent out.
	ErrBookOnLoan = errors.New("book has copies on loan")
)

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	fields := slices.Sorted(maps.Keys(e.Errors))
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Errors[field])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Service runs the borrowing workflow against the configured stores.
type Service struct {
	models data.Models
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService returns a Service using models for persistence and logger for
// the warnings raised when the ledger needs attention.
func NewService(models data.Models, logger *slog.Logger, options ...Option) *Service {
	s := &Service{
		models: models,
		logger: logger,
		now:    time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Service) currentTime() time.Time {
	return s.now().UTC()
}

// followUpTimeout bounds a write that must land once an earlier write of the
// same operation has succeeded.
const followUpTimeout = 5 * time.Second

// followUp returns a context for such a write. It keeps the values of ctx
// but not its cancellation, so a client that goes away mid-request cannot
// leave the inventory and the loan records out of step.
func followUp(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
}

func wrap(op string, err error) error {
	return fmt.Errorf("lending: %s: %w", op, err)
}
