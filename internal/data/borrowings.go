package data

import "time"

// Borrowing statuses. StatusOverdue is only ever produced by ProjectStatus.
const (
	StatusBorrowed = "borrowed"
	StatusReturned = "returned"
	StatusOverdue  = "overdue"
)

// LoanPeriod is how long a member may keep a copy.
const LoanPeriod = 14 * 24 * time.Hour

// BorrowRecord is one checkout event. BookTitle and MemberName are copied at
// checkout and not kept in sync with later edits.
type BorrowRecord struct {
	ID         string     `json:"_id"`
	BookID     string     `json:"bookId"`
	MemberID   string     `json:"memberId"`
	BookTitle  string     `json:"bookTitle"`
	MemberName string     `json:"memberName"`
	BorrowDate time.Time  `json:"borrowDate"`
	DueDate    time.Time  `json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Outstanding reports whether the copy has not come back yet.
func (r *BorrowRecord) Outstanding() bool {
	return r.Status == StatusBorrowed || r.Status == StatusOverdue
}

// ProjectStatus returns a copy of r whose status reads overdue when the
// stored status is borrowed and the due date has passed. r is not modified.
func ProjectStatus(r *BorrowRecord, now time.Time) *BorrowRecord {
	projected := *r
	if r.Status == StatusBorrowed && r.DueDate.Before(now) {
		projected.Status = StatusOverdue
	}
	return &projected
}

// ProjectAll applies ProjectStatus to every record.
func ProjectAll(records []*BorrowRecord, now time.Time) []*BorrowRecord {
	projected := make([]*BorrowRecord, 0, len(records))
	for _, r := range records {
		projected = append(projected, ProjectStatus(r, now))
	}
	return projected
}

// BorrowingFilter selects records by their stored fields. Search matches
// bookTitle or memberName. A zero DueBefore or Limit is ignored. Results are
// ordered newest first.
type BorrowingFilter struct {
	Status    string
	Search    string
	BookID    string
	MemberID  string
	DueBefore time.Time
	Limit     int
}
