package lending

import (
	"context"

	"github.com/aoideee/libraryhub/internal/data"
)

// recentBorrowingsLimit is how many loans the dashboard shows.
const recentBorrowingsLimit = 5

// Stats are the dashboard counters.
type Stats struct {
	TotalBooks       int                  `json:"totalBooks"`
	TotalMembers     int                  `json:"totalMembers"`
	ActiveBorrowings int                  `json:"activeBorrowings"`
	OverdueCount     int                  `json:"overdueCount"`
	RecentBorrowings []*data.BorrowRecord `json:"recentBorrowings"`
}

// Stats gathers the dashboard counters. Active loans include overdue ones;
// overdue loans are counted with the same projection the listings use.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	var err error

	stats.TotalBooks, err = s.models.Books.Count(ctx)
	if err != nil {
		return nil, wrap("stats: count books", err)
	}
	stats.TotalMembers, err = s.models.Members.Count(ctx)
	if err != nil {
		return nil, wrap("stats: count members", err)
	}

	now := s.currentTime()

	outstanding, err := s.models.Borrowings.GetAll(ctx, data.BorrowingFilter{Status: data.StatusBorrowed})
	if err != nil {
		return nil, wrap("stats: outstanding loans", err)
	}
	stats.ActiveBorrowings = len(outstanding)
	for _, r := range data.ProjectAll(outstanding, now) {
		if r.Status == data.StatusOverdue {
			stats.OverdueCount++
		}
	}

	recent, err := s.models.Borrowings.GetAll(ctx, data.BorrowingFilter{Limit: recentBorrowingsLimit})
	if err != nil {
		return nil, wrap("stats: recent loans", err)
	}
	stats.RecentBorrowings = data.ProjectAll(recent, now)

	return &stats, nil
}
