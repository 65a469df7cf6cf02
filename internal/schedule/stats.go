package schedule

import (
	"context"
	"fmt"
	"time"
)

// PeriodSummary aggregates appointment outcomes over a date range.
type PeriodSummary struct {
	From       time.Time                 `json:"from"`
	To         time.Time                 `json:"to"`
	ByStatus   map[AppointmentStatus]int `json:"by_status"`
	NoShowRate float64                   `json:"no_show_rate"`
}

// Stats serves reporting queries over booked appointments.
type Stats struct {
	store Store
}

func NewStats(store Store) *Stats {
	return &Stats{store: store}
}

// Summary counts appointments by status between from and to (inclusive) and
// computes the no-show rate as no_show / (completed + no_show) * 100. Days
// with no attended appointments report a rate of zero.
func (s *Stats) Summary(ctx context.Context, from, to time.Time) (*PeriodSummary, error) {
	from, to = DateOnly(from), DateOnly(to)

	counts, err := s.store.CountByStatus(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}

	attended := counts[StatusCompleted] + counts[StatusNoShow]
	rate := 0.0
	if attended > 0 {
		rate = float64(counts[StatusNoShow]) / float64(attended) * 100
	}

	return &PeriodSummary{
		From:       from,
		To:         to,
		ByStatus:   counts,
		NoShowRate: rate,
	}, nil
}
