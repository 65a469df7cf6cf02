package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

// Availability manages a physician's recurring weekly windows.
//
// The overlap check deliberately ignores location: a physician cannot attend
// two places at once, so windows at different locations still conflict.
// Window writes are rare administrative operations, so plain validate-then-
// write is enough here; only booking needs a lock.
type Availability struct {
	store  Store
	logger *logging.Logger
}

func NewAvailability(store Store, logger *logging.Logger) *Availability {
	if logger == nil {
		logger = logging.Default()
	}
	return &Availability{store: store, logger: logger}
}

// AddWindow creates a new active window after validating the time range and
// the physician's weekday schedule for overlaps.
func (s *Availability) AddWindow(ctx context.Context, physicianID, locationID uuid.UUID, weekday time.Weekday, start, end TimeOfDay) (*WeeklyWindow, error) {
	if err := s.validate(ctx, physicianID, weekday, start, end, uuid.Nil); err != nil {
		return nil, err
	}

	w := WeeklyWindow{
		ID:          uuid.New(),
		PhysicianID: physicianID,
		LocationID:  locationID,
		Weekday:     weekday,
		Start:       start,
		End:         end,
		Active:      true,
	}

	created, err := s.store.InsertWindow(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("insert window: %w", err)
	}

	s.logger.Info("window added",
		"window_id", created.ID,
		"physician_id", physicianID,
		"weekday", weekday.String(),
		"start", start.String(),
		"end", end.String(),
	)
	return created, nil
}

// UpdateWindowParams carries the fields to change; nil fields keep their
// current value.
type UpdateWindowParams struct {
	LocationID *uuid.UUID
	Weekday    *time.Weekday
	Start      *TimeOfDay
	End        *TimeOfDay
}

// UpdateWindow re-validates the window against the schedule, excluding the
// window itself from the overlap check.
func (s *Availability) UpdateWindow(ctx context.Context, windowID uuid.UUID, params UpdateWindowParams) (*WeeklyWindow, error) {
	w, err := s.store.GetWindowByID(ctx, windowID)
	if err != nil {
		return nil, err
	}

	if params.LocationID != nil {
		w.LocationID = *params.LocationID
	}
	if params.Weekday != nil {
		w.Weekday = *params.Weekday
	}
	if params.Start != nil {
		w.Start = *params.Start
	}
	if params.End != nil {
		w.End = *params.End
	}

	if err := s.validate(ctx, w.PhysicianID, w.Weekday, w.Start, w.End, w.ID); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateWindow(ctx, *w)
	if err != nil {
		return nil, fmt.Errorf("update window: %w", err)
	}
	return updated, nil
}

// DeactivateWindow soft-deletes a window. The row is kept for history.
func (s *Availability) DeactivateWindow(ctx context.Context, windowID uuid.UUID) (*WeeklyWindow, error) {
	w, err := s.store.GetWindowByID(ctx, windowID)
	if err != nil {
		return nil, err
	}
	if !w.Active {
		return w, nil
	}

	w.Active = false
	updated, err := s.store.UpdateWindow(ctx, *w)
	if err != nil {
		return nil, fmt.Errorf("deactivate window: %w", err)
	}

	s.logger.Info("window deactivated", "window_id", windowID, "physician_id", w.PhysicianID)
	return updated, nil
}

// DeactivatePhysician soft-deletes every active window of a physician.
// Used when the physician leaves the clinic.
func (s *Availability) DeactivatePhysician(ctx context.Context, physicianID uuid.UUID) (int, error) {
	count, err := s.store.DeactivateWindowsForPhysician(ctx, physicianID)
	if err != nil {
		return 0, fmt.Errorf("deactivate physician windows: %w", err)
	}
	s.logger.Info("physician windows deactivated", "physician_id", physicianID, "count", count)
	return count, nil
}

// WindowsFor lists a physician's windows for one weekday, ordered by start.
func (s *Availability) WindowsFor(ctx context.Context, physicianID uuid.UUID, weekday time.Weekday, activeOnly bool) ([]WeeklyWindow, error) {
	if activeOnly {
		return s.store.GetActiveWindows(ctx, physicianID, weekday)
	}
	all, err := s.store.ListWindows(ctx, physicianID, false)
	if err != nil {
		return nil, err
	}
	var out []WeeklyWindow
	for _, w := range all {
		if w.Weekday == weekday {
			out = append(out, w)
		}
	}
	return out, nil
}

// ListWindows lists all windows of a physician across weekdays.
func (s *Availability) ListWindows(ctx context.Context, physicianID uuid.UUID, activeOnly bool) ([]WeeklyWindow, error) {
	return s.store.ListWindows(ctx, physicianID, activeOnly)
}

func (s *Availability) validate(ctx context.Context, physicianID uuid.UUID, weekday time.Weekday, start, end TimeOfDay, excludeID uuid.UUID) error {
	if end <= start {
		return &InvalidRangeError{Start: start, End: end}
	}
	if !start.Valid() || end <= 0 || end > MinutesPerDay {
		return &InvalidRangeError{Start: start, End: end}
	}

	existing, err := s.store.GetActiveWindows(ctx, physicianID, weekday)
	if err != nil {
		return fmt.Errorf("load windows: %w", err)
	}

	var conflicts []WeeklyWindow
	for _, w := range existing {
		if w.ID == excludeID {
			continue
		}
		if w.Overlaps(start, end) {
			conflicts = append(conflicts, w)
		}
	}
	if len(conflicts) > 0 {
		return &OverlapError{Conflicts: conflicts}
	}
	return nil
}
