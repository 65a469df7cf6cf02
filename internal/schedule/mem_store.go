package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is a mutex-guarded in-memory Store. It enforces the same unique
// constraints as the Postgres schema (appointment code, active slot) so the
// booking engine behaves identically against it. Unit tests and the booking
// simulator run on it.
type MemStore struct {
	mu           sync.RWMutex
	patients     map[uuid.UUID]Patient
	windows      map[uuid.UUID]WeeklyWindow
	appointments map[uuid.UUID]Appointment
}

func NewMemStore() *MemStore {
	return &MemStore{
		patients:     make(map[uuid.UUID]Patient),
		windows:      make(map[uuid.UUID]WeeklyWindow),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

// PutPatient seeds a patient. Test/seed helper, not part of Store.
func (s *MemStore) PutPatient(p Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.patients[p.ID] = p
}

func (s *MemStore) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

// Weekly windows

func (s *MemStore) GetWindowByID(_ context.Context, id uuid.UUID) (*WeeklyWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	return &w, nil
}

func (s *MemStore) GetActiveWindows(_ context.Context, physicianID uuid.UUID, weekday time.Weekday) ([]WeeklyWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []WeeklyWindow
	for _, w := range s.windows {
		if w.PhysicianID == physicianID && w.Weekday == weekday && w.Active {
			out = append(out, w)
		}
	}
	sortWindows(out)
	return out, nil
}

func (s *MemStore) ListWindows(_ context.Context, physicianID uuid.UUID, activeOnly bool) ([]WeeklyWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []WeeklyWindow
	for _, w := range s.windows {
		if w.PhysicianID != physicianID {
			continue
		}
		if activeOnly && !w.Active {
			continue
		}
		out = append(out, w)
	}
	sortWindows(out)
	return out, nil
}

func (s *MemStore) InsertWindow(_ context.Context, w WeeklyWindow) (*WeeklyWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now
	s.windows[w.ID] = w
	return &w, nil
}

func (s *MemStore) UpdateWindow(_ context.Context, w WeeklyWindow) (*WeeklyWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.windows[w.ID]
	if !ok {
		return nil, ErrWindowNotFound
	}
	w.CreatedAt = existing.CreatedAt
	w.UpdatedAt = time.Now()
	s.windows[w.ID] = w
	return &w, nil
}

func (s *MemStore) DeactivateWindowsForPhysician(_ context.Context, physicianID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, w := range s.windows {
		if w.PhysicianID == physicianID && w.Active {
			w.Active = false
			w.UpdatedAt = time.Now()
			s.windows[id] = w
			count++
		}
	}
	return count, nil
}

// Appointments

func (s *MemStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *MemStore) GetAppointmentByCode(_ context.Context, code string) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if a.Code == code {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (s *MemStore) GetAppointments(_ context.Context, physicianID uuid.UUID, date time.Time, statuses ...AppointmentStatus) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	date = DateOnly(date)
	var out []Appointment
	for _, a := range s.appointments {
		if a.PhysicianID == physicianID && a.Date.Equal(date) && statusIn(a.Status, statuses) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (s *MemStore) InsertAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.appointments {
		if existing.Code == a.Code {
			return nil, ErrCodeTaken
		}
		if existing.PhysicianID == a.PhysicianID &&
			existing.Date.Equal(DateOnly(a.Date)) &&
			existing.Start == a.Start &&
			statusIn(existing.Status, BlockingStatuses) &&
			statusIn(a.Status, BlockingStatuses) {
			return nil, ErrSlotTaken
		}
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Date = DateOnly(a.Date)
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.appointments[a.ID] = a
	return &a, nil
}

func (s *MemStore) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	s.appointments[id] = a
	return &a, nil
}

func (s *MemStore) NextCodeSeq(_ context.Context, date time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := "T-" + DateOnly(date).Format("20060102") + "-"
	max := 0
	for _, a := range s.appointments {
		if n, ok := parseCodeSeq(a.Code, prefix); ok && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// parseCodeSeq extracts the numeric suffix of a code with the given date
// prefix. The suffix is at least four digits but grows past 9999.
func parseCodeSeq(code, prefix string) (int, bool) {
	if len(code) < len(prefix)+4 || code[:len(prefix)] != prefix {
		return 0, false
	}
	n := 0
	for _, c := range code[len(prefix):] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Queries

func (s *MemStore) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, filter AppointmentFilter) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, a := range s.appointments {
		if a.PatientID == patientID && matchFilter(a, filter) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	// Patient listings show newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *MemStore) ListAppointmentsByPhysician(_ context.Context, physicianID uuid.UUID, filter AppointmentFilter) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Appointment
	for _, a := range s.appointments {
		if a.PhysicianID == physicianID && matchFilter(a, filter) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (s *MemStore) ListAppointmentsByDate(_ context.Context, date time.Time) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	date = DateOnly(date)
	var out []Appointment
	for _, a := range s.appointments {
		if a.Date.Equal(date) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

// Reporting and reminders

func (s *MemStore) CountByStatus(_ context.Context, from, to time.Time) (map[AppointmentStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, to = DateOnly(from), DateOnly(to)
	counts := make(map[AppointmentStatus]int)
	for _, a := range s.appointments {
		if !a.Date.Before(from) && !a.Date.After(to) {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func (s *MemStore) FindOnDate(_ context.Context, date time.Time, statuses ...AppointmentStatus) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	date = DateOnly(date)
	var out []Appointment
	for _, a := range s.appointments {
		if a.Date.Equal(date) && statusIn(a.Status, statuses) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func statusIn(status AppointmentStatus, statuses []AppointmentStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func matchFilter(a Appointment, f AppointmentFilter) bool {
	if f.From != nil && a.Date.Before(DateOnly(*f.From)) {
		return false
	}
	if f.To != nil && a.Date.After(DateOnly(*f.To)) {
		return false
	}
	if len(f.Statuses) > 0 && !statusIn(a.Status, f.Statuses) {
		return false
	}
	return true
}

func sortWindows(ws []WeeklyWindow) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].Weekday != ws[j].Weekday {
			return ws[i].Weekday < ws[j].Weekday
		}
		return ws[i].Start < ws[j].Start
	})
}

func sortAppointments(as []Appointment) {
	sort.Slice(as, func(i, j int) bool {
		if !as[i].Date.Equal(as[j].Date) {
			return as[i].Date.Before(as[j].Date)
		}
		return as[i].Start < as[j].Start
	})
}
