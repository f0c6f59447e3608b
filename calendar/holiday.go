package calendar

import (
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// HOLIDAY - Dated exception applying to every teacher
// =============================================================================

// HolidayType classifies a holiday. It has no effect on resolution.
type HolidayType string

const (
	HolidayFestival HolidayType = "festival"
	HolidaySchool   HolidayType = "school"
)

// ParseHolidayType validates a holiday type string.
func ParseHolidayType(s string) (HolidayType, error) {
	switch t := HolidayType(strings.ToLower(strings.TrimSpace(s))); t {
	case HolidayFestival, HolidaySchool:
		return t, nil
	}
	return "", &ValidationError{Field: "type", Value: s, Reason: "must be festival or school", Err: ErrInvalidHolidayType}
}

// Holiday is a named dated exception.
type Holiday struct {
	ID   string
	Date Date
	Name string
	Type HolidayType
}

// =============================================================================
// REGISTRY - Mutable holiday set keyed by date
// =============================================================================

// Lookup is the read side the resolver needs.
type Lookup interface {
	IsHoliday(d Date) bool
}

// Registry is a set of holidays with at most one holiday per date. Adding a
// second holiday on an existing date replaces the first; two holidays on the
// same day are a data error and are treated as one.
type Registry struct {
	mu     sync.RWMutex
	byDate map[Date]Holiday
}

var _ Lookup = (*Registry)(nil)

// NewRegistry builds a registry. Later entries win on duplicate dates.
func NewRegistry(holidays ...Holiday) *Registry {
	r := &Registry{byDate: make(map[Date]Holiday, len(holidays))}
	for _, h := range holidays {
		r.byDate[h.Date] = h
	}
	return r
}

// Add inserts or replaces the holiday for h.Date.
func (r *Registry) Add(h Holiday) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDate[h.Date] = h
}

// Remove deletes the holiday on d. It reports whether one existed.
func (r *Registry) Remove(d Date) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byDate[d]
	delete(r.byDate, d)
	return ok
}

// IsHoliday reports whether d is a holiday.
func (r *Registry) IsHoliday(d Date) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byDate[d]
	return ok
}

// Get returns the holiday on d, if any.
func (r *Registry) Get(d Date) (Holiday, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byDate[d]
	return h, ok
}

// Len returns the number of distinct holiday dates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byDate)
}

// All returns every holiday ordered by date.
func (r *Registry) All() []Holiday {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Holiday, 0, len(r.byDate))
	for _, h := range r.byDate {
		out = append(out, h)
	}
	sortHolidays(out)
	return out
}

// InPeriod returns the holidays within p ordered by date.
func (r *Registry) InPeriod(p Period) []Holiday {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Holiday
	for d, h := range r.byDate {
		if p.Contains(d) {
			out = append(out, h)
		}
	}
	sortHolidays(out)
	return out
}

func sortHolidays(hs []Holiday) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].Date.Before(hs[j].Date) })
}
