package attendance

import (
	"sort"

	"github.com/warp/attendance-engine/calendar"
)

type recordKey struct {
	teacher TeacherID
	date    calendar.Date
}

// Index is an immutable (teacher, date) -> raw status lookup.
//
// Storage guarantees at most one record per (teacher, date). If duplicates
// reach the engine anyway, the record supplied last wins and no error is
// raised.
type Index struct {
	records map[recordKey]RawRecord
}

// NewIndex builds an index from records in the order supplied.
func NewIndex(records []RawRecord) *Index {
	idx := &Index{records: make(map[recordKey]RawRecord, len(records))}
	for _, r := range records {
		idx.records[recordKey{r.TeacherID, r.Date}] = r
	}
	return idx
}

// Raw returns the raw status for (teacher, date) and whether one exists.
func (idx *Index) Raw(teacher TeacherID, d calendar.Date) (Status, bool) {
	if idx == nil {
		return "", false
	}
	r, ok := idx.records[recordKey{teacher, d}]
	return r.Status, ok
}

// RawIs reports whether the raw record for (teacher, date) is exactly s.
// An unmarked day never matches.
func (idx *Index) RawIs(teacher TeacherID, d calendar.Date, s Status) bool {
	st, ok := idx.Raw(teacher, d)
	return ok && st == s
}

// Len returns the number of distinct (teacher, date) records.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// Records returns the deduplicated records, ordered by date then teacher.
func (idx *Index) Records() []RawRecord {
	if idx == nil {
		return nil
	}
	out := make([]RawRecord, 0, len(idx.records))
	for _, r := range idx.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TeacherID < out[j].TeacherID
	})
	return out
}
