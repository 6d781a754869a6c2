// Package dataset loads the district enrollment table and exposes it as an
// immutable, read-only handle that request code can share freely.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrDataLoad wraps every failure to read or parse the enrollment dataset.
var ErrDataLoad = errors.New("data load failed")

// DateFormat is the canonical rendering of record dates.
const DateFormat = "2006-01-02"

// EnrollmentRecord is one (district, date) observation.
type EnrollmentRecord struct {
	Date            time.Time `json:"date"`
	State           string    `json:"state"`
	District        string    `json:"district"`
	TotalEnrollment int64     `json:"total_enrollment"`
}

// DateString returns the record date as YYYY-MM-DD.
func (r EnrollmentRecord) DateString() string {
	return r.Date.Format(DateFormat)
}

// Summary holds the headline figures of a table.
type Summary struct {
	Records         int       `json:"records"`
	States          int       `json:"states"`
	Districts       int       `json:"districts"`
	TotalEnrollment int64     `json:"total_enrollment"`
	FirstDate       time.Time `json:"first_date"`
	LastDate        time.Time `json:"last_date"`
}

// Table is an immutable set of enrollment records.
// All accessors return copies; a Table is safe for concurrent use.
type Table struct {
	records    []EnrollmentRecord
	byDistrict map[string][]int // indices into records, date ascending
	stateOf    map[string]string
	states     []string
	districts  []string
}

type districtDate struct {
	district string
	date     time.Time
}

// NewTable builds a Table from in-memory records.
// A repeated (district, date) pair is rejected.
func NewTable(records []EnrollmentRecord) (*Table, error) {
	t := &Table{
		records:    make([]EnrollmentRecord, len(records)),
		byDistrict: make(map[string][]int),
		stateOf:    make(map[string]string),
	}
	copy(t.records, records)

	seen := make(map[districtDate]struct{}, len(records))
	stateSet := make(map[string]struct{})

	for i, rec := range t.records {
		key := districtDate{district: rec.District, date: rec.Date}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate record for district %q on %s",
				ErrDataLoad, rec.District, rec.DateString())
		}
		seen[key] = struct{}{}

		t.byDistrict[rec.District] = append(t.byDistrict[rec.District], i)
		if _, ok := t.stateOf[rec.District]; !ok {
			t.stateOf[rec.District] = rec.State
		}
		stateSet[rec.State] = struct{}{}
	}

	for district, idx := range t.byDistrict {
		sort.SliceStable(idx, func(a, b int) bool {
			return t.records[idx[a]].Date.Before(t.records[idx[b]].Date)
		})
		t.districts = append(t.districts, district)
	}
	sort.Strings(t.districts)

	for state := range stateSet {
		t.states = append(t.states, state)
	}
	sort.Strings(t.states)

	return t, nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns a copy of all records in load order.
func (t *Table) Records() []EnrollmentRecord {
	out := make([]EnrollmentRecord, len(t.records))
	copy(out, t.records)
	return out
}

// States returns the sorted distinct state names.
func (t *Table) States() []string {
	return append([]string(nil), t.states...)
}

// Districts returns the sorted distinct district names.
func (t *Table) Districts() []string {
	return append([]string(nil), t.districts...)
}

// HasState reports whether any record belongs to the state.
func (t *Table) HasState(state string) bool {
	i := sort.SearchStrings(t.states, state)
	return i < len(t.states) && t.states[i] == state
}

// DistrictsInState returns the sorted districts whose first record names the state.
func (t *Table) DistrictsInState(state string) []string {
	var out []string
	for _, d := range t.districts {
		if t.stateOf[d] == state {
			out = append(out, d)
		}
	}
	return out
}

// StateOf returns the state a district belongs to.
func (t *Table) StateOf(district string) (string, bool) {
	s, ok := t.stateOf[district]
	return s, ok
}

// History returns the district's records in ascending date order.
func (t *Table) History(district string) []EnrollmentRecord {
	idx := t.byDistrict[district]
	out := make([]EnrollmentRecord, len(idx))
	for i, j := range idx {
		out[i] = t.records[j]
	}
	return out
}

// Latest returns the most recent record of a district.
func (t *Table) Latest(district string) (EnrollmentRecord, bool) {
	idx := t.byDistrict[district]
	if len(idx) == 0 {
		return EnrollmentRecord{}, false
	}
	return t.records[idx[len(idx)-1]], true
}

// DateRange returns the first and last dates in the table.
// ok is false for an empty table.
func (t *Table) DateRange() (first, last time.Time, ok bool) {
	if len(t.records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = t.records[0].Date, t.records[0].Date
	for _, r := range t.records[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last, true
}

// Summary computes the headline figures.
func (t *Table) Summary() Summary {
	s := Summary{
		Records:   len(t.records),
		States:    len(t.states),
		Districts: len(t.districts),
	}
	for _, r := range t.records {
		s.TotalEnrollment += r.TotalEnrollment
	}
	s.FirstDate, s.LastDate, _ = t.DateRange()
	return s
}

// Filter returns the sub-table matching state and district.
// An empty argument matches everything.
func (t *Table) Filter(state, district string) *Table {
	if state == "" && district == "" {
		return t
	}
	var kept []EnrollmentRecord
	for _, r := range t.records {
		if state != "" && r.State != state {
			continue
		}
		if district != "" && r.District != district {
			continue
		}
		kept = append(kept, r)
	}
	// kept is a subset of a table that already passed the duplicate check
	sub, _ := NewTable(kept)
	return sub
}
