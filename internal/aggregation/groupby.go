// Package aggregation groups enrollment records and computes display
// statistics over each group.
package aggregation

import (
	"slices"
	"strings"

	"github.com/soltixdb/enrollwatch/internal/dataset"
)

// Order selects how grouped output is sorted
type Order int

const (
	// OrderTotalDesc sorts by total descending, ties by group ascending. Used for rankings.
	OrderTotalDesc Order = iota
	// OrderKeyAsc sorts by group ascending. Used for time series.
	OrderKeyAsc
)

// GroupTotal is the enrollment sum of one group.
type GroupTotal struct {
	Group []string `json:"group"` // one value per key, in key order
	Total int64    `json:"total"`
}

// Label joins the group values with " / ".
func (g GroupTotal) Label() string {
	return strings.Join(g.Group, " / ")
}

// GroupStats holds the display statistics of one group.
type GroupStats struct {
	Group   []string `json:"group"`
	Count   int64    `json:"count"`
	Total   int64    `json:"total"`
	Mean    float64  `json:"mean"`
	StdDev  float64  `json:"stddev"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	MinDate string   `json:"min_date"` // earliest date the minimum was seen
	MaxDate string   `json:"max_date"` // earliest date the maximum was seen
}

type bucket struct {
	group []string
	total int64
	field *AggregatedField
}

// group accumulates records per distinct combination of key values.
// With no keys every record lands in one group.
func group(records []dataset.EnrollmentRecord, keys []GroupKey) []*bucket {
	index := make(map[string]*bucket)
	var buckets []*bucket

	vals := make([]string, len(keys))
	for _, r := range records {
		for i, k := range keys {
			vals[i] = k.value(r)
		}
		id := strings.Join(vals, "\x00")

		v := float64(r.TotalEnrollment)
		b, ok := index[id]
		if !ok {
			b = &bucket{group: slices.Clone(vals), field: NewAggregatedFieldWithTime(v, r.Date)}
			index[id] = b
			buckets = append(buckets, b)
		} else {
			b.field.AddValueWithTime(v, r.Date)
		}
		b.total += r.TotalEnrollment
	}
	return buckets
}

func compareGroups(a, b []string) int {
	return slices.Compare(a, b)
}

// SumBy returns the total enrollment per group. Empty input yields an empty slice.
func SumBy(records []dataset.EnrollmentRecord, keys []GroupKey, order Order) []GroupTotal {
	buckets := group(records, keys)
	out := make([]GroupTotal, len(buckets))
	for i, b := range buckets {
		out[i] = GroupTotal{Group: b.group, Total: b.total}
	}

	slices.SortFunc(out, func(a, b GroupTotal) int {
		if order == OrderTotalDesc && a.Total != b.Total {
			if a.Total > b.Total {
				return -1
			}
			return 1
		}
		return compareGroups(a.Group, b.Group)
	})
	return out
}

// Summarize returns count, total, mean, sample stddev, min and max with
// their dates per group.
func Summarize(records []dataset.EnrollmentRecord, keys []GroupKey, order Order) []GroupStats {
	buckets := group(records, keys)
	out := make([]GroupStats, len(buckets))
	for i, b := range buckets {
		out[i] = GroupStats{
			Group:   b.group,
			Count:   b.field.Count,
			Total:   b.total,
			Mean:    b.field.Avg,
			StdDev:  b.field.StdDev(),
			Min:     b.field.Min,
			Max:     b.field.Max,
			MinDate: b.field.MinTime.Format(dataset.DateFormat),
			MaxDate: b.field.MaxTime.Format(dataset.DateFormat),
		}
	}

	slices.SortFunc(out, func(a, b GroupStats) int {
		if order == OrderTotalDesc && a.Total != b.Total {
			if a.Total > b.Total {
				return -1
			}
			return 1
		}
		return compareGroups(a.Group, b.Group)
	})
	return out
}

// TopN keeps the first n groups; n <= 0 keeps all.
func TopN[T any](groups []T, n int) []T {
	if n <= 0 || n >= len(groups) {
		return groups
	}
	return groups[:n]
}
