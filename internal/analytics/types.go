// Package analytics provides the series type and summary statistics shared by
// the forecast and anomaly packages.
package analytics

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/enrollwatch/internal/dataset"
)

// TimeSeriesPoint is a single dated value.
type TimeSeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// TimeSeriesData is an ordered series of points.
type TimeSeriesData []TimeSeriesPoint

// FromRecords converts enrollment records into a series, preserving order.
func FromRecords(records []dataset.EnrollmentRecord) TimeSeriesData {
	ts := make(TimeSeriesData, len(records))
	for i, r := range records {
		ts[i] = TimeSeriesPoint{Time: r.Date, Value: float64(r.TotalEnrollment)}
	}
	return ts
}

// Values extracts just the values from the series.
func (ts TimeSeriesData) Values() []float64 {
	values := make([]float64, len(ts))
	for i, p := range ts {
		values[i] = p.Value
	}
	return values
}

// Len returns the number of points.
func (ts TimeSeriesData) Len() int {
	return len(ts)
}

// Mean returns the arithmetic mean, or 0 for an empty series.
func (ts TimeSeriesData) Mean() float64 {
	return Mean(ts.Values())
}

// StdDev returns the sample standard deviation (n-1 denominator).
// Series with fewer than two points have no spread and return 0.
func (ts TimeSeriesData) StdDev() float64 {
	return StdDev(ts.Values())
}

// Mean returns the arithmetic mean of values, or 0 when empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev returns the sample standard deviation of values, or 0 below two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}
