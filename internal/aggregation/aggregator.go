package aggregation

import (
	"math"
	"time"
)

// AggregatedField represents running statistics for a single group of values
type AggregatedField struct {
	Count   int64     // Number of raw values
	Sum     float64   // Sum of values
	Avg     float64   // Average
	Min     float64   // Minimum
	Max     float64   // Maximum
	MinTime time.Time // Earliest observation of the minimum
	MaxTime time.Time // Earliest observation of the maximum

	// Welford state: running mean and sum of squared deviations from it
	mean float64
	m2   float64
}

// NewAggregatedFieldWithTime creates a new aggregated field from a single value and its timestamp
func NewAggregatedFieldWithTime(value float64, observedAt time.Time) *AggregatedField {
	return &AggregatedField{
		Count:   1,
		Sum:     value,
		Avg:     value,
		Min:     value,
		Max:     value,
		MinTime: observedAt,
		MaxTime: observedAt,
		mean:    value,
	}
}

// AddValueWithTime adds a single value and timestamp to the aggregation.
// On ties the earlier timestamp is kept.
func (af *AggregatedField) AddValueWithTime(value float64, observedAt time.Time) {
	af.Count++
	af.Sum += value

	delta := value - af.mean
	af.mean += delta / float64(af.Count)
	af.m2 += delta * (value - af.mean)

	switch {
	case value < af.Min:
		af.Min, af.MinTime = value, observedAt
	case value == af.Min && observedAt.Before(af.MinTime):
		af.MinTime = observedAt
	}
	switch {
	case value > af.Max:
		af.Max, af.MaxTime = value, observedAt
	case value == af.Max && observedAt.Before(af.MaxTime):
		af.MaxTime = observedAt
	}

	af.Avg = af.Sum / float64(af.Count)
}

// Variance returns the sample variance (n-1 denominator); 0 below two values.
func (af *AggregatedField) Variance() float64 {
	if af.Count <= 1 || af.m2 <= 0 {
		return 0
	}
	return af.m2 / float64(af.Count-1)
}

// StdDev calculates the sample standard deviation
func (af *AggregatedField) StdDev() float64 {
	return math.Sqrt(af.Variance())
}
