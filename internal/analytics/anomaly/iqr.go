package anomaly

import (
	"sort"

	"github.com/soltixdb/enrollwatch/internal/dataset"
)

// DefaultMultiplier is the conventional Tukey fence multiplier.
const DefaultMultiplier = 1.5

// IQRDetector detects anomalies using the Interquartile Range method.
// Records strictly outside [Q1 - k*IQR, Q3 + k*IQR] are flagged, k = Multiplier.
//
// With a constant population IQR is 0, so any value that differs from Q1
// at all is flagged. That sensitivity is intended.
type IQRDetector struct {
	Multiplier float64
}

// NewIQRDetector returns a detector; a non-positive multiplier falls back to 1.5.
func NewIQRDetector(multiplier float64) IQRDetector {
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	return IQRDetector{Multiplier: multiplier}
}

// Name returns the algorithm name
func (d IQRDetector) Name() string {
	return "iqr"
}

func (d IQRDetector) multiplier() float64 {
	if d.Multiplier <= 0 {
		return DefaultMultiplier
	}
	return d.Multiplier
}

// Detect flags outliers over all records as a single population.
func (d IQRDetector) Detect(records []dataset.EnrollmentRecord) Result {
	res := Result{Scope: ScopeGlobal, Records: len(records), Anomalies: []Anomaly{}}
	if len(records) == 0 {
		return res
	}

	fences := d.Fences(values(records))
	res.Fences = &fences
	res.Anomalies = d.flag(records, fences)
	sortAnomalies(res.Anomalies)
	return res
}

// DetectScoped runs detection with the given scope. ScopeDistrict applies the
// rule to each district's records independently and merges the flags.
func (d IQRDetector) DetectScoped(records []dataset.EnrollmentRecord, scope Scope) Result {
	if scope != ScopeDistrict {
		return d.Detect(records)
	}

	groups := make(map[string][]dataset.EnrollmentRecord)
	for _, r := range records {
		groups[r.District] = append(groups[r.District], r)
	}

	res := Result{Scope: ScopeDistrict, Records: len(records), Anomalies: []Anomaly{}}
	for _, group := range groups {
		fences := d.Fences(values(group))
		res.Anomalies = append(res.Anomalies, d.flag(group, fences)...)
	}
	sortAnomalies(res.Anomalies)
	return res
}

// Fences computes quartiles and bounds for values.
func (d IQRDetector) Fences(vals []float64) Fences {
	q1, q3, iqr := CalculateIQR(vals)
	k := d.multiplier()
	return Fences{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - k*iqr,
		Upper: q3 + k*iqr,
	}
}

func (d IQRDetector) flag(records []dataset.EnrollmentRecord, f Fences) []Anomaly {
	expected := Range{Min: f.Lower, Max: f.Upper}
	var out []Anomaly

	for _, r := range records {
		v := float64(r.TotalEnrollment)
		if f.Contains(v) {
			continue
		}

		a := Anomaly{EnrollmentRecord: r, Expected: expected, Score: 1.0}
		if v > f.Upper {
			a.Type = AnomalyTypeSpike
			if f.IQR > 0 {
				a.Score = (v - f.Upper) / f.IQR
			}
		} else {
			a.Type = AnomalyTypeDrop
			if f.IQR > 0 {
				a.Score = (f.Lower - v) / f.IQR
			}
		}
		out = append(out, a)
	}

	return out
}

func values(records []dataset.EnrollmentRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.TotalEnrollment)
	}
	return out
}

// Percentile calculates the p-th percentile of sorted data with linear
// interpolation between closest ranks. p should be between 0 and 100.
func Percentile(sortedData []float64, p float64) float64 {
	if len(sortedData) == 0 {
		return 0
	}
	if len(sortedData) == 1 {
		return sortedData[0]
	}

	index := (p / 100) * float64(len(sortedData)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sortedData) {
		return sortedData[len(sortedData)-1]
	}

	weight := index - float64(lower)
	return sortedData[lower]*(1-weight) + sortedData[upper]*weight
}

// CalculateIQR returns Q1, Q3, and IQR for a slice of values
func CalculateIQR(values []float64) (q1, q3, iqr float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	sortedValues := make([]float64, len(values))
	copy(sortedValues, values)
	sort.Float64s(sortedValues)

	q1 = Percentile(sortedValues, 25)
	q3 = Percentile(sortedValues, 75)
	iqr = q3 - q1

	return q1, q3, iqr
}
