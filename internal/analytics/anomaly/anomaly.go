package anomaly

import (
	"fmt"
	"sort"

	"github.com/soltixdb/enrollwatch/internal/dataset"
)

// AnomalyType represents the direction of an anomaly
type AnomalyType string

const (
	AnomalyTypeSpike AnomalyType = "spike" // Above the upper fence
	AnomalyTypeDrop  AnomalyType = "drop"  // Below the lower fence
)

// Scope selects the population the quartiles are computed over
type Scope string

const (
	// ScopeGlobal computes one set of fences over every record.
	ScopeGlobal Scope = "global"
	// ScopeDistrict computes fences independently for each district.
	ScopeDistrict Scope = "district"
)

// ParseScope validates a scope name; empty means global.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeDistrict:
		return ScopeDistrict, nil
	default:
		return "", fmt.Errorf("unknown anomaly scope: %s (supported: global, district)", s)
	}
}

// Range represents expected value range
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Fences describes the quartiles and bounds of one population.
type Fences struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies inside the closed fence interval.
func (f Fences) Contains(v float64) bool {
	return v >= f.Lower && v <= f.Upper
}

// Anomaly is a flagged enrollment record
type Anomaly struct {
	dataset.EnrollmentRecord
	Expected Range       `json:"expected"`
	Score    float64     `json:"score"` // distance outside the fence in IQR units
	Type     AnomalyType `json:"type"`
}

// Result is the outcome of one detection run.
type Result struct {
	Scope     Scope     `json:"scope"`
	Records   int       `json:"records"`
	Fences    *Fences   `json:"fences,omitempty"` // set for global scope only
	Anomalies []Anomaly `json:"anomalies"`
}

// sortAnomalies orders by value descending, then date, then district.
func sortAnomalies(a []Anomaly) {
	sort.SliceStable(a, func(i, j int) bool {
		if a[i].TotalEnrollment != a[j].TotalEnrollment {
			return a[i].TotalEnrollment > a[j].TotalEnrollment
		}
		if !a[i].Date.Equal(a[j].Date) {
			return a[i].Date.Before(a[j].Date)
		}
		return a[i].District < a[j].District
	})
}
