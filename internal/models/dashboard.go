package models

import (
	"github.com/soltixdb/enrollwatch/internal/aggregation"
	"github.com/soltixdb/enrollwatch/internal/analytics/anomaly"
	"github.com/soltixdb/enrollwatch/internal/analytics/forecast"
	"github.com/soltixdb/enrollwatch/internal/model"
)

// SeriesPoint is one period of a time series. Period is YYYY-MM-DD or YYYY-MM.
type SeriesPoint struct {
	Period string `json:"period"`
	Total  int64  `json:"total"`
}

// OverviewResponse holds the headline KPIs
type OverviewResponse struct {
	TotalEnrollment    int64         `json:"total_enrollment"`
	Records            int           `json:"records"`
	States             int           `json:"states"`
	Districts          int           `json:"districts"`
	FirstDate          string        `json:"first_date,omitempty"`
	LastDate           string        `json:"last_date,omitempty"`
	AveragePerDistrict float64       `json:"average_per_district"`
	Monthly            []SeriesPoint `json:"monthly"`
}

// RankingEntry is one row of a ranking
type RankingEntry struct {
	Rank     int     `json:"rank"`
	Name     string  `json:"name"`
	State    string  `json:"state,omitempty"`
	Total    int64   `json:"total"`
	SharePct float64 `json:"share_pct"` // of the ranked population
}

// RankingResponse is a state or district ranking
type RankingResponse struct {
	Level   string         `json:"level"` // state or district
	State   string         `json:"state,omitempty"`
	Top     int            `json:"top"`
	Total   int            `json:"total"` // groups before truncation
	Entries []RankingEntry `json:"entries"`
}

// TrendResponse is a filtered daily time series
type TrendResponse struct {
	State          string        `json:"state,omitempty"`
	District       string        `json:"district,omitempty"`
	Downsample     string        `json:"downsample,omitempty"` // mode applied, empty when the series is full
	OriginalPoints int           `json:"original_points"`
	Points         []SeriesPoint `json:"points"`
}

// AggregateResponse is a grouped summary of the filtered table
type AggregateResponse struct {
	By       []string                 `json:"by"`
	State    string                   `json:"state,omitempty"`
	District string                   `json:"district,omitempty"`
	Total    int                      `json:"total"` // groups before top is applied
	Groups   []aggregation.GroupStats `json:"groups"`
}

// Stats are display statistics of one district
type Stats struct {
	Count   int64   `json:"count"`
	Total   int64   `json:"total"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	MinDate string  `json:"min_date"`
	MaxDate string  `json:"max_date"`
}

// DistrictDetailResponse is the drill-down of one district
type DistrictDetailResponse struct {
	District     string        `json:"district"`
	State        string        `json:"state"`
	DistrictCode *int          `json:"district_code,omitempty"` // nil when the model does not know it
	Latest       SeriesPoint   `json:"latest"`
	Stats        Stats         `json:"stats"`
	History      []SeriesPoint `json:"history"`
}

// ForecastResponse is a forecast with the model's feature importances
type ForecastResponse struct {
	*forecast.Result
	State       string            `json:"state"`
	Importances model.Importances `json:"importances"`
}

// BacktestResponse is the in-sample performance of the model on one district
type BacktestResponse struct {
	District string `json:"district"`
	*forecast.ModelInfo
}

// AnomalyResponse is an IQR scan, truncated to Limit anomalies
type AnomalyResponse struct {
	anomaly.Result
	District string `json:"district,omitempty"`
	Flagged  int    `json:"flagged"` // before truncation
	Limit    int    `json:"limit"`
}

// MapEntry is the value of one state on the choropleth
type MapEntry struct {
	State     string  `json:"state"`
	Total     int64   `json:"total"`
	Districts int     `json:"districts"`
	SharePct  float64 `json:"share_pct"`
	Intensity float64 `json:"intensity"` // 0..1 between the smallest and largest state
}

// MapResponse feeds a state-level choropleth
type MapResponse struct {
	Min     int64      `json:"min"`
	Max     int64      `json:"max"`
	Entries []MapEntry `json:"entries"`
}

// Section describes one dashboard view
type Section struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// SectionResponse is a rendered section
type SectionResponse struct {
	Section Section     `json:"section"`
	Data    interface{} `json:"data"`
}
