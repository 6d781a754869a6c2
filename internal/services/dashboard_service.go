package services

import (
	"fmt"
	"slices"

	"github.com/soltixdb/enrollwatch/internal/aggregation"
	"github.com/soltixdb/enrollwatch/internal/analytics/anomaly"
	"github.com/soltixdb/enrollwatch/internal/analytics/forecast"
	"github.com/soltixdb/enrollwatch/internal/config"
	"github.com/soltixdb/enrollwatch/internal/dataset"
	"github.com/soltixdb/enrollwatch/internal/downsampling"
	"github.com/soltixdb/enrollwatch/internal/events"
	"github.com/soltixdb/enrollwatch/internal/export"
	"github.com/soltixdb/enrollwatch/internal/logging"
	"github.com/soltixdb/enrollwatch/internal/metrics"
	"github.com/soltixdb/enrollwatch/internal/model"
	"github.com/soltixdb/enrollwatch/internal/models"
	"github.com/soltixdb/enrollwatch/internal/utils"
)

// Dependencies are the handles a DashboardService is built from.
// Table, Adapter and Engine are required.
type Dependencies struct {
	Logger    *logging.Logger
	Table     *dataset.Table
	Adapter   *model.Adapter
	Engine    *forecast.Engine
	Detector  anomaly.IQRDetector
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Events    config.EventsConfig
	Anomaly   config.AnomalyConfig
	Export    config.ExportConfig
}

// DashboardService answers every dashboard view from the loaded table and model.
// It holds no mutable state and is safe for concurrent use.
type DashboardService struct {
	logger    *logging.Logger
	table     *dataset.Table
	adapter   *model.Adapter
	engine    *forecast.Engine
	detector  anomaly.IQRDetector
	publisher events.Publisher
	metrics   *metrics.Metrics
	events    config.EventsConfig

	defaultScope  anomaly.Scope
	defaultLimit  int
	defaultFormat export.Format
}

// EngineConfig converts the forecast section of the configuration
func EngineConfig(cfg config.ForecastConfig) forecast.Config {
	return forecast.Config{
		ResidualMultiplier: cfg.ResidualMultiplier,
		Z:                  cfg.Z,
		OptimisticFactor:   cfg.OptimisticFactor,
		PessimisticFactor:  cfg.PessimisticFactor,
		Horizon:            cfg.HorizonMonths,
	}
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(deps Dependencies) (*DashboardService, error) {
	if deps.Table == nil || deps.Adapter == nil || deps.Engine == nil {
		return nil, fmt.Errorf("table, adapter and engine are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Global()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}

	scope, err := anomaly.ParseScope(deps.Anomaly.DefaultScope)
	if err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(deps.Export.DefaultFormat)
	if err != nil {
		return nil, err
	}
	limit := deps.Anomaly.DefaultLimit
	if limit <= 0 {
		limit = utils.DefaultAnomalyLimit
	}

	return &DashboardService{
		logger:        deps.Logger,
		table:         deps.Table,
		adapter:       deps.Adapter,
		engine:        deps.Engine,
		detector:      deps.Detector,
		publisher:     deps.Publisher,
		metrics:       deps.Metrics,
		events:        deps.Events,
		defaultScope:  scope,
		defaultLimit:  limit,
		defaultFormat: format,
	}, nil
}

// Table returns the loaded dataset
func (s *DashboardService) Table() *dataset.Table {
	return s.table
}

// Overview returns the headline KPIs and the monthly series
func (s *DashboardService) Overview() *models.OverviewResponse {
	sum := s.table.Summary()
	resp := &models.OverviewResponse{
		TotalEnrollment: sum.TotalEnrollment,
		Records:         sum.Records,
		States:          sum.States,
		Districts:       sum.Districts,
		Monthly:         seriesOf(aggregation.SumBy(s.table.Records(), []aggregation.GroupKey{aggregation.KeyMonth}, aggregation.OrderKeyAsc)),
	}
	if sum.Records > 0 {
		resp.FirstDate = sum.FirstDate.Format(dataset.DateFormat)
		resp.LastDate = sum.LastDate.Format(dataset.DateFormat)
	}
	if sum.Districts > 0 {
		resp.AveragePerDistrict = utils.RoundTo(float64(sum.TotalEnrollment)/float64(sum.Districts), 2)
	}
	return resp
}

// StateRanking ranks states by total enrollment
func (s *DashboardService) StateRanking(top int) (*models.RankingResponse, error) {
	top, err := s.listSize("top", top, utils.DefaultRankingSize)
	if err != nil {
		return nil, err
	}

	groups := aggregation.SumBy(s.table.Records(), []aggregation.GroupKey{aggregation.KeyState}, aggregation.OrderTotalDesc)
	return s.ranking("state", "", top, groups), nil
}

// DistrictRanking ranks districts, optionally within one state
func (s *DashboardService) DistrictRanking(state string, top int) (*models.RankingResponse, error) {
	top, err := s.listSize("top", top, utils.DefaultRankingSize)
	if err != nil {
		return nil, err
	}
	if state != "" && !s.table.HasState(state) {
		return nil, unknownState(state)
	}

	records := s.table.Filter(state, "").Records()
	groups := aggregation.SumBy(records, []aggregation.GroupKey{aggregation.KeyDistrict}, aggregation.OrderTotalDesc)
	return s.ranking("district", state, top, groups), nil
}

func (s *DashboardService) ranking(level, state string, top int, groups []aggregation.GroupTotal) *models.RankingResponse {
	var grand int64
	for _, g := range groups {
		grand += g.Total
	}

	kept := aggregation.TopN(groups, top)
	entries := make([]models.RankingEntry, len(kept))
	for i, g := range kept {
		e := models.RankingEntry{Rank: i + 1, Name: g.Label(), Total: g.Total}
		if grand > 0 {
			e.SharePct = utils.RoundTo(float64(g.Total)/float64(grand)*100, 2)
		}
		if level == "district" {
			e.State, _ = s.table.StateOf(e.Name)
		}
		entries[i] = e
	}

	return &models.RankingResponse{
		Level:   level,
		State:   state,
		Top:     top,
		Total:   len(groups),
		Entries: entries,
	}
}

// TrendQuery filters and thins the daily series
type TrendQuery struct {
	State      string
	District   string
	Downsample string // downsampling mode, empty for the full series
	Points     int    // point budget when downsampling
}

// Trend returns the daily enrollment series of the filtered table
func (s *DashboardService) Trend(q TrendQuery) (*models.TrendResponse, error) {
	if q.State != "" && !s.table.HasState(q.State) {
		return nil, unknownState(q.State)
	}
	if q.District != "" {
		if _, ok := s.table.StateOf(q.District); !ok {
			return nil, unknownDistrict(q.District)
		}
	}
	mode, err := downsampling.ParseMode(q.Downsample)
	if err != nil {
		return nil, invalidArgument("downsample", q.Downsample, err.Error())
	}
	if q.Points < 0 || q.Points > utils.MaxListSize {
		return nil, invalidArgument("points", q.Points, fmt.Sprintf("must be between 1 and %d", utils.MaxListSize))
	}

	records := s.table.Filter(q.State, q.District).Records()
	points := seriesOf(aggregation.SumBy(records, []aggregation.GroupKey{aggregation.KeyDate}, aggregation.OrderKeyAsc))
	resp := &models.TrendResponse{
		State:          q.State,
		District:       q.District,
		OriginalPoints: len(points),
		Points:         points,
	}
	if mode == downsampling.ModeNone {
		return resp, nil
	}

	thinned, err := downsampling.Apply(toSamples(points), mode, q.Points)
	if err != nil {
		return nil, invalidArgument("downsample", q.Downsample, err.Error())
	}
	if len(thinned) < len(points) {
		resp.Downsample = string(mode)
		resp.Points = fromSamples(thinned)
	}
	return resp, nil
}

// AggregateQuery groups the filtered table
type AggregateQuery struct {
	By       string // comma separated group keys: state, district, date, month
	State    string
	District string
	Top      int
	Order    string // total (default) or key
}

// Aggregate returns per-group statistics of the filtered table
func (s *DashboardService) Aggregate(q AggregateQuery) (*models.AggregateResponse, error) {
	keys, err := aggregation.ParseGroupKeys(q.By)
	if err != nil {
		return nil, invalidArgument("by", q.By, err.Error())
	}
	if len(keys) == 0 {
		return nil, invalidArgument("by", q.By, "at least one group key is required")
	}

	order := aggregation.OrderTotalDesc
	switch q.Order {
	case "", "total":
	case "key":
		order = aggregation.OrderKeyAsc
	default:
		return nil, invalidArgument("order", q.Order, "must be total or key")
	}

	top, err := s.listSize("top", q.Top, utils.MaxListSize)
	if err != nil {
		return nil, err
	}
	if q.State != "" && !s.table.HasState(q.State) {
		return nil, unknownState(q.State)
	}
	if q.District != "" {
		if _, ok := s.table.StateOf(q.District); !ok {
			return nil, unknownDistrict(q.District)
		}
	}

	groups := aggregation.Summarize(s.table.Filter(q.State, q.District).Records(), keys, order)
	by := make([]string, len(keys))
	for i, k := range keys {
		by[i] = string(k)
	}
	return &models.AggregateResponse{
		By:       by,
		State:    q.State,
		District: q.District,
		Total:    len(groups),
		Groups:   aggregation.TopN(groups, top),
	}, nil
}

// DistrictDetail returns the history and statistics of one district
func (s *DashboardService) DistrictDetail(district string) (*models.DistrictDetailResponse, error) {
	state, ok := s.table.StateOf(district)
	if !ok {
		return nil, unknownDistrict(district)
	}

	history := s.table.History(district)
	latest, _ := s.table.Latest(district)

	resp := &models.DistrictDetailResponse{
		District: district,
		State:    state,
		Latest:   models.SeriesPoint{Period: latest.DateString(), Total: latest.TotalEnrollment},
		History:  make([]models.SeriesPoint, len(history)),
	}
	for i, r := range history {
		resp.History[i] = models.SeriesPoint{Period: r.DateString(), Total: r.TotalEnrollment}
	}

	if stats := aggregation.Summarize(history, []aggregation.GroupKey{aggregation.KeyDistrict}, aggregation.OrderKeyAsc); len(stats) == 1 {
		st := stats[0]
		resp.Stats = models.Stats{
			Count:   st.Count,
			Total:   st.Total,
			Mean:    st.Mean,
			StdDev:  st.StdDev,
			Min:     st.Min,
			Max:     st.Max,
			MinDate: st.MinDate,
			MaxDate: st.MaxDate,
		}
	}

	if code, err := s.adapter.Encode(district); err == nil {
		resp.DistrictCode = &code
	}
	return resp, nil
}

// MapData returns state totals scaled for a choropleth
func (s *DashboardService) MapData() *models.MapResponse {
	groups := aggregation.SumBy(s.table.Records(), []aggregation.GroupKey{aggregation.KeyState}, aggregation.OrderTotalDesc)
	resp := &models.MapResponse{Entries: make([]models.MapEntry, len(groups))}
	if len(groups) == 0 {
		return resp
	}

	var grand int64
	resp.Min, resp.Max = groups[0].Total, groups[0].Total
	for _, g := range groups {
		grand += g.Total
		resp.Min = min(resp.Min, g.Total)
		resp.Max = max(resp.Max, g.Total)
	}

	span := float64(resp.Max - resp.Min)
	for i, g := range groups {
		state := g.Label()
		e := models.MapEntry{
			State:     state,
			Total:     g.Total,
			Districts: len(s.table.DistrictsInState(state)),
			Intensity: 1,
		}
		if grand > 0 {
			e.SharePct = utils.RoundTo(float64(g.Total)/float64(grand)*100, 2)
		}
		if span > 0 {
			e.Intensity = utils.RoundTo(float64(g.Total-resp.Min)/span, 4)
		}
		resp.Entries[i] = e
	}
	return resp
}

// Districts returns the districts the model can forecast that have data loaded
func (s *DashboardService) Districts() []string {
	known := s.adapter.Encoder().Classes()
	out := make([]string, 0, len(known))
	for _, d := range known {
		if _, ok := s.table.StateOf(d); ok {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

// States returns the states present in the table
func (s *DashboardService) States() []string {
	return s.table.States()
}

// listSize validates a top/limit query value; zero selects def
func (s *DashboardService) listSize(name string, n, def int) (int, error) {
	switch {
	case n == 0:
		return def, nil
	case n < 0 || n > utils.MaxListSize:
		return 0, invalidArgument(name, n, fmt.Sprintf("must be between 1 and %d", utils.MaxListSize))
	default:
		return n, nil
	}
}

func toSamples(points []models.SeriesPoint) []downsampling.Point {
	out := make([]downsampling.Point, len(points))
	for i, p := range points {
		out[i] = downsampling.Point{Label: p.Period, Value: float64(p.Total)}
	}
	return out
}

func fromSamples(samples []downsampling.Point) []models.SeriesPoint {
	out := make([]models.SeriesPoint, len(samples))
	for i, p := range samples {
		out[i] = models.SeriesPoint{Period: p.Label, Total: utils.RoundToInt64(p.Value)}
	}
	return out
}

func seriesOf(groups []aggregation.GroupTotal) []models.SeriesPoint {
	out := make([]models.SeriesPoint, len(groups))
	for i, g := range groups {
		out[i] = models.SeriesPoint{Period: g.Label(), Total: g.Total}
	}
	return out
}
