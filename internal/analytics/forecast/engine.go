// Package forecast derives district forecasts, confidence bounds and what-if
// scenarios from a frozen regression model.
package forecast

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/enrollwatch/internal/analytics"
	"github.com/soltixdb/enrollwatch/internal/dataset"
	"github.com/soltixdb/enrollwatch/internal/utils"
)

// Engine computes forecasts. It holds no mutable state.
type Engine struct {
	predictor Predictor
	config    Config
}

// NewEngine validates cfg and binds it to a predictor.
func NewEngine(p Predictor, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forecast config: %w", err)
	}
	return &Engine{predictor: p, config: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Forecast predicts the period after the latest record of history.
func (e *Engine) Forecast(district string, code int, history []dataset.EnrollmentRecord) (*Result, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: district %q has no records", ErrInsufficientHistory, district)
	}
	history = byDate(history)

	latest := history[len(history)-1]
	lag1 := float64(latest.TotalEnrollment)
	month := int(latest.Date.Month())

	point, err := e.predict(lag1, month, code)
	if err != nil {
		return nil, err
	}

	series := analytics.FromRecords(history)
	std := series.StdDev()
	scale := std * e.config.ResidualMultiplier
	margin := e.config.Z * scale
	lower, upper := predictionInterval(point, margin)

	res := &Result{
		District:      district,
		DistrictCode:  code,
		LatestDate:    latest.Date,
		LatestValue:   lag1,
		Predicted:     point,
		Lower:         lower,
		Upper:         upper,
		Margin:        margin,
		ForecastDate:  latest.Date.AddDate(0, e.config.Horizon, 0),
		Change:        percentOrUndefined(PercentChange(lag1, point)),
		HistoryStdDev: std,
		ResidualScale: scale,
		HistoryPoints: len(history),
	}

	if n := len(history); n >= 2 {
		prev := float64(history[n-2].TotalEnrollment)
		delta := lag1 - prev
		res.Trend = &Trend{
			Previous:         prev,
			Latest:           lag1,
			Delta:            delta,
			ChangePct:        percentOrUndefined(Ratio(delta, prev)),
			DeltaOfLatestPct: percentOrUndefined(Ratio(delta, lag1)),
		}
	}

	opt, err := e.scenario("optimistic", e.config.OptimisticFactor, lag1, month, code, point)
	if err != nil {
		return nil, err
	}
	pes, err := e.scenario("pessimistic", e.config.PessimisticFactor, lag1, month, code, point)
	if err != nil {
		return nil, err
	}
	res.Scenarios = Scenarios{
		Optimistic:  opt,
		Pessimistic: pes,
		Monotonic:   opt.Predicted >= pes.Predicted,
	}
	return res, nil
}

func (e *Engine) scenario(name string, factor, lag1 float64, month, code int, base float64) (Scenario, error) {
	scaled := lag1 * factor
	v, err := e.predict(scaled, month, code)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s scenario: %w", name, err)
	}
	return Scenario{
		Name:      name,
		Factor:    factor,
		Lag1:      scaled,
		Predicted: v,
		Delta:     v - base,
		DeltaPct:  percentOrUndefined(PercentChange(base, v)),
	}, nil
}

// Backtest replays each consecutive pair of history through the model:
// the value at i is predicted from the value at i-1 and the month at i.
func (e *Engine) Backtest(code int, history []dataset.EnrollmentRecord) (*ModelInfo, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("%w: backtest needs at least 2 records, got %d",
			ErrInsufficientHistory, len(history))
	}
	history = byDate(history)

	n := len(history) - 1
	actual := make([]float64, n)
	predicted := make([]float64, n)
	points := make([]BacktestPoint, n)

	for i := 1; i < len(history); i++ {
		lag1 := float64(history[i-1].TotalEnrollment)
		v, err := e.predict(lag1, int(history[i].Date.Month()), code)
		if err != nil {
			return nil, err
		}
		actual[i-1] = float64(history[i].TotalEnrollment)
		predicted[i-1] = v
		points[i-1] = BacktestPoint{Date: history[i].Date, Lag1: lag1, Actual: actual[i-1], Predicted: v}
	}

	info := &ModelInfo{
		DataPoints: n,
		MAE:        CalculateMAE(actual, predicted),
		RMSE:       CalculateRMSE(actual, predicted),
		MAPE:       CalculateMAPE(actual, predicted),
		Points:     points,
	}
	if r2 := stat.RSquaredFrom(predicted, actual, nil); utils.IsFinite(r2) {
		info.R2 = &r2
	}
	return info, nil
}

func (e *Engine) predict(lag1 float64, month, code int) (float64, error) {
	v, err := e.predictor.Predict(lag1, month, code)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	if !utils.IsFinite(v) {
		return 0, fmt.Errorf("predict: non-finite estimate %v", v)
	}
	return v, nil
}

// byDate returns history in ascending date order, copying only when needed.
func byDate(history []dataset.EnrollmentRecord) []dataset.EnrollmentRecord {
	cmp := func(a, b dataset.EnrollmentRecord) int { return a.Date.Compare(b.Date) }
	if slices.IsSortedFunc(history, cmp) {
		return history
	}
	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, cmp)
	return sorted
}
