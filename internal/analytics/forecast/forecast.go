package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/soltixdb/enrollwatch/internal/analytics"
	"github.com/soltixdb/enrollwatch/internal/utils"
)

var (
	// ErrInsufficientHistory is returned when a district has too few records.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDivisionByZero is returned by percentage computations over a zero base.
	ErrDivisionByZero = errors.New("division by zero")
)

// DataPoint is an alias to the shared analytics.TimeSeriesPoint type.
type DataPoint = analytics.TimeSeriesPoint

// Predictor estimates the next enrollment of a district from its previous value.
// Implementations must be safe for concurrent use.
type Predictor interface {
	Predict(lag1 float64, month int, districtCode int) (float64, error)
}

// Undefined is how a percentage with a zero base is rendered.
const Undefined = "undefined"

// Percent is a percentage that may be undefined because its base was zero.
type Percent struct {
	Value   float64
	Defined bool
}

// PercentChange returns (to - from) / from * 100.
func PercentChange(from, to float64) (Percent, error) {
	return Ratio(to-from, from)
}

// Ratio returns num / den * 100.
func Ratio(num, den float64) (Percent, error) {
	if den == 0 {
		return Percent{}, ErrDivisionByZero
	}
	v := num / den * 100
	if !utils.IsFinite(v) {
		return Percent{}, fmt.Errorf("%w: non-finite ratio %v/%v", ErrDivisionByZero, num, den)
	}
	return Percent{Value: v, Defined: true}, nil
}

// percentOrUndefined drops the error; an undefined Percent carries it.
func percentOrUndefined(p Percent, err error) Percent {
	if err != nil {
		return Percent{}
	}
	return p
}

// String formats with two decimals, or "undefined".
func (p Percent) String() string {
	if !p.Defined {
		return Undefined
	}
	return strconv.FormatFloat(p.Value, 'f', 2, 64)
}

// MarshalJSON renders a number, or the string "undefined".
func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Defined {
		return json.Marshal(Undefined)
	}
	return json.Marshal(utils.RoundTo(p.Value, 2))
}

// UnmarshalJSON accepts what MarshalJSON produces.
func (p *Percent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != Undefined {
			return fmt.Errorf("invalid percent %q", s)
		}
		*p = Percent{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Percent{Value: v, Defined: true}
	return nil
}

// Config holds the heuristics of the scenario engine.
type Config struct {
	ResidualMultiplier float64 // fraction of the historical stddev used as residual scale
	Z                  float64 // interval half-width in residual scales
	OptimisticFactor   float64 // lag_1 multiplier for the optimistic case
	PessimisticFactor  float64 // lag_1 multiplier for the pessimistic case
	Horizon            int     // months between the latest record and the forecast date
}

// DefaultConfig returns the dashboard's default heuristics.
func DefaultConfig() Config {
	return Config{
		ResidualMultiplier: 0.15,
		Z:                  1.96,
		OptimisticFactor:   1.10,
		PessimisticFactor:  0.90,
		Horizon:            1,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.ResidualMultiplier < 0 {
		return fmt.Errorf("residual multiplier must be non-negative, got %v", c.ResidualMultiplier)
	}
	if c.Z < 0 {
		return fmt.Errorf("z must be non-negative, got %v", c.Z)
	}
	if c.OptimisticFactor <= 0 || c.PessimisticFactor <= 0 {
		return fmt.Errorf("scenario factors must be positive")
	}
	if c.PessimisticFactor > c.OptimisticFactor {
		return fmt.Errorf("pessimistic factor %v exceeds optimistic factor %v",
			c.PessimisticFactor, c.OptimisticFactor)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %d", c.Horizon)
	}
	return nil
}

// Trend is the period-over-period movement of the last two records.
type Trend struct {
	Previous         float64 `json:"previous"`
	Latest           float64 `json:"latest"`
	Delta            float64 `json:"delta"`
	ChangePct        Percent `json:"change_pct"`          // delta over previous
	DeltaOfLatestPct Percent `json:"delta_of_latest_pct"` // delta over latest
}

// Scenario is a what-if prediction with lag_1 scaled by Factor.
type Scenario struct {
	Name      string  `json:"name"`
	Factor    float64 `json:"factor"`
	Lag1      float64 `json:"lag_1"`
	Predicted float64 `json:"predicted"`
	Delta     float64 `json:"delta"` // vs. the base prediction
	DeltaPct  Percent `json:"delta_pct"`
}

// Scenarios pairs the optimistic and pessimistic cases.
type Scenarios struct {
	Optimistic  Scenario `json:"optimistic"`
	Pessimistic Scenario `json:"pessimistic"`
	// Monotonic reports whether the model ranked the cases as expected.
	Monotonic bool `json:"monotonic"`
}

// Result is one district forecast.
type Result struct {
	District      string    `json:"district"`
	DistrictCode  int       `json:"district_code"`
	LatestDate    time.Time `json:"latest_date"`
	LatestValue   float64   `json:"latest_value"`
	Predicted     float64   `json:"predicted"`
	// Margin is the exact half-width of the interval. Lower and Upper are
	// Predicted -/+ Margin and agree with it to within one ulp.
	Lower         float64   `json:"lower"`
	Upper         float64   `json:"upper"`
	Margin        float64   `json:"margin"`
	ForecastDate  time.Time `json:"forecast_date"`
	Change        Percent   `json:"change_pct"`
	HistoryStdDev float64   `json:"history_stddev"`
	ResidualScale float64   `json:"residual_scale"`
	HistoryPoints int       `json:"history_points"`
	Trend         *Trend    `json:"trend,omitempty"` // nil with a single record
	Scenarios     Scenarios `json:"scenarios"`
}

// BacktestPoint is one replayed consecutive pair.
type BacktestPoint struct {
	Date      time.Time `json:"date"`
	Lag1      float64   `json:"lag_1"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
}

// ModelInfo holds in-sample performance of the model on one district.
type ModelInfo struct {
	DataPoints int             `json:"data_points"`
	MAE        float64         `json:"mae"`
	RMSE       float64         `json:"rmse"`
	MAPE       float64         `json:"mape"`
	R2         *float64        `json:"r2"` // nil when actuals have no variance
	Points     []BacktestPoint `json:"points"`
}

// CalculateMAPE calculates Mean Absolute Percentage Error
func CalculateMAPE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	count := 0
	for i := range actual {
		if actual[i] != 0 {
			sum += math.Abs((actual[i] - predicted[i]) / actual[i])
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return (sum / float64(count)) * 100
}

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// predictionInterval returns value -/+ margin. The rounded bounds are
// symmetric around value to within one ulp, not exactly.
func predictionInterval(value, margin float64) (lower, upper float64) {
	return value - margin, value + margin
}
