package aggregation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/soltixdb/enrollwatch/internal/dataset"
)

func TestNewAggregatedFieldWithTime(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	field := NewAggregatedFieldWithTime(10.0, jan)

	if field.Count != 1 {
		t.Errorf("Expected Count=1, got %d", field.Count)
	}
	if field.Sum != 10.0 {
		t.Errorf("Expected Sum=10.0, got %f", field.Sum)
	}
	if field.Avg != 10.0 {
		t.Errorf("Expected Avg=10.0, got %f", field.Avg)
	}
	if field.Min != 10.0 || field.Max != 10.0 {
		t.Errorf("Expected Min=Max=10.0, got %f/%f", field.Min, field.Max)
	}
	if !field.MinTime.Equal(jan) || !field.MaxTime.Equal(jan) {
		t.Errorf("Expected extrema times %v, got %v/%v", jan, field.MinTime, field.MaxTime)
	}
	if field.StdDev() != 0 {
		t.Errorf("Expected StdDev=0 for one value, got %f", field.StdDev())
	}
}

func TestAggregatedField_AddValueWithTime(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := jan.AddDate(0, 1, 0)
	mar := jan.AddDate(0, 2, 0)

	field := NewAggregatedFieldWithTime(20.0, jan)
	field.AddValueWithTime(10.0, feb)
	field.AddValueWithTime(30.0, mar)

	assert.Equal(t, int64(3), field.Count)
	assert.Equal(t, 60.0, field.Sum)
	assert.Equal(t, 20.0, field.Avg)
	assert.Equal(t, 10.0, field.Min)
	assert.Equal(t, feb, field.MinTime)
	assert.Equal(t, 30.0, field.Max)
	assert.Equal(t, mar, field.MaxTime)

	// sample variance of 10, 20, 30
	assert.InDelta(t, 100.0, field.Variance(), 1e-9)
	assert.InDelta(t, 10.0, field.StdDev(), 1e-9)
}

func TestAggregatedField_TiesKeepEarliestTime(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := jan.AddDate(0, 1, 0)
	mar := jan.AddDate(0, 2, 0)

	// records need not arrive in date order
	field := NewAggregatedFieldWithTime(5, mar)
	field.AddValueWithTime(5, jan)
	field.AddValueWithTime(5, feb)

	assert.Equal(t, jan, field.MinTime)
	assert.Equal(t, jan, field.MaxTime)
	assert.Equal(t, 0.0, field.StdDev())
}

func TestAggregatedField_LargeValuesSmallSpread(t *testing.T) {
	values := []float64{1e9 + 0.1, 1e9 + 0.2, 1e9 + 0.3, 1e9 + 0.4}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	field := NewAggregatedFieldWithTime(values[0], start)
	for i, v := range values[1:] {
		field.AddValueWithTime(v, start.AddDate(0, i+1, 0))
	}

	assert.InDelta(t, stat.StdDev(values, nil), field.StdDev(), 1e-6)
	assert.InDelta(t, stat.Variance(values, nil), field.Variance(), 1e-6)

	constant := NewAggregatedFieldWithTime(1e9+0.1, start)
	for i := 0; i < 10; i++ {
		constant.AddValueWithTime(1e9+0.1, start)
	}
	assert.Equal(t, 0.0, constant.Variance())
	assert.False(t, math.IsNaN(constant.StdDev()))
}

func records() []dataset.EnrollmentRecord {
	d := func(m int) time.Time { return time.Date(2024, time.Month(m), 1, 0, 0, 0, 0, time.UTC) }
	return []dataset.EnrollmentRecord{
		{Date: d(1), State: "Kerala", District: "Ernakulam", TotalEnrollment: 100},
		{Date: d(2), State: "Kerala", District: "Ernakulam", TotalEnrollment: 110},
		{Date: d(1), State: "Kerala", District: "Kollam", TotalEnrollment: 50},
		{Date: d(2), State: "Kerala", District: "Kollam", TotalEnrollment: 70},
		{Date: d(1), State: "Bihar", District: "Patna", TotalEnrollment: 200},
		{Date: d(2), State: "Bihar", District: "Patna", TotalEnrollment: 130},
		{Date: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), State: "Goa", District: "North Goa", TotalEnrollment: 330},
	}
}

func TestSumBy_Ranking(t *testing.T) {
	got := SumBy(records(), []GroupKey{KeyState}, OrderTotalDesc)

	require.Len(t, got, 3)
	// all three states total 330; ties are broken by name
	assert.Equal(t, []string{"Bihar"}, got[0].Group)
	assert.Equal(t, int64(330), got[0].Total)
	assert.Equal(t, []string{"Goa"}, got[1].Group)
	assert.Equal(t, []string{"Kerala"}, got[2].Group)
	assert.Equal(t, int64(330), got[2].Total)
}

func TestSumBy_TimeSeries(t *testing.T) {
	byDate := SumBy(records(), []GroupKey{KeyDate}, OrderKeyAsc)
	require.Len(t, byDate, 3)
	assert.Equal(t, "2024-01-01", byDate[0].Group[0])
	assert.Equal(t, int64(350), byDate[0].Total)
	assert.Equal(t, "2024-02-15", byDate[2].Group[0])

	byMonth := SumBy(records(), []GroupKey{KeyMonth}, OrderKeyAsc)
	require.Len(t, byMonth, 2)
	assert.Equal(t, GroupTotal{Group: []string{"2024-02"}, Total: 640}, byMonth[1])
}

func TestSumBy_MultiKey(t *testing.T) {
	got := SumBy(records(), []GroupKey{KeyState, KeyDistrict}, OrderKeyAsc)
	require.Len(t, got, 4)
	assert.Equal(t, "Bihar / Patna", got[0].Label())
	assert.Equal(t, "Kerala / Kollam", got[3].Label())
	assert.Equal(t, int64(120), got[3].Total)
}

func TestSumBy_NoKeysAndEmpty(t *testing.T) {
	total := SumBy(records(), nil, OrderKeyAsc)
	require.Len(t, total, 1)
	assert.Equal(t, int64(990), total[0].Total)

	empty := SumBy(nil, []GroupKey{KeyState}, OrderTotalDesc)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
	assert.NotNil(t, Summarize(nil, nil, OrderKeyAsc))
}

func TestSummarize(t *testing.T) {
	got := Summarize(records(), []GroupKey{KeyDistrict}, OrderTotalDesc)
	require.Len(t, got, 4)

	// North Goa and Patna tie on 330
	goa := got[0]
	assert.Equal(t, "North Goa", goa.Group[0])
	assert.Equal(t, 0.0, goa.StdDev)

	patna := got[1]
	assert.Equal(t, []string{"Patna"}, patna.Group)
	assert.Equal(t, int64(2), patna.Count)
	assert.Equal(t, int64(330), patna.Total)
	assert.Equal(t, 165.0, patna.Mean)
	assert.InDelta(t, math.Sqrt(2450), patna.StdDev, 1e-9)
	assert.Equal(t, 130.0, patna.Min)
	assert.Equal(t, 200.0, patna.Max)
	assert.Equal(t, "2024-02-01", patna.MinDate)
	assert.Equal(t, "2024-01-01", patna.MaxDate)
	assert.Equal(t, "2024-02-15", goa.MinDate)
	assert.Equal(t, "2024-02-15", goa.MaxDate)
}

func TestTopN(t *testing.T) {
	groups := SumBy(records(), []GroupKey{KeyDistrict}, OrderTotalDesc)
	assert.Len(t, TopN(groups, 2), 2)
	assert.Len(t, TopN(groups, 0), 4)
	assert.Len(t, TopN(groups, -1), 4)
	assert.Len(t, TopN(groups, 10), 4)
}

func TestParseGroupKeys(t *testing.T) {
	keys, err := ParseGroupKeys("State, month")
	require.NoError(t, err)
	assert.Equal(t, []GroupKey{KeyState, KeyMonth}, keys)

	keys, err = ParseGroupKeys("")
	require.NoError(t, err)
	assert.Nil(t, keys)

	_, err = ParseGroupKeys("state,pincode")
	assert.Error(t, err)
}
