package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `date,state,district,total_enrollment
2024-02-01,Kerala,Ernakulam,110
2024-01-01,Kerala,Ernakulam,100
2024-01-01,Kerala,Kollam,40
2024-01-01,Bihar,Patna,300
2024-02-01,Bihar,Patna,280
`

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRead_Sample(t *testing.T) {
	table, err := Read(strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)

	assert.Equal(t, 5, table.Len())
	assert.Equal(t, []string{"Bihar", "Kerala"}, table.States())
	assert.Equal(t, []string{"Ernakulam", "Kollam", "Patna"}, table.Districts())
	assert.Equal(t, []string{"Ernakulam", "Kollam"}, table.DistrictsInState("Kerala"))

	history := table.History("Ernakulam")
	require.Len(t, history, 2)
	assert.Equal(t, day(2024, 1, 1), history[0].Date)
	assert.Equal(t, int64(110), history[1].TotalEnrollment)

	latest, ok := table.Latest("Ernakulam")
	require.True(t, ok)
	assert.Equal(t, "2024-02-01", latest.DateString())

	_, ok = table.Latest("Nowhere")
	assert.False(t, ok)

	state, ok := table.StateOf("Patna")
	assert.True(t, ok)
	assert.Equal(t, "Bihar", state)
}

func TestRead_HeaderVariants(t *testing.T) {
	csv := "\ufeffDate, State ,DISTRICT,Total_Enrollment,extra\n01-03-2024,Goa,North Goa,12.0,x\n"
	table, err := Read(strings.NewReader(csv), Options{})
	require.NoError(t, err)

	latest, ok := table.Latest("North Goa")
	require.True(t, ok)
	assert.Equal(t, day(2024, 3, 1), latest.Date)
	assert.Equal(t, int64(12), latest.TotalEnrollment)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{"empty file", "", "empty file"},
		{"missing column", "date,state,district\n", "missing columns: total_enrollment"},
		{"bad date", "date,state,district,total_enrollment\nnot-a-date,S,D,1\n", "line 2"},
		{"negative", "date,state,district,total_enrollment\n2024-01-01,S,D,-4\n", "negative"},
		{"fractional", "date,state,district,total_enrollment\n2024-01-01,S,D,1.5\n", "invalid total_enrollment"},
		{"empty district", "date,state,district,total_enrollment\n2024-01-01,S,,1\n", "empty district"},
		{"duplicate", "date,state,district,total_enrollment\n2024-01-01,S,D,1\n2024-01-01,S,D,2\n", "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.csv), Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDataLoad))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enrollment.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	table, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	assert.ErrorIs(t, err, ErrDataLoad)
}

func TestLoad_CustomLayoutAndDelimiter(t *testing.T) {
	csv := "date;state;district;total_enrollment\n2024.05.01;S;D;7\n"
	table, err := Read(strings.NewReader(csv), Options{DateLayouts: []string{"2006.01.02"}, Comma: ';'})
	require.NoError(t, err)
	latest, _ := table.Latest("D")
	assert.Equal(t, day(2024, 5, 1), latest.Date)
}

func TestTable_SummaryAndFilter(t *testing.T) {
	table, err := Read(strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)

	s := table.Summary()
	assert.Equal(t, 5, s.Records)
	assert.Equal(t, 2, s.States)
	assert.Equal(t, 3, s.Districts)
	assert.Equal(t, int64(830), s.TotalEnrollment)
	assert.Equal(t, day(2024, 1, 1), s.FirstDate)
	assert.Equal(t, day(2024, 2, 1), s.LastDate)

	kerala := table.Filter("Kerala", "")
	assert.Equal(t, 3, kerala.Len())
	assert.Equal(t, []string{"Kerala"}, kerala.States())

	one := table.Filter("", "Patna")
	assert.Equal(t, 2, one.Len())

	assert.Same(t, table, table.Filter("", ""))
}

func TestTable_Immutable(t *testing.T) {
	table, err := Read(strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)

	recs := table.Records()
	recs[0].TotalEnrollment = 999999
	districts := table.Districts()
	districts[0] = "mutated"

	assert.NotEqual(t, int64(999999), table.Records()[0].TotalEnrollment)
	assert.Equal(t, "Ernakulam", table.Districts()[0])
}

func TestTable_Empty(t *testing.T) {
	table, err := NewTable(nil)
	require.NoError(t, err)
	_, _, ok := table.DateRange()
	assert.False(t, ok)
	assert.Empty(t, table.History("x"))
	assert.Equal(t, Summary{}, table.Summary())
}
