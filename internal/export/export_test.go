package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/enrollwatch/internal/analytics/forecast"
)

func sampleResult() *forecast.Result {
	return &forecast.Result{
		District:     "North Goa",
		LatestValue:  110,
		Predicted:    121.4,
		Lower:        119.32,
		Upper:        123.48,
		ForecastDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Change:       forecast.Percent{Value: 10.363636, Defined: true},
	}
}

func TestFormatResult(t *testing.T) {
	row := FormatResult(sampleResult())

	assert.Equal(t, "North Goa", row.District)
	assert.Equal(t, int64(110), row.LatestEnrollment)
	assert.Equal(t, int64(121), row.PredictedEnrollment)
	assert.Equal(t, int64(119), row.ConfidenceLower)
	assert.Equal(t, int64(123), row.ConfidenceUpper)
	assert.Equal(t, []string{"North Goa", "110", "121", "10.36", "119", "123", "2024-03-01"}, row.Strings())
}

func TestWriteCSV_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, FormatResult(sampleResult())))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"District,Latest Enrollment,Predicted Enrollment,Change (%),Confidence Lower,Confidence Upper,Forecast Date",
		lines[0])
	assert.Equal(t, "North Goa,110,121,10.36,119,123,2024-03-01", lines[1])
}

func TestCSV_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		row  Row
	}{
		{"defined", FormatResult(sampleResult())},
		{"undefined change", Row{
			District:     "Kollam",
			ChangePct:    forecast.Percent{},
			ForecastDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
		{"quoted district", Row{
			District:            `Dakshina "South", Kannada`,
			LatestEnrollment:    987654321,
			PredictedEnrollment: 987654400,
			ChangePct:           forecast.Percent{Value: -0.04, Defined: true},
			ConfidenceLower:     -3,
			ConfidenceUpper:     987659999,
			ForecastDate:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, tt.row))

			got, err := ParseCSV(&buf)
			require.NoError(t, err)
			assertRowsEqual(t, tt.row, got)
		})
	}
}

func TestXLSX_RoundTrip(t *testing.T) {
	for _, row := range []Row{
		FormatResult(sampleResult()),
		{District: "Patna", LatestEnrollment: 0, PredictedEnrollment: 4, ForecastDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	} {
		var buf bytes.Buffer
		require.NoError(t, WriteXLSX(&buf, row))
		assert.NotZero(t, buf.Len())

		got, err := ParseXLSX(&buf)
		require.NoError(t, err)
		assertRowsEqual(t, row, got)
	}
}

func assertRowsEqual(t *testing.T, want, got Row) {
	t.Helper()
	assert.Equal(t, want.District, got.District)
	assert.Equal(t, want.LatestEnrollment, got.LatestEnrollment)
	assert.Equal(t, want.PredictedEnrollment, got.PredictedEnrollment)
	assert.Equal(t, want.ConfidenceLower, got.ConfidenceLower)
	assert.Equal(t, want.ConfidenceUpper, got.ConfidenceUpper)
	assert.True(t, want.ForecastDate.Equal(got.ForecastDate))
	assert.Equal(t, want.ChangePct.Defined, got.ChangePct.Defined)
	assert.InDelta(t, want.ChangePct.Value, got.ChangePct.Value, 0.1)
}

func TestParseCSV_Malformed(t *testing.T) {
	header := strings.Join(Columns, ",")
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"header only", header + "\n"},
		{"wrong header", strings.Replace(header, "District", "Name", 1) + "\nA,1,2,3,4,5,2024-01-01\n"},
		{"short row", header + "\nA,1,2\n"},
		{"bad int", header + "\nA,x,2,3,4,5,2024-01-01\n"},
		{"bad percent", header + "\nA,1,2,n/a,4,5,2024-01-01\n"},
		{"bad date", header + "\nA,1,2,3,4,5,01/01/2024\n"},
		{"two rows", header + "\nA,1,2,3,4,5,2024-01-01\nB,1,2,3,4,5,2024-01-01\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrMalformedRow)
		})
	}
}

func TestFilename(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "forecast_Kollam_20240301.csv", Filename("Kollam", date, FormatCSV))
	assert.Equal(t, "forecast_North_Goa_20240301.xlsx", Filename("North Goa", date, FormatXLSX))
	assert.Equal(t, "forecast_..etcpasswd_20240301.csv", Filename("../etc/passwd", date, FormatCSV))
	assert.NotContains(t, Filename("../../x", date, FormatCSV), "/")
	assert.Equal(t, "forecast_district_20240301.csv", Filename("  ", date, FormatCSV))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Contains(t, f.ContentType(), "spreadsheetml")

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
